package processing

import (
	"log"
	"math"

	"weathercache/internal/models"
)

// Summarizer computes per-field statistics over a range and flags the days
// that sit far from the range mean
type Summarizer struct {
	zScoreThreshold float64 // Standard deviations from mean to flag as outlier
	minSamples      int
}

func NewSummarizer() *Summarizer {
	return &Summarizer{
		zScoreThreshold: 2.0,
		minSamples:      3,
	}
}

// Summarize returns one FieldStats per entry in Fields. Outliers are only
// computed once a field has enough samples and some variation.
func (s *Summarizer) Summarize(rows []models.NormalizedRecord) []models.FieldStats {
	stats := make([]models.FieldStats, 0, len(Fields))

	for _, field := range Fields {
		values := make([]float64, 0, len(rows))
		for _, row := range rows {
			v, _ := Value(row, field)
			values = append(values, v)
		}

		fs := models.FieldStats{Field: field, Count: len(values)}
		if len(values) == 0 {
			stats = append(stats, fs)
			continue
		}

		fs.Mean = calculateMean(values)
		fs.StdDev = calculateStdDev(values, fs.Mean)
		fs.Min, fs.Max = minMax(values)

		if len(values) < s.minSamples || fs.StdDev == 0 {
			stats = append(stats, fs)
			continue
		}

		for i, v := range values {
			zScore := CalculateZScore(v, fs.Mean, fs.StdDev)
			if s.IsOutlier(zScore) {
				fs.Outlier = append(fs.Outlier, models.Outlier{
					Date:     rows[i].Date,
					Value:    v,
					ZScore:   zScore,
					Severity: calculateSeverityFromZScore(zScore),
				})
			}
		}
		if len(fs.Outlier) > 0 {
			log.Printf("  %s: mean=%.2f, stdDev=%.2f, outliers=%d", field, fs.Mean, fs.StdDev, len(fs.Outlier))
		}

		stats = append(stats, fs)
	}

	return stats
}

// IsOutlier reports whether a z-score is beyond the summarizer's threshold
func (s *Summarizer) IsOutlier(zScore float64) bool {
	return math.Abs(zScore) > s.zScoreThreshold
}

func calculateSeverityFromZScore(zScore float64) string {
	absZScore := math.Abs(zScore)
	if absZScore > 3.0 {
		return "high"
	} else if absZScore > 2.5 {
		return "medium"
	}
	return "low"
}

// CalculateZScore calculates the Z-score for a value given mean and standard deviation
func CalculateZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateStdDev is the sample standard deviation
func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

func minMax(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
