package processing

import "weathercache/internal/models"

// Fields lists the normalized columns in output order
var Fields = []string{
	"cloud_cover",
	"humidity",
	"precipitation",
	"pressure",
	"temperature_min",
	"temperature_max",
	"temperature_1",
	"temperature_2",
	"temperature_3",
	"temperature_4",
	"wind",
}

// Normalize flattens day summaries into one row per day. The four intraday
// temperatures map to temperature_1..4 as morning, afternoon, evening, night.
func Normalize(records []models.DailyRecord) []models.NormalizedRecord {
	rows := make([]models.NormalizedRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, models.NormalizedRecord{
			ID:             r.ID,
			Date:           r.Date,
			CloudCover:     r.CloudCover.Afternoon,
			Humidity:       r.Humidity.Afternoon,
			Precipitation:  r.Precipitation.Total,
			Pressure:       r.Pressure.Afternoon,
			TemperatureMin: r.Temperature.Min,
			TemperatureMax: r.Temperature.Max,
			Temperature1:   r.Temperature.Morning,
			Temperature2:   r.Temperature.Afternoon,
			Temperature3:   r.Temperature.Evening,
			Temperature4:   r.Temperature.Night,
			Wind:           r.Wind.Max.Speed,
		})
	}
	return rows
}

// Value returns the named column of a normalized row
func Value(row models.NormalizedRecord, field string) (float64, bool) {
	switch field {
	case "cloud_cover":
		return row.CloudCover, true
	case "humidity":
		return row.Humidity, true
	case "precipitation":
		return row.Precipitation, true
	case "pressure":
		return row.Pressure, true
	case "temperature_min":
		return row.TemperatureMin, true
	case "temperature_max":
		return row.TemperatureMax, true
	case "temperature_1":
		return row.Temperature1, true
	case "temperature_2":
		return row.Temperature2, true
	case "temperature_3":
		return row.Temperature3, true
	case "temperature_4":
		return row.Temperature4, true
	case "wind":
		return row.Wind, true
	}
	return 0, false
}
