package models

import (
	"fmt"
	"strconv"
	"time"
)

// Coordinate identifies the location a daily summary belongs to
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%s, %s)", FormatDegrees(c.Latitude), FormatDegrees(c.Longitude))
}

// FormatDegrees renders a coordinate component in its shortest decimal form,
// e.g. 40 -> "40", -74.006 -> "-74.006".
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DailyRecord is one day of weather for one coordinate, in the shape returned
// by the OpenWeather day_summary endpoint plus the id assigned at fetch time.
type DailyRecord struct {
	ID            string        `json:"id"`
	Lat           float64       `json:"lat"`
	Lon           float64       `json:"lon"`
	TZ            string        `json:"tz"`
	Date          string        `json:"date"`
	Units         string        `json:"units"`
	CloudCover    Afternoon     `json:"cloud_cover"`
	Humidity      Afternoon     `json:"humidity"`
	Precipitation Precipitation `json:"precipitation"`
	Pressure      Afternoon     `json:"pressure"`
	Temperature   Temperature   `json:"temperature"`
	Wind          Wind          `json:"wind"`
}

type Afternoon struct {
	Afternoon float64 `json:"afternoon"`
}

type Precipitation struct {
	Total float64 `json:"total"`
}

type Temperature struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Afternoon float64 `json:"afternoon"`
	Night     float64 `json:"night"`
	Evening   float64 `json:"evening"`
	Morning   float64 `json:"morning"`
}

type Wind struct {
	Max WindMax `json:"max"`
}

type WindMax struct {
	Speed     float64 `json:"speed"`
	Direction float64 `json:"direction"`
}

// SkippedDay describes a day a range walk could not produce a record for
type SkippedDay struct {
	Day        time.Time `json:"day"`
	Key        string    `json:"key"`
	StatusCode int       `json:"status_code,omitempty"`
	Reason     string    `json:"reason"`
}

// NormalizedRecord is a flattened DailyRecord used for charting and model input.
// Temperature1..4 are morning, afternoon, evening and night.
type NormalizedRecord struct {
	ID             string  `json:"id"`
	Date           string  `json:"date"`
	CloudCover     float64 `json:"cloud_cover"`
	Humidity       float64 `json:"humidity"`
	Precipitation  float64 `json:"precipitation"`
	Pressure       float64 `json:"pressure"`
	TemperatureMin float64 `json:"temperature_min"`
	TemperatureMax float64 `json:"temperature_max"`
	Temperature1   float64 `json:"temperature_1"`
	Temperature2   float64 `json:"temperature_2"`
	Temperature3   float64 `json:"temperature_3"`
	Temperature4   float64 `json:"temperature_4"`
	Wind           float64 `json:"wind"`
}

// FieldStats summarizes one normalized field across a range
type FieldStats struct {
	Field   string    `json:"field"`
	Count   int       `json:"count"`
	Mean    float64   `json:"mean"`
	StdDev  float64   `json:"std_dev"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Outlier []Outlier `json:"outliers,omitempty"`
}

// Outlier is a day whose value sits far from the range mean
type Outlier struct {
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
	ZScore   float64 `json:"z_score"`
	Severity string  `json:"severity"` // "low", "medium", "high"
}
