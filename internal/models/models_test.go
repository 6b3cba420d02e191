package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFormatDegrees(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want string
	}{
		{"integer", 40, "40"},
		{"negative integer", -74, "-74"},
		{"fraction", 37.7749, "37.7749"},
		{"negative fraction", -122.4194, "-122.4194"},
		{"zero", 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDegrees(tt.v); got != tt.want {
				t.Errorf("FormatDegrees(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestDailyRecord_JSONShape(t *testing.T) {
	body := `{
		"lat": 40, "lon": -74, "tz": "+00:00", "date": "2024-01-01", "units": "standard",
		"cloud_cover": {"afternoon": 75},
		"humidity": {"afternoon": 63},
		"precipitation": {"total": 1.5},
		"pressure": {"afternoon": 1016},
		"temperature": {"min": 270.1, "max": 278.4, "afternoon": 277.9, "night": 271.2, "evening": 274.3, "morning": 270.5},
		"wind": {"max": {"speed": 7.2, "direction": 250}}
	}`

	var rec DailyRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		t.Fatalf("Failed to unmarshal record: %v", err)
	}

	if rec.Temperature.Max != 278.4 {
		t.Errorf("Temperature.Max = %v, want 278.4", rec.Temperature.Max)
	}
	if rec.Wind.Max.Direction != 250 {
		t.Errorf("Wind.Max.Direction = %v, want 250", rec.Wind.Max.Direction)
	}
	if rec.CloudCover.Afternoon != 75 {
		t.Errorf("CloudCover.Afternoon = %v, want 75", rec.CloudCover.Afternoon)
	}
	if rec.Precipitation.Total != 1.5 {
		t.Errorf("Precipitation.Total = %v, want 1.5", rec.Precipitation.Total)
	}

	rec.ID = "abc"
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Failed to marshal record: %v", err)
	}
	var back DailyRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Failed to unmarshal record: %v", err)
	}
	if back != rec {
		t.Errorf("round trip mismatch: got %+v, want %+v", back, rec)
	}
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("disk full")

	storageErr := error(&StorageError{Op: "put", Key: "k", Err: cause})
	if !errors.Is(storageErr, cause) {
		t.Error("StorageError should unwrap to its cause")
	}
	if storageErr.Error() != "storage put k failed: disk full" {
		t.Errorf("StorageError.Error() = %q", storageErr.Error())
	}

	remoteErr := error(&RemoteServiceError{StatusCode: 429, Body: "slow down"})
	var target *RemoteServiceError
	if !errors.As(remoteErr, &target) || target.StatusCode != 429 {
		t.Errorf("errors.As(RemoteServiceError) failed, got %v", target)
	}

	noResponse := &RemoteServiceError{Err: cause}
	if noResponse.Error() != "remote service error: disk full" {
		t.Errorf("RemoteServiceError.Error() = %q", noResponse.Error())
	}

	validation := &ValidationError{Field: "latitude", Message: "must be finite"}
	if validation.Error() != "invalid latitude: must be finite" {
		t.Errorf("ValidationError.Error() = %q", validation.Error())
	}

	cfgErr := error(&ConfigurationError{Setting: "openweather.api_key", Err: cause})
	if !errors.Is(cfgErr, cause) {
		t.Error("ConfigurationError should unwrap to its cause")
	}
}
