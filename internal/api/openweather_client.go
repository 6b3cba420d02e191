package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"weathercache/internal/models"
)

const defaultBaseURL = "https://api.openweathermap.org/data/3.0/onecall/day_summary"

// OpenWeatherClient fetches daily aggregations from the One Call 3.0 day_summary endpoint
type OpenWeatherClient struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	apiKey  string
	baseURL string
	units   string
	timeout time.Duration
}

type Options struct {
	APIKey  string
	BaseURL string
	// Units is passed through as the units query parameter when set (standard, metric, imperial)
	Units string
	// Timeout bounds each FetchDay call. Zero means no extra bound beyond the caller's context.
	Timeout         time.Duration
	BreakerFailures uint32
	HTTPClient      *http.Client
}

// NewOpenWeatherClient creates a client. A missing API key is a configuration error.
func NewOpenWeatherClient(opts Options) (*OpenWeatherClient, error) {
	if opts.APIKey == "" {
		return nil, &models.ConfigurationError{Setting: "openweather.api_key", Err: errors.New("missing OpenWeather API key")}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	return &OpenWeatherClient{
		client:  opts.HTTPClient,
		breaker: newBreaker("openweather", opts.BreakerFailures),
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		units:   opts.Units,
		timeout: opts.Timeout,
	}, nil
}

// BuildURL builds the day_summary request for one coordinate and the calendar
// date of day in its own location.
func (c *OpenWeatherClient) BuildURL(coord models.Coordinate, day time.Time) string {
	u := fmt.Sprintf("%s?lat=%s&lon=%s&date=%s&appid=%s",
		c.baseURL,
		models.FormatDegrees(coord.Latitude),
		models.FormatDegrees(coord.Longitude),
		day.Format("2006-01-02"),
		url.QueryEscape(c.apiKey))

	if c.units != "" {
		u += "&units=" + url.QueryEscape(c.units)
	}
	return u
}

// FetchDay requests exactly one day for one coordinate and stamps the result with a fresh id
func (c *OpenWeatherClient) FetchDay(ctx context.Context, coord models.Coordinate, day time.Time) (*models.DailyRecord, error) {
	resp, err := doGet(ctx, c.client, c.breaker, c.timeout, c.BuildURL(coord, day))
	if err != nil {
		return nil, err
	}

	var record models.DailyRecord
	if err := json.Unmarshal(resp.Body, &record); err != nil {
		return nil, &models.RemoteServiceError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	record.ID = uuid.NewString()

	return &record, nil
}
