package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"weathercache/internal/config"
	"weathercache/internal/models"
)

func memoryConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Storage.Driver = "memory"
	cfg.OpenWeather.APIKey = "test-key"
	return cfg
}

func TestInit_WithSource(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"lat":1,"lon":2,"date":"2024-01-01"}`))
	}))
	defer upstream.Close()

	cfg := memoryConfig()
	cfg.OpenWeather.BaseURL = upstream.URL

	b, err := Init(context.Background(), cfg, true)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()

	if b.Redis != nil || b.Publisher != nil {
		t.Error("events are disabled; no Redis client should be created")
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := b.Cache.FetchRange(context.Background(), models.Coordinate{Latitude: 1, Longitude: 2}, start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("FetchRange() error = %v", err)
	}
	if len(res.Records) != 1 {
		t.Errorf("FetchRange() returned %d records, want 1", len(res.Records))
	}
}

func TestInit_MissingAPIKey(t *testing.T) {
	cfg := memoryConfig()
	cfg.OpenWeather.APIKey = ""

	_, err := Init(context.Background(), cfg, true)
	var configErr *models.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("Init() error = %v, want ConfigurationError", err)
	}
}

func TestInit_CacheOnlyNeedsNoKey(t *testing.T) {
	cfg := memoryConfig()
	cfg.OpenWeather.APIKey = ""

	b, err := Init(context.Background(), cfg, false)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	coord := models.Coordinate{Latitude: 1, Longitude: 2}

	if _, err := b.Cache.ReadCachedRange(context.Background(), coord, start, start.AddDate(0, 0, 2)); err != nil {
		t.Errorf("ReadCachedRange() error = %v", err)
	}

	_, err = b.Cache.FetchRange(context.Background(), coord, start, start.AddDate(0, 0, 2))
	var configErr *models.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Errorf("FetchRange() error = %v, want ConfigurationError", err)
	}
}

func TestInit_EventsEnabled(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.Events.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	b, err := Init(context.Background(), cfg, false)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer b.Close()

	if b.Redis == nil || b.Publisher == nil {
		t.Fatal("events are enabled; expected a Redis client and publisher")
	}
}

func TestInit_EventsUnreachable(t *testing.T) {
	cfg := memoryConfig()
	cfg.Events.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"

	if _, err := Init(context.Background(), cfg, false); err == nil {
		t.Error("Init() should fail when Redis is unreachable")
	}
}

func TestInit_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Driver = "leveldb"

	_, err := Init(context.Background(), cfg, false)
	var configErr *models.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Errorf("Init() error = %v, want ConfigurationError", err)
	}
}
