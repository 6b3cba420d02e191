package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"weathercache/internal/config"
	"weathercache/internal/models"
)

func sampleRecord(id string) *models.DailyRecord {
	return &models.DailyRecord{
		ID:            id,
		Lat:           40,
		Lon:           -74,
		TZ:            "+00:00",
		Date:          "2024-01-01",
		Units:         "standard",
		CloudCover:    models.Afternoon{Afternoon: 75},
		Humidity:      models.Afternoon{Afternoon: 60},
		Precipitation: models.Precipitation{Total: 1.2},
		Pressure:      models.Afternoon{Afternoon: 1015},
		Temperature:   models.Temperature{Min: 270.1, Max: 278.4, Afternoon: 277.2, Night: 271.5, Evening: 274.3, Morning: 272},
		Wind:          models.Wind{Max: models.WindMax{Speed: 8.2, Direction: 250}},
	}
}

// exerciseStore runs the behaviour every backend must share
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := "day-summary-40--74-1704067200000"

	if _, found, err := s.Get(ctx, key); err != nil || found {
		t.Fatalf("Get(missing) = found %v, err %v; want not found, nil", found, err)
	}

	want := sampleRecord("abc")
	if err := s.Put(ctx, key, want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, found, err := s.Get(ctx, key)
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v; want found", found, err)
	}
	if *got != *want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	replacement := sampleRecord("def")
	if err := s.Put(ctx, key, replacement); err != nil {
		t.Fatalf("Put(overwrite) error = %v", err)
	}
	if got, _, _ := s.Get(ctx, key); got == nil || got.ID != "def" {
		t.Errorf("Get() after overwrite = %+v, want id def", got)
	}

	existed, err := s.Delete(ctx, key)
	if err != nil || !existed {
		t.Fatalf("Delete() = %v, %v; want true, nil", existed, err)
	}
	existed, err = s.Delete(ctx, key)
	if err != nil || existed {
		t.Fatalf("Delete(missing) = %v, %v; want false, nil", existed, err)
	}
	if _, found, _ := s.Get(ctx, key); found {
		t.Error("Get() after Delete should report not found")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	exerciseStore(t, s)
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := s.Put(ctx, "k", sampleRecord("persisted")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, found, err := reopened.Get(ctx, "k")
	if err != nil || !found || got.ID != "persisted" {
		t.Errorf("Get() after reopen = %+v, %v, %v", got, found, err)
	}
}

func TestSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), "")

	var cfgErr *models.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("NewSQLiteStore(\"\") error = %v, want ConfigurationError", err)
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := DialRedisStore(context.Background(), config.RedisConfig{Addr: mr.Addr()}, "")
	if err != nil {
		t.Fatalf("DialRedisStore() error = %v", err)
	}
	exerciseStore(t, s)
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := DialRedisStore(ctx, config.RedisConfig{Addr: mr.Addr()}, "wc:")
	if err != nil {
		t.Fatalf("DialRedisStore() error = %v", err)
	}
	defer s.Close()

	if err := s.Put(ctx, "day-summary-1-2-0", sampleRecord("x")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !mr.Exists("wc:day-summary-1-2-0") {
		t.Error("expected prefixed key in redis")
	}
	if ttl := mr.TTL("wc:day-summary-1-2-0"); ttl != 0 {
		t.Errorf("TTL = %v, want none", ttl)
	}
}

func TestRedisStore_StorageError(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := DialRedisStore(ctx, config.RedisConfig{Addr: mr.Addr()}, "")
	if err != nil {
		t.Fatalf("DialRedisStore() error = %v", err)
	}
	defer s.Close()

	mr.SetError("LOADING dataset in memory")
	_, found, err := s.Get(ctx, "k")

	var storageErr *models.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Get() error = %v, want StorageError", err)
	}
	if found {
		t.Error("Get() should not report found on failure")
	}
	if storageErr.Op != "get" || storageErr.Key != "k" {
		t.Errorf("StorageError = %+v", storageErr)
	}
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := DialRedisStore(ctx, config.RedisConfig{Addr: mr.Addr()}, "")
	if err != nil {
		t.Fatalf("DialRedisStore() error = %v", err)
	}
	defer s.Close()

	mr.Set("k", "{not json")
	_, _, err = s.Get(ctx, "k")

	var storageErr *models.StorageError
	if !errors.As(err, &storageErr) || storageErr.Op != "decode" {
		t.Errorf("Get() error = %v, want decode StorageError", err)
	}
}

func TestDialRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := DialRedisStore(context.Background(), config.RedisConfig{Addr: addr}, "")

	var storageErr *models.StorageError
	if !errors.As(err, &storageErr) {
		t.Errorf("DialRedisStore() error = %v, want StorageError", err)
	}
}

func TestMemoryStore_ClosedFails(t *testing.T) {
	s := NewMemoryStore()
	s.Close()

	err := s.Put(context.Background(), "k", sampleRecord("x"))

	var storageErr *models.StorageError
	if !errors.As(err, &storageErr) {
		t.Errorf("Put() after Close error = %v, want StorageError", err)
	}
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "memory", opts: Options{Driver: "memory"}},
		{name: "sqlite", opts: Options{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "open.db")}},
		{name: "redis", opts: Options{Driver: "redis", Redis: config.RedisConfig{Addr: mr.Addr()}}},
		{name: "unknown", opts: Options{Driver: "bolt"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.opts)
			if tt.wantErr {
				var cfgErr *models.ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("Open() error = %v, want ConfigurationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer s.Close()

			if err := s.Put(ctx, "k", sampleRecord("x")); err != nil {
				t.Errorf("Put() error = %v", err)
			}
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Driver = "redis"
	cfg.Storage.KeyPrefix = "p:"
	cfg.Redis.Addr = "cache:6379"

	opts := OptionsFromConfig(cfg)
	if opts.Driver != "redis" || opts.KeyPrefix != "p:" || opts.Redis.Addr != "cache:6379" {
		t.Errorf("OptionsFromConfig() = %+v", opts)
	}
	if opts.SQLitePath != cfg.Storage.SQLitePath {
		t.Errorf("SQLitePath = %v, want %v", opts.SQLitePath, cfg.Storage.SQLitePath)
	}
}
