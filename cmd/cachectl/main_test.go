package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"weathercache/internal/bootstrap"
	"weathercache/internal/config"
	"weathercache/internal/models"
	"weathercache/internal/rangecache"
	"weathercache/internal/store"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSource) FetchDay(ctx context.Context, coord models.Coordinate, day time.Time) (*models.DailyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &models.DailyRecord{
		ID:       day.Format("id-2006-01-02"),
		Lat:      coord.Latitude,
		Lon:      coord.Longitude,
		Date:     day.Format("2006-01-02"),
		Humidity: models.Afternoon{Afternoon: float64(50 + day.Day())},
	}, nil
}

const testConfig = `cache:
  time_zone: "UTC"
storage:
  driver: "memory"
warm:
  days: 2
locations:
  - name: "Null Island"
    latitude: 0
    longitude: 0
`

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cachectl")
	if err != nil {
		panic(err)
	}
	configPath = filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(testConfig), 0o644); err != nil {
		panic(err)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// keepOpen lets several commands share one memory store
type keepOpen struct {
	store.Store
}

func (keepOpen) Close() error { return nil }

func useTestBundle(t *testing.T) (*fakeSource, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	source := &fakeSource{}

	orig := openBundle
	openBundle = func(ctx context.Context, withSource bool) (*bootstrap.Bundle, error) {
		if _, err := config.Load(configPath); err != nil {
			return nil, err
		}
		var src rangecache.Source
		if withSource {
			src = source
		}
		cache, err := rangecache.New(keepOpen{mem}, src, rangecache.Options{})
		if err != nil {
			return nil, err
		}
		return &bootstrap.Bundle{Store: keepOpen{mem}, Cache: cache}, nil
	}
	t.Cleanup(func() { openBundle = orig })
	return source, mem
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func rangeArgs(cmd string) []string {
	return []string{cmd, "--lat", "40", "--lon", "-74", "--start", "2024-01-01", "--end", "2024-01-04"}
}

func TestCommands_FetchReadDelete(t *testing.T) {
	source, mem := useTestBundle(t)

	out, err := execute(t, rangeArgs("fetch")...)
	if err != nil {
		t.Fatalf("fetch error = %v", err)
	}
	var res rangecache.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("fetch output is not a result: %v\n%s", err, out)
	}
	if len(res.Records) != 3 || source.calls != 3 || mem.Len() != 3 {
		t.Fatalf("fetch: records = %d, remote calls = %d, cached = %d; want 3 each", len(res.Records), source.calls, mem.Len())
	}

	out, err = execute(t, rangeArgs("read")...)
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	var records []models.DailyRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(records) != 3 || records[0].Date != "2024-01-01" {
		t.Errorf("read records = %+v", records)
	}
	if source.calls != 3 {
		t.Errorf("read contacted the source; calls = %d", source.calls)
	}

	out, err = execute(t, rangeArgs("stats")...)
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if !strings.Contains(out, `"humidity"`) {
		t.Errorf("stats output = %s", out)
	}

	out, err = execute(t, rangeArgs("delete")...)
	if err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if !strings.Contains(out, "deleted 3 cached days") {
		t.Errorf("delete output = %q", out)
	}
	if mem.Len() != 0 {
		t.Errorf("store holds %d records after delete", mem.Len())
	}
}

func TestCommands_InvalidDate(t *testing.T) {
	useTestBundle(t)

	_, err := execute(t, "read", "--lat", "1", "--lon", "1", "--start", "last week", "--end", "2024-01-04")
	if err == nil || !strings.Contains(err.Error(), "start") {
		t.Errorf("error = %v, want a start validation error", err)
	}
}

func TestParseDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-03-10", time.Date(2024, 3, 10, 0, 0, 0, 0, ny), false},
		{"2024-03-10T12:00:00Z", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), false},
		{"1704067200000", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"tomorrow", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in, ny)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestReadLocations(t *testing.T) {
	csv := "name,latitude,longitude\n" +
		"New York,40.7128,-74.0060\n" +
		"Broken\n" +
		"Nowhere,north,east\n" +
		"Null Island, 0, 0\n"

	locations, skipped, err := readLocations(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("readLocations() error = %v", err)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(locations) != 2 {
		t.Fatalf("read %d locations, want 2", len(locations))
	}
	if locations[0].Name != "New York" || locations[0].Latitude != 40.7128 {
		t.Errorf("locations[0] = %+v", locations[0])
	}
	if locations[1].Name != "Null Island" || locations[1].Coordinate() != (models.Coordinate{}) {
		t.Errorf("locations[1] = %+v", locations[1])
	}
}

func TestReadLocations_Empty(t *testing.T) {
	if _, _, err := readLocations(strings.NewReader("")); err == nil {
		t.Error("readLocations() should fail without a header")
	}
}

func TestCommands_Warm(t *testing.T) {
	source, mem := useTestBundle(t)

	path := filepath.Join(t.TempDir(), "locations.csv")
	if err := os.WriteFile(path, []byte("name,latitude,longitude\nNew York,40.7128,-74.0060\nLondon,51.5072,-0.1276\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out, err := execute(t, "warm", "--file", path, "--days", "2")
	if err != nil {
		t.Fatalf("warm error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "New York:") || !strings.Contains(out, "London:") {
		t.Errorf("warm output = %q", out)
	}
	if source.calls == 0 || mem.Len() != source.calls {
		t.Errorf("remote calls = %d, cached = %d", source.calls, mem.Len())
	}
}

func TestCommands_WarmConfiguredLocations(t *testing.T) {
	source, mem := useTestBundle(t)

	out, err := execute(t, "warm", "--file=", "--days=0")
	if err != nil {
		t.Fatalf("warm error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Null Island: 2 days cached") {
		t.Errorf("warm output = %q", out)
	}
	if source.calls != 2 || mem.Len() != 2 {
		t.Errorf("remote calls = %d, cached = %d; want 2 each", source.calls, mem.Len())
	}
}
