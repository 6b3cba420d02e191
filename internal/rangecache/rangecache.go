package rangecache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"weathercache/internal/metrics"
	"weathercache/internal/models"
	"weathercache/internal/store"
)

// Mode selects whether a walk may contact the remote source for missing days
type Mode int

const (
	ModeFetch Mode = iota
	ModeCacheOnly
)

func (m Mode) String() string {
	switch m {
	case ModeFetch:
		return "fetch"
	case ModeCacheOnly:
		return "cache_only"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the progress of a single range invocation
type State int

const (
	StateNormalizing State = iota
	StateIterating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNormalizing:
		return "NORMALIZING"
	case StateIterating:
		return "ITERATING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source fetches one day for one coordinate from the upstream provider
type Source interface {
	FetchDay(ctx context.Context, coord models.Coordinate, day time.Time) (*models.DailyRecord, error)
}

// Publisher is notified of every newly fetched and stored day
type Publisher interface {
	Publish(ctx context.Context, key string, coord models.Coordinate, day time.Time, record *models.DailyRecord) error
}

type Options struct {
	// Location anchors day buckets. Defaults to UTC.
	Location *time.Location
	// SyncHour is the local hour (0-23) each day bucket starts at
	SyncHour int
	// Strict aborts a fetch on the first remote failure instead of skipping the day
	Strict bool
	// MaxDays caps how many days one range may cover. Zero means no limit.
	MaxDays   int
	Publisher Publisher
}

// Result is the ordered outcome of a range walk. Skipped lists the days a
// fetch could not fill; it is always empty in cache-only mode.
type Result struct {
	Records []models.DailyRecord `json:"records"`
	Skipped []models.SkippedDay  `json:"skipped"`
}

// Cache walks day ranges over a Store, filling gaps from a Source
type Cache struct {
	store     store.Store
	source    Source
	publisher Publisher
	loc       *time.Location
	syncHour  int
	strict    bool
	maxDays   int
}

// New builds a Cache. source may be nil, in which case only cache-only reads
// and deletes are available.
func New(s store.Store, source Source, opts Options) (*Cache, error) {
	if s == nil {
		return nil, &models.ConfigurationError{Setting: "storage", Err: errors.New("store is required")}
	}
	if opts.SyncHour < 0 || opts.SyncHour > 23 {
		return nil, &models.ConfigurationError{Setting: "cache.sync_hour", Err: fmt.Errorf("must be between 0 and 23, got %d", opts.SyncHour)}
	}
	if opts.MaxDays < 0 {
		return nil, &models.ConfigurationError{Setting: "cache.max_days", Err: fmt.Errorf("must not be negative, got %d", opts.MaxDays)}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Cache{
		store:     s,
		source:    source,
		publisher: opts.Publisher,
		loc:       opts.Location,
		syncHour:  opts.SyncHour,
		strict:    opts.Strict,
		maxDays:   opts.MaxDays,
	}, nil
}

// Location returns the zone day buckets are aligned in
func (c *Cache) Location() *time.Location { return c.loc }

// FetchRange returns every day in the range, fetching and storing the ones
// missing from the cache
func (c *Cache) FetchRange(ctx context.Context, coord models.Coordinate, start, end time.Time) (*Result, error) {
	return c.Walk(ctx, ModeFetch, coord, start, end)
}

// ReadCachedRange returns the cached days in the range without contacting the source
func (c *Cache) ReadCachedRange(ctx context.Context, coord models.Coordinate, start, end time.Time) (*Result, error) {
	return c.Walk(ctx, ModeCacheOnly, coord, start, end)
}

// Days validates the input and returns the aligned instants the range covers,
// in chronological order. start and end may be given in either order.
func (c *Cache) Days(coord models.Coordinate, start, end time.Time) ([]time.Time, error) {
	if err := validate(coord, start, end); err != nil {
		return nil, err
	}

	first := bucketDate(start, c.loc, c.syncHour)
	last := bucketDate(end, c.loc, c.syncHour)
	if last.Before(first) {
		first, last = last, first
	}

	span := DaySpan(first, last)
	if c.maxDays > 0 && span > c.maxDays {
		return nil, &models.ValidationError{Field: "range", Message: fmt.Sprintf("covers %d days, at most %d allowed", span, c.maxDays)}
	}

	y, m, d := first.Date()
	days := make([]time.Time, 0, span)
	for i := 0; i < span; i++ {
		day := BucketStart(y, m, d+i, c.syncHour, c.loc)
		// a civil date erased by a zone change shares the next day's bucket
		if n := len(days); n > 0 && !day.After(days[n-1]) {
			continue
		}
		days = append(days, day)
	}
	return days, nil
}

// Walk visits each day of the range in order. In ModeFetch a missing day is
// fetched and stored; a failed fetch is skipped unless the cache is strict.
// Storage failures always abort.
func (c *Cache) Walk(ctx context.Context, mode Mode, coord models.Coordinate, start, end time.Time) (*Result, error) {
	state := StateNormalizing

	if mode == ModeFetch && c.source == nil {
		return c.fail(mode, state, coord, &models.ConfigurationError{Setting: "openweather.api_key", Err: errors.New("no remote source configured")})
	}

	days, err := c.Days(coord, start, end)
	if err != nil {
		return c.fail(mode, state, coord, err)
	}

	state = StateIterating
	result := &Result{
		Records: make([]models.DailyRecord, 0, len(days)),
		Skipped: []models.SkippedDay{},
	}

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return c.fail(mode, state, coord, err)
		}

		key := CacheKey(coord, day)
		record, found, err := c.store.Get(ctx, key)
		if err != nil {
			return c.fail(mode, state, coord, err)
		}
		if found {
			metrics.RecordCacheLookup(mode.String(), "hit")
			result.Records = append(result.Records, *record)
			continue
		}

		metrics.RecordCacheLookup(mode.String(), "miss")
		if mode == ModeCacheOnly {
			continue
		}

		record, err = c.source.FetchDay(ctx, coord, day)
		if err != nil {
			remoteErr := asRemoteError(err)
			if c.strict {
				return c.fail(mode, state, coord, remoteErr)
			}
			log.Printf("Skipping %s for %s: %v", day.Format("2006-01-02"), coord, remoteErr)
			metrics.RecordCacheLookup(mode.String(), "skipped")
			result.Skipped = append(result.Skipped, models.SkippedDay{
				Day:        day,
				Key:        key,
				StatusCode: remoteErr.StatusCode,
				Reason:     remoteErr.Error(),
			})
			continue
		}

		if err := c.store.Put(ctx, key, record); err != nil {
			return c.fail(mode, state, coord, err)
		}
		result.Records = append(result.Records, *record)
		c.publish(ctx, key, coord, day, record)
	}

	state = StateDone
	metrics.RecordRangeWalk(mode.String(), state.String())
	return result, nil
}

// DeleteRange removes every cached day in the range and reports how many
// keys existed. It never contacts the source.
func (c *Cache) DeleteRange(ctx context.Context, coord models.Coordinate, start, end time.Time) (int, error) {
	days, err := c.Days(coord, start, end)
	if err != nil {
		metrics.RecordRangeWalk("delete", StateFailed.String())
		return 0, err
	}

	deleted := 0
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			metrics.RecordRangeWalk("delete", StateFailed.String())
			return deleted, err
		}

		existed, err := c.store.Delete(ctx, CacheKey(coord, day))
		if err != nil {
			log.Printf("Range delete for %s failed after %d days: %v", coord, deleted, err)
			metrics.RecordRangeWalk("delete", StateFailed.String())
			return deleted, err
		}
		if existed {
			deleted++
		}
	}

	metrics.RecordRangeWalk("delete", StateDone.String())
	return deleted, nil
}

func (c *Cache) fail(mode Mode, state State, coord models.Coordinate, err error) (*Result, error) {
	log.Printf("Range %s for %s failed while %s: %v", mode, coord, state, err)
	metrics.RecordRangeWalk(mode.String(), StateFailed.String())
	return nil, err
}

func (c *Cache) publish(ctx context.Context, key string, coord models.Coordinate, day time.Time, record *models.DailyRecord) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, key, coord, day, record); err != nil {
		log.Printf("Warning: failed to publish %s: %v", key, err)
	}
}

func asRemoteError(err error) *models.RemoteServiceError {
	var remoteErr *models.RemoteServiceError
	if errors.As(err, &remoteErr) {
		return remoteErr
	}
	return &models.RemoteServiceError{Err: err}
}

func validate(coord models.Coordinate, start, end time.Time) error {
	if math.IsNaN(coord.Latitude) || math.IsInf(coord.Latitude, 0) || coord.Latitude < -90 || coord.Latitude > 90 {
		return &models.ValidationError{Field: "latitude", Message: "must be a finite number between -90 and 90"}
	}
	if math.IsNaN(coord.Longitude) || math.IsInf(coord.Longitude, 0) || coord.Longitude < -180 || coord.Longitude > 180 {
		return &models.ValidationError{Field: "longitude", Message: "must be a finite number between -180 and 180"}
	}
	if start.IsZero() {
		return &models.ValidationError{Field: "start", Message: "is required"}
	}
	if end.IsZero() {
		return &models.ValidationError{Field: "end", Message: "is required"}
	}
	return nil
}
