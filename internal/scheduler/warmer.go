package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"weathercache/internal/config"
	"weathercache/internal/models"
	"weathercache/internal/rangecache"
)

// RangeFetcher is the part of the range cache the warmer drives
type RangeFetcher interface {
	FetchRange(ctx context.Context, coord models.Coordinate, start, end time.Time) (*rangecache.Result, error)
}

// Report is the outcome of warming one location
type Report struct {
	Location string
	Records  int
	Skipped  int
	Err      error
}

// Warmer keeps the trailing days of every configured location cached
type Warmer struct {
	scheduler *gocron.Scheduler
	cache     RangeFetcher
	locations []config.Location
	interval  time.Duration
	days      int
	timeout   time.Duration
	now       func() time.Time

	// ctx is canceled by Stop to abort walks still in flight
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWarmer(cache RangeFetcher, locations []config.Location, interval time.Duration, days int) *Warmer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Warmer{
		scheduler: gocron.NewScheduler(time.UTC),
		cache:     cache,
		locations: locations,
		interval:  interval,
		days:      days,
		timeout:   2 * time.Minute,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// RunOnce fetches the trailing window for every location concurrently
func (w *Warmer) RunOnce(ctx context.Context) []Report {
	end := w.now()
	start := end.AddDate(0, 0, -w.days)

	reports := make([]Report, len(w.locations))
	var wg sync.WaitGroup
	for i, loc := range w.locations {
		wg.Add(1)
		go func(i int, loc config.Location) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, w.timeout)
			defer cancel()

			report := Report{Location: loc.Name}
			res, err := w.cache.FetchRange(ctx, loc.Coordinate(), start, end)
			if err != nil {
				log.Printf("scheduler: warm failed for %s: %v", loc.Name, err)
				report.Err = err
			} else {
				report.Records = len(res.Records)
				report.Skipped = len(res.Skipped)
				log.Printf("scheduler: %s has %d cached days (%d skipped)", loc.Name, report.Records, report.Skipped)
			}
			reports[i] = report
		}(i, loc)
	}
	wg.Wait()

	return reports
}

// Start schedules RunOnce every interval; the first run happens immediately
func (w *Warmer) Start() error {
	if len(w.locations) == 0 {
		log.Println("scheduler: no locations configured; nothing to warm")
		return nil
	}

	interval := w.interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	_, err := w.scheduler.Every(interval).SingletonMode().Do(func() {
		log.Println("scheduler: running cache warm job")
		w.RunOnce(w.ctx)
		log.Println("scheduler: completed cache warm job")
	})
	if err != nil {
		return err
	}

	w.scheduler.StartAsync()
	return nil
}

// Stop cancels running warm jobs and stops the scheduler
func (w *Warmer) Stop() {
	w.cancel()
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}
