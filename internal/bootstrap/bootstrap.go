package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"

	"weathercache/internal/api"
	"weathercache/internal/config"
	"weathercache/internal/events"
	"weathercache/internal/rangecache"
	"weathercache/internal/store"
)

// Bundle holds the long-lived pieces every binary shares
type Bundle struct {
	Store     store.Store
	Cache     *rangecache.Cache
	Redis     *redis.Client
	Publisher *events.Publisher
}

// Init opens the configured store and builds the range cache. When
// withSource is false the cache has no remote client and serves cache-only
// reads and deletes, so no API key is required.
func Init(ctx context.Context, cfg *config.Config, withSource bool) (*Bundle, error) {
	var source rangecache.Source
	if withSource {
		client, err := api.NewOpenWeatherClient(api.Options{
			APIKey:          cfg.OpenWeather.APIKey,
			BaseURL:         cfg.OpenWeather.BaseURL,
			Units:           cfg.OpenWeather.Units,
			Timeout:         cfg.OpenWeather.Timeout,
			BreakerFailures: cfg.OpenWeather.BreakerFailures,
		})
		if err != nil {
			return nil, err
		}
		source = client
	}

	b := &Bundle{}

	s, err := store.Open(ctx, store.OptionsFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	b.Store = s

	var publisher rangecache.Publisher
	if cfg.Events.Enabled {
		b.Redis = redis.NewClient(cfg.Redis.ClientOptions())
		if err := b.Redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr, err)
		}
		b.Publisher = events.NewPublisher(b.Redis, cfg.Redis.Stream)
		publisher = b.Publisher
		log.Printf("Publishing fetched days to stream %s", cfg.Redis.Stream)
	}

	cache, err := rangecache.New(b.Store, source, rangecache.Options{
		Location:  cfg.Location(),
		SyncHour:  cfg.Cache.SyncHour,
		Strict:    cfg.Cache.Strict,
		MaxDays:   cfg.Cache.MaxDays,
		Publisher: publisher,
	})
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Cache = cache

	return b, nil
}

// Close releases the store and the Redis client
func (b *Bundle) Close() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			log.Printf("Store close error: %v", err)
		}
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			log.Printf("Redis close error: %v", err)
		}
	}
}
