package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"weathercache/internal/config"
	"weathercache/internal/events"
	"weathercache/internal/store"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the yaml config file; empty reads settings from the environment only")
	driver := flag.String("driver", "mysql", "store the mirror writes to (sqlite, redis, mysql, memory)")
	sqlitePath := flag.String("sqlite-path", "./data/mirror.db", "database file when -driver=sqlite")
	consumer := flag.String("consumer", "consumer-1", "consumer name within the group")
	flag.Parse()

	s, err := loadSettings(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts := mirrorOptions(s.store, *driver, *sqlitePath)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dst, err := store.Open(ctx, opts)
	if err != nil {
		log.Fatalf("Failed to open mirror store: %v", err)
	}
	defer dst.Close()

	redisClient := redis.NewClient(s.redis.ClientOptions())
	defer redisClient.Close()

	c := events.NewConsumer(redisClient, s.redis.Stream, events.ConsumerOptions{
		Group:    s.group,
		Consumer: *consumer,
		Count:    10,
		Block:    5 * time.Second,
	})
	if err := c.EnsureGroup(ctx); err != nil {
		log.Fatalf("Failed to create consumer group: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down mirror...")
		cancel()
	}()

	log.Printf("Mirroring stream %s into %s. Press Ctrl+C to stop...", s.redis.Stream, opts.Driver)
	if err := c.Run(ctx, events.MirrorTo(dst)); err != nil {
		log.Printf("Mirror stopped with error: %v", err)
	}
	log.Println("Mirror stopped")
}

type settings struct {
	store store.Options
	redis config.RedisConfig
	group string
}

// loadSettings reads the config file, or only the environment when
// configPath is empty
func loadSettings(configPath string) (settings, error) {
	if configPath == "" {
		defaults := config.Defaults()
		opts := store.OptionsFromConfig(defaults)
		opts.MySQLDSN = config.GetDatabaseDSN(opts.MySQLDSN)
		redisCfg := config.GetRedisConfig()
		opts.Redis = redisCfg
		return settings{store: opts, redis: redisCfg, group: defaults.Events.Group}, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return settings{}, err
	}
	return settings{store: store.OptionsFromConfig(cfg), redis: cfg.Redis, group: cfg.Events.Group}, nil
}

// mirrorOptions points the configured store options at the mirror backend
func mirrorOptions(opts store.Options, driver, sqlitePath string) store.Options {
	opts.Driver = driver
	if driver == "sqlite" {
		opts.SQLitePath = sqlitePath
	}
	return opts
}
