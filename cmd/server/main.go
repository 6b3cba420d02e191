package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"

	"weathercache/internal/bootstrap"
	"weathercache/internal/config"
	"weathercache/internal/scheduler"
	"weathercache/internal/server"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	bundle, err := bootstrap.Init(context.Background(), cfg, true)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	var warmer *scheduler.Warmer
	if cfg.Warm.Enabled {
		warmer = scheduler.NewWarmer(bundle.Cache, cfg.Locations, cfg.Warm.Interval, cfg.Warm.Days)
		if err := warmer.Start(); err != nil {
			log.Fatalf("Failed to start cache warmer: %v", err)
		}
		log.Printf("Warming %d locations every %s", len(cfg.Locations), cfg.Warm.Interval)
	}

	srv := server.NewServer(bundle.Cache, cfg.Server.AllowedOrigins).NewHTTPServer(cfg.Server.Addr)
	done := bootstrap.GracefulShutdown(srv, warmer, bundle)

	log.Printf("Starting server on %s (store: %s, zone: %s, sync hour: %d)",
		cfg.Server.Addr, cfg.Storage.Driver, cfg.Cache.TimeZone, cfg.Cache.SyncHour)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
	<-done
	log.Println("Server stopped")
}
