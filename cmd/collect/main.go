package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"weathercache/internal/bootstrap"
	"weathercache/internal/config"
	"weathercache/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the yaml config file")
	days := flag.Int("days", 0, "trailing days to fetch per location (defaults to warm.days)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *days <= 0 {
		*days = cfg.Warm.Days
	}
	if len(cfg.Locations) == 0 {
		log.Fatal("No locations configured")
	}

	bundle, err := bootstrap.Init(context.Background(), cfg, true)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer bundle.Close()

	log.Printf("Collecting %d days for %d locations", *days, len(cfg.Locations))
	warmer := scheduler.NewWarmer(bundle.Cache, cfg.Locations, 24*time.Hour, *days)
	failed := summarize(os.Stdout, warmer.RunOnce(context.Background()))

	log.Printf("Data collection completed. Exiting")
	if failed > 0 {
		bundle.Close()
		os.Exit(1)
	}
}

// summarize prints one line per location and returns how many failed
func summarize(w io.Writer, reports []scheduler.Report) int {
	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%-20s FAILED  %v\n", r.Location, r.Err)
			continue
		}
		fmt.Fprintf(w, "%-20s %3d days  %3d skipped\n", r.Location, r.Records, r.Skipped)
	}
	return failed
}
