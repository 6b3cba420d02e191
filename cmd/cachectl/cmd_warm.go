package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"weathercache/internal/config"
	"weathercache/internal/scheduler"
)

var (
	warmFile string
	warmDays int
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Fetch the trailing days for a list of locations",
	Long: `warm fetches the trailing --days for each configured location. With
--file it reads the locations from a CSV file with a header row and
name,latitude,longitude columns instead.`,
	RunE: runWarm,
}

func init() {
	warmCmd.Flags().StringVar(&warmFile, "file", "", "CSV file of locations (defaults to the configured locations)")
	warmCmd.Flags().IntVar(&warmDays, "days", 0, "number of trailing days to fetch (defaults to warm.days)")
	rootCmd.AddCommand(warmCmd)
}

func runWarm(cmd *cobra.Command, args []string) error {
	b, err := openBundle(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer b.Close()

	cfg := config.Get()
	locations := cfg.Locations
	if warmFile != "" {
		file, err := os.Open(warmFile)
		if err != nil {
			return fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer file.Close()

		var skipped int
		locations, skipped, err = readLocations(file)
		if err != nil {
			return err
		}
		log.Printf("Read %d locations from %s (%d skipped)", len(locations), warmFile, skipped)
	}
	if len(locations) == 0 {
		return errors.New("no locations to warm")
	}

	days := warmDays
	if days <= 0 {
		days = cfg.Warm.Days
	}

	warmer := scheduler.NewWarmer(b.Cache, locations, 24*time.Hour, days)
	failed := 0
	for _, r := range warmer.RunOnce(cmd.Context()) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", r.Location, r.Err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d days cached, %d skipped\n", r.Location, r.Records, r.Skipped)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d locations failed", failed, len(locations))
	}
	return nil
}

// readLocations parses name,latitude,longitude rows after a header row.
// Rows that are too short or carry unparsable coordinates are skipped.
func readLocations(r io.Reader) ([]config.Location, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var locations []config.Location
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read CSV record: %w", err)
		}

		if len(record) < 3 {
			log.Printf("Skipping invalid record: %v", record)
			skipped++
			continue
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if latErr != nil || lonErr != nil {
			log.Printf("Skipping %s: invalid coordinates", record[0])
			skipped++
			continue
		}

		locations = append(locations, config.Location{
			Name:      strings.TrimSpace(record[0]),
			Latitude:  lat,
			Longitude: lon,
		})
	}
	return locations, skipped, nil
}
