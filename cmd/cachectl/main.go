package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weathercache/internal/bootstrap"
	"weathercache/internal/config"
)

var configPath string

// openBundle is replaced in tests
var openBundle = func(ctx context.Context, withSource bool) (*bootstrap.Bundle, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return bootstrap.Init(ctx, cfg, withSource)
}

var rootCmd = &cobra.Command{
	Use:   "cachectl",
	Short: "Inspect and manage the day summary cache",
	Long: `cachectl fetches, reads and deletes cached OpenWeather day summaries
for a coordinate and date range, and warms the cache for a list of locations.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.yaml", "path to the yaml config file")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
