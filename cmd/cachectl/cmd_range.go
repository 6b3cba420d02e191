package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"weathercache/internal/models"
	"weathercache/internal/processing"
)

type rangeFlags struct {
	lat, lon   float64
	start, end string
}

var flags rangeFlags

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a range, filling cache gaps from OpenWeather",
	RunE:  runFetch,
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read the cached days of a range without contacting OpenWeather",
	RunE:  runRead,
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the cached days of a range",
	RunE:  runDelete,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the cached days of a range and flag outlier days",
	RunE:  runStats,
}

func init() {
	for _, cmd := range []*cobra.Command{fetchCmd, readCmd, deleteCmd, statsCmd} {
		cmd.Flags().Float64Var(&flags.lat, "lat", 0, "latitude in degrees")
		cmd.Flags().Float64Var(&flags.lon, "lon", 0, "longitude in degrees")
		cmd.Flags().StringVar(&flags.start, "start", "", "range start (YYYY-MM-DD, RFC3339 or epoch milliseconds)")
		cmd.Flags().StringVar(&flags.end, "end", "", "range end, exclusive")
		cmd.MarkFlagRequired("lat")
		cmd.MarkFlagRequired("lon")
		cmd.MarkFlagRequired("start")
		cmd.MarkFlagRequired("end")
		rootCmd.AddCommand(cmd)
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	b, err := openBundle(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer b.Close()

	start, end, err := flags.window(b.Cache.Location())
	if err != nil {
		return err
	}

	res, err := b.Cache.FetchRange(cmd.Context(), flags.coordinate(), start, end)
	if err != nil {
		return err
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", s.Day.Format("2006-01-02"), s.Reason)
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

func runRead(cmd *cobra.Command, args []string) error {
	b, err := openBundle(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer b.Close()

	start, end, err := flags.window(b.Cache.Location())
	if err != nil {
		return err
	}

	res, err := b.Cache.ReadCachedRange(cmd.Context(), flags.coordinate(), start, end)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res.Records)
}

func runDelete(cmd *cobra.Command, args []string) error {
	b, err := openBundle(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer b.Close()

	start, end, err := flags.window(b.Cache.Location())
	if err != nil {
		return err
	}

	deleted, err := b.Cache.DeleteRange(cmd.Context(), flags.coordinate(), start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d cached days\n", deleted)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	b, err := openBundle(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer b.Close()

	start, end, err := flags.window(b.Cache.Location())
	if err != nil {
		return err
	}

	res, err := b.Cache.ReadCachedRange(cmd.Context(), flags.coordinate(), start, end)
	if err != nil {
		return err
	}
	stats := processing.NewSummarizer().Summarize(processing.Normalize(res.Records))
	return writeJSON(cmd.OutOrStdout(), stats)
}

func (f rangeFlags) coordinate() models.Coordinate {
	return models.Coordinate{Latitude: f.lat, Longitude: f.lon}
}

func (f rangeFlags) window(loc *time.Location) (time.Time, time.Time, error) {
	start, err := parseDate(f.start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &models.ValidationError{Field: "start", Message: err.Error()}
	}
	end, err := parseDate(f.end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &models.ValidationError{Field: "end", Message: err.Error()}
	}
	return start, end, nil
}

// parseDate accepts a calendar date in loc, RFC3339 or epoch milliseconds
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Time{}, fmt.Errorf("%q is not a date; use YYYY-MM-DD, RFC3339 or epoch milliseconds", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
