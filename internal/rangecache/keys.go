package rangecache

import (
	"fmt"
	"time"

	"weathercache/internal/models"
)

const keyPrefix = "day-summary"

// CacheKey addresses one coordinate on one aligned day, e.g.
// day-summary-40--74-1704067200000
func CacheKey(coord models.Coordinate, day time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%d", keyPrefix,
		models.FormatDegrees(coord.Latitude),
		models.FormatDegrees(coord.Longitude),
		day.UnixMilli())
}
