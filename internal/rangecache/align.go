package rangecache

import "time"

const secondsPerDay = 24 * 60 * 60

// Align floors t to the start of the day bucket that contains it. A bucket
// starts at syncHour local time in loc, so an instant before the sync hour
// belongs to the previous calendar day's bucket.
func Align(t time.Time, loc *time.Location, syncHour int) time.Time {
	y, m, d := bucketDate(t, loc, syncHour).Date()
	return BucketStart(y, m, d, syncHour, loc)
}

// BucketStart returns the first instant of the bucket for the civil date
// y-m-d. If syncHour falls in a DST gap that day, the bucket starts at the
// transition, the first wall clock reading after the gap.
func BucketStart(y int, m time.Month, d, syncHour int, loc *time.Location) time.Time {
	t := time.Date(y, m, d, syncHour, 0, 0, 0, loc)
	want := time.Date(y, m, d, syncHour, 0, 0, 0, time.UTC)
	got := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)

	switch {
	case got.Before(want):
		if _, end := t.ZoneBounds(); !end.IsZero() {
			return end
		}
	case got.After(want):
		if start, _ := t.ZoneBounds(); !start.IsZero() {
			return start
		}
	}
	return t
}

// bucketDate returns the civil date of the bucket containing t as midnight UTC
func bucketDate(t time.Time, loc *time.Location, syncHour int) time.Time {
	lt := t.In(loc)
	y, m, d := lt.Date()
	if lt.Before(BucketStart(y, m, d, syncHour, loc)) {
		d--
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaySpan counts the calendar days from a to b. Both must already be aligned in
// the same location. DST transitions do not shorten or lengthen the count.
func DaySpan(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ca := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	cb := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	// Unix seconds, since time.Duration tops out near 292 years
	return int((cb.Unix() - ca.Unix()) / secondsPerDay)
}
