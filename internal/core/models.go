package core

import "time"

// Money is an integer amount in minor currency units (whole dollars for this
// league, per spec §3: "Monetary amounts are integers in minor currency
// units").
type Money = int64

const dateLayout = "2006-01-02"

// FormatDate renders t as the ISO-8601 date form spec.md uses throughout
// (YYYY-MM-DD, no time component).
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses an ISO-8601 date (YYYY-MM-DD) in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// FormatTimestamp renders t as ISO-8601 UTC with a trailing Z, the form used
// for created_at/updated_at columns throughout the schema.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
