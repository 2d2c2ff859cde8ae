package app

import (
	"time"

	"github.com/dustin/go-humanize"
)

// formatTimestamp renders a message time relative to now. Times within the
// last half minute read "just now" so fresh replies do not flicker.
func formatTimestamp(createdAt, now time.Time) string {
	if createdAt.IsZero() {
		return ""
	}
	if now.IsZero() {
		now = time.Now()
	}
	if createdAt.After(now) || now.Sub(createdAt) < 30*time.Second {
		return "just now"
	}
	return humanize.RelTime(createdAt, now, "ago", "from now")
}

// timestampBucket changes once a minute; cached blocks keyed on it refresh
// their relative times without re-rendering every frame.
func timestampBucket(now time.Time) int64 {
	if now.IsZero() {
		now = time.Now()
	}
	return now.UTC().Unix() / 60
}
