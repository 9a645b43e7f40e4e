// Package common provides shared utilities for Shanon
package common

import "time"

// Freshness windows for cached quote data
const (
	FreshnessQuote     = 15 * time.Minute
	FreshnessAnalytics = 6 * time.Hour
	FreshnessFxFixing  = 24 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	return IsFreshAt(updated, ttl, time.Now())
}

// IsFreshAt reports whether updated is younger than ttl at the instant now.
// A zero timestamp or a non-positive ttl is never fresh.
func IsFreshAt(updated time.Time, ttl time.Duration, now time.Time) bool {
	if updated.IsZero() || ttl <= 0 {
		return false
	}
	return now.Sub(updated) < ttl
}
