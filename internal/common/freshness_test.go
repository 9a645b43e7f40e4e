package common

import (
	"testing"
	"time"
)

func TestIsFreshAt(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		updated time.Time
		ttl     time.Duration
		want    bool
	}{
		{"zero timestamp", time.Time{}, time.Hour, false},
		{"zero ttl with current timestamp", now, 0, false},
		{"within ttl", now.Add(-10 * time.Second), time.Hour, true},
		{"exactly at ttl", now.Add(-time.Hour), time.Hour, false},
		{"past ttl", now.Add(-2 * time.Hour), time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFreshAt(tt.updated, tt.ttl, now); got != tt.want {
				t.Errorf("IsFreshAt = %v, want %v", got, tt.want)
			}
		})
	}
}
