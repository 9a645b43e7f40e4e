package models

import (
	"fmt"
	"time"
)

// Provider attempt outcomes
const (
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
	OutcomeParseError  = "parse_error"
)

// FetchAttempt records one provider call for one symbol variant.
type FetchAttempt struct {
	Provider string        `json:"provider"`
	Variant  string        `json:"variant"`
	Outcome  string        `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

func (a FetchAttempt) String() string {
	if a.Error != "" {
		return fmt.Sprintf("%s[%s]=%s: %s", a.Provider, a.Variant, a.Outcome, a.Error)
	}
	return fmt.Sprintf("%s[%s]=%s", a.Provider, a.Variant, a.Outcome)
}

// RefreshResult is the JSON summary of a batch refresh.
type RefreshResult struct {
	Total     int           `json:"total"`
	Updated   int           `json:"updated"`
	Failed    int           `json:"failed"`
	Details   []string      `json:"details"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// AnalyticsRunResult summarises one pass of the analytics job.
type AnalyticsRunResult struct {
	Total    int      `json:"total"`
	Computed int      `json:"computed"`
	Failed   int      `json:"failed"`
	Details  []string `json:"details"`
}
