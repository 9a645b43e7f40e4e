package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Wrappers below unwrap to one of these so callers can use errors.Is.
var (
	ErrAliasCycle          = errors.New("alias cycle")
	ErrInvalidAlias        = errors.New("invalid alias")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrParse               = errors.New("unparseable provider response")
	ErrQuoteNotFound       = errors.New("quote not found")
	ErrRateNotFound        = errors.New("rate not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrNotFound            = errors.New("record not found")
)

// ProviderError is a failed call to one quote source for one symbol variant.
type ProviderError struct {
	Provider string
	Variant  string
	Kind     error // ErrProviderUnavailable or ErrParse
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Variant, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Provider, e.Variant, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StoreError wraps a persistence failure. It always matches ErrStoreUnavailable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// WrapStoreError wraps err as a StoreError unless it is nil or a plain miss.
func WrapStoreError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// FetchError reports that no provider produced a price for a ticker.
type FetchError struct {
	Ticker   string
	Attempts []FetchAttempt
}

func (e *FetchError) Error() string {
	var failures []string
	for _, a := range e.Attempts {
		if a.Outcome != OutcomeNotFound {
			failures = append(failures, a.String())
		}
	}
	if len(failures) == 0 {
		return fmt.Sprintf("%s: %v (%d attempts)", e.Ticker, ErrQuoteNotFound, len(e.Attempts))
	}
	return fmt.Sprintf("%s: %v (%s)", e.Ticker, ErrQuoteNotFound, strings.Join(failures, "; "))
}

func (e *FetchError) Unwrap() error {
	return ErrQuoteNotFound
}
