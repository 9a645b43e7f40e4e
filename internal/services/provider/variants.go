package provider

import (
	"strings"

	"github.com/bregovic/shanon-sub001/internal/models"
)

// currencySuffixes lists the exchange suffixes worth trying for a ticker
// whose transactions settle in the given currency, most likely first.
var currencySuffixes = map[string][]string{
	"CZK": {".PR"},
	"EUR": {".DE", ".PA", ".AS", ".MI"},
	"GBP": {".L"},
	"PLN": {".WA"},
	"CHF": {".SW"},
	"CAD": {".TO"},
	"AUD": {".AX"},
	"HKD": {".HK"},
	"JPY": {".T"},
	"SEK": {".ST"},
	"NOK": {".OL"},
	"DKK": {".CO"},
}

// suffixCurrency is the trading currency implied by a listing suffix
var suffixCurrency = map[string]string{
	"PR": "CZK",
	"DE": "EUR",
	"F":  "EUR",
	"PA": "EUR",
	"AS": "EUR",
	"MI": "EUR",
	"VI": "EUR",
	"L":  "GBP",
	"WA": "PLN",
	"SW": "CHF",
	"TO": "CAD",
	"AX": "AUD",
	"HK": "HKD",
	"T":  "JPY",
	"ST": "SEK",
	"OL": "NOK",
	"CO": "DKK",
}

// CandidateVariants returns the symbol variants to try, bare symbol first.
// A symbol that already carries a suffix is tried as given.
func CandidateVariants(symbol, currencyHint string) []string {
	s := models.NormalizeTicker(symbol)
	if s == "" {
		return nil
	}
	if strings.Contains(s, ".") {
		return []string{s}
	}
	variants := []string{s}
	for _, suffix := range currencySuffixes[models.NormalizeCurrency(currencyHint)] {
		variants = append(variants, s+suffix)
	}
	return variants
}

// ImpliedCurrency returns the currency implied by variant's suffix, or ""
// when it has none or the suffix is unknown.
func ImpliedCurrency(variant string) string {
	_, suffix, found := strings.Cut(models.NormalizeTicker(variant), ".")
	if !found {
		return ""
	}
	return suffixCurrency[suffix]
}

// normalizeCurrency picks the record currency: what the provider reported,
// else what the listing implies, else the caller's hint. A bare symbol
// with nothing else to go on is a US listing.
func normalizeCurrency(reported, variant, hint string) string {
	if c := models.NormalizeCurrency(reported); c != "" {
		return c
	}
	if c := ImpliedCurrency(variant); c != "" {
		return c
	}
	if c := models.NormalizeCurrency(hint); c != "" {
		return c
	}
	return "USD"
}
