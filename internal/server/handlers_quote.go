package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/bregovic/shanon-sub001/internal/models"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._\-^=]{0,31}$`)

// validateQuoteTicker normalizes a path ticker and rejects anything outside
// the symbol alphabet.
func validateQuoteTicker(raw string) (string, string) {
	ticker := models.NormalizeTicker(raw)
	if ticker == "" {
		return "", "ticker is required in path"
	}
	if strings.Contains(ticker, "..") || !tickerPattern.MatchString(ticker) {
		return "", fmt.Sprintf("invalid ticker %q", raw)
	}
	return ticker, ""
}

// handleQuote handles GET /api/quotes/{ticker}?fresh=true&currency=EUR.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ticker, errMsg := validateQuoteTicker(PathParam(r, "/api/quotes/"))
	if errMsg != "" {
		WriteError(w, http.StatusBadRequest, errMsg)
		return
	}

	q := r.URL.Query()
	quote, err := s.app.Quotes.GetQuote(r.Context(), ticker, queryBool(r, "fresh"), q.Get("currency"))
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quote)
}

// handleAnalytics handles GET (stored) and POST (recompute) on
// /api/analytics/{ticker}.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	ticker, errMsg := validateQuoteTicker(PathParam(r, "/api/analytics/"))
	if errMsg != "" {
		WriteError(w, http.StatusBadRequest, errMsg)
		return
	}
	ctx := r.Context()

	if r.Method == http.MethodPost {
		result, err := s.app.Analytics.ComputeAnalytics(ctx, ticker)
		if err != nil {
			WriteEngineError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
		return
	}

	canonical, err := s.app.Aliases.Resolve(ctx, ticker)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	row, err := s.app.Cache.Get(ctx, canonical)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, &models.Analytics{
		Ticker:      row.Ticker,
		High52w:     row.High52w,
		Low52w:      row.Low52w,
		AllTimeHigh: row.AllTimeHigh,
		AllTimeLow:  row.AllTimeLow,
		EMA:         row.EMA212,
		ComputedAt:  row.AnalyticsAt,
	})
}

// handleAliasResolve handles GET /api/aliases/{symbol}.
func (s *Server) handleAliasResolve(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol, errMsg := validateQuoteTicker(PathParam(r, "/api/aliases/"))
	if errMsg != "" {
		WriteError(w, http.StatusBadRequest, errMsg)
		return
	}

	canonical, err := s.app.Aliases.Resolve(r.Context(), symbol)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":    symbol,
		"canonical": canonical,
		"aliased":   canonical != symbol,
	})
}
