package server

import (
	"net/http"

	"github.com/bregovic/shanon-sub001/internal/models"
)

// handleFxRate handles GET /api/fx/rate?currency=USD&date=2024-01-05&nearest=true.
// A missing rate answers 200 with found=false.
func (s *Server) handleFxRate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	currency := models.NormalizeCurrency(q.Get("currency"))
	if currency == "" {
		WriteError(w, http.StatusBadRequest, "currency is required")
		return
	}
	date := q.Get("date")
	if _, err := models.ParseDate(date); err != nil {
		WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	result, err := s.app.Fx.ResolveRate(r.Context(), currency, date, queryBool(r, "nearest"))
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

type fxBatchRequest struct {
	Pairs   []models.RatePair `json:"pairs"`
	Nearest bool              `json:"nearest"`
}

// handleFxRates handles POST /api/fx/rates and returns the sparse
// "date|currency" -> rate map.
func (s *Server) handleFxRates(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req fxBatchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	rates, err := s.app.Fx.ResolveBatch(r.Context(), req.Pairs, req.Nearest)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reporting_currency": s.app.Config.ReportingCurrency,
		"rates":              rates,
	})
}
