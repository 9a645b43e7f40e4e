package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/bregovic/shanon-sub001/internal/services/jobmanager"
)

type setAliasRequest struct {
	Alias     string `json:"alias"`
	Canonical string `json:"canonical"`
}

// handleAdminSetAlias handles PUT /api/admin/aliases.
func (s *Server) handleAdminSetAlias(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut, http.MethodPost) {
		return
	}
	var req setAliasRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	if err := s.app.Aliases.SetAlias(ctx, req.Alias, req.Canonical); err != nil {
		WriteEngineError(w, err)
		return
	}
	mapping, err := s.app.Aliases.GetAlias(ctx, req.Alias)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, mapping)
}

// handleAdminRefresh handles POST /api/admin/refresh?delay_ms=. The batch
// runs inside the request with no write deadline and the summary is
// returned. A client disconnect does not stop the batch.
func (s *Server) handleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	delay := s.app.Config.Quotes.GetPerCallDelay()
	if v := r.URL.Query().Get("delay_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			WriteError(w, http.StatusBadRequest, "delay_ms must be a non-negative integer")
			return
		}
		delay = time.Duration(ms) * time.Millisecond
	}

	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug().Err(err).Msg("Write deadline not cleared")
	}

	result, err := s.app.Quotes.RefreshAll(context.WithoutCancel(r.Context()), delay)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleAdminFxImport handles POST /api/admin/fx/import?date=. The date
// defaults to today.
func (s *Server) handleAdminFxImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	date := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := models.ParseDate(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}

	result, err := s.app.Fx.ImportRates(r.Context(), date)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

type manualPriceRequest struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Note     string  `json:"note"`
}

// handleAdminManualPrice handles PUT and DELETE on /api/admin/manual-prices/{symbol}.
func (s *Server) handleAdminManualPrice(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut, http.MethodDelete) {
		return
	}
	symbol, errMsg := validateQuoteTicker(PathParam(r, "/api/admin/manual-prices/"))
	if errMsg != "" {
		WriteError(w, http.StatusBadRequest, errMsg)
		return
	}
	store := s.app.Storage.ManualPriceStore()
	ctx := r.Context()

	if r.Method == http.MethodDelete {
		if err := store.DeleteManualPrice(ctx, symbol); err != nil {
			WriteEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req manualPriceRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Price <= 0 {
		WriteError(w, http.StatusBadRequest, "price must be positive")
		return
	}
	price := &models.ManualPrice{
		Symbol:    symbol,
		Price:     req.Price,
		Currency:  models.NormalizeCurrency(req.Currency),
		Note:      req.Note,
		UpdatedAt: time.Now(),
	}
	if err := store.SetManualPrice(ctx, price); err != nil {
		WriteEngineError(w, err)
		return
	}
	s.logger.Info().Str("ticker", symbol).Float64("price", price.Price).Msg("Manual price set")
	WriteJSON(w, http.StatusOK, price)
}

// handleAdminWatchlist handles GET (watched tickers) and PUT (set one
// entry) on /api/admin/watchlist.
func (s *Server) handleAdminWatchlist(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	if r.Method == http.MethodGet {
		tickers, err := s.app.Watchlist.WatchedTickers(r.Context())
		if err != nil {
			WriteEngineError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"tickers": tickers})
		return
	}

	var req models.WatchlistEntry
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	ticker, errMsg := validateQuoteTicker(req.Ticker)
	if errMsg != "" {
		WriteError(w, http.StatusBadRequest, errMsg)
		return
	}

	entry, err := s.app.Watchlist.SetWatch(r.Context(), req.UserID, ticker, req.Watched)
	if err != nil {
		WriteEngineError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// handleAdminJobs handles GET /api/admin/jobs: the last run of each job type.
func (s *Server) handleAdminJobs(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.app.Jobs == nil {
		WriteError(w, http.StatusServiceUnavailable, "Job manager not running")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs": s.app.Jobs.LastRuns(),
	})
}

// handleAdminRunJob handles POST /api/admin/jobs/{type}: runs the job now.
func (s *Server) handleAdminRunJob(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if s.app.Jobs == nil {
		WriteError(w, http.StatusServiceUnavailable, "Job manager not running")
		return
	}
	jobType := PathParam(r, "/api/admin/jobs/")
	switch jobType {
	case models.JobTypeRefreshQuotes, models.JobTypeComputeAnalytics, models.JobTypeImportFxRates:
	default:
		WriteError(w, http.StatusNotFound, "unknown job type: "+jobType)
		return
	}

	run, err := s.app.Jobs.RunNow(r.Context(), jobType, jobmanager.TriggerManual)
	if err != nil && run == nil {
		WriteEngineError(w, err)
		return
	}
	// A failed run is still a recorded run
	WriteJSON(w, http.StatusOK, run)
}

// handleAdminJobsWS handles GET /api/admin/jobs/ws: WebSocket upgrade.
func (s *Server) handleAdminJobsWS(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.app.Jobs == nil {
		WriteError(w, http.StatusServiceUnavailable, "Job manager not running")
		return
	}
	s.app.Jobs.Hub().ServeHTTP(w, r)
}
