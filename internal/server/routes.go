package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/bregovic/shanon-sub001/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Quotes
	mux.HandleFunc("/api/quotes/", s.handleQuote)
	mux.HandleFunc("/api/analytics/", s.handleAnalytics)
	mux.HandleFunc("/api/aliases/", s.handleAliasResolve)

	// FX
	mux.HandleFunc("/api/fx/rate", s.handleFxRate)
	mux.HandleFunc("/api/fx/rates", s.handleFxRates)

	// Admin
	cfg := s.app.Config
	mux.HandleFunc("/api/admin/aliases", adminAuth(cfg, s.handleAdminSetAlias))
	mux.HandleFunc("/api/admin/refresh", adminAuth(cfg, s.handleAdminRefresh))
	mux.HandleFunc("/api/admin/fx/import", adminAuth(cfg, s.handleAdminFxImport))
	mux.HandleFunc("/api/admin/manual-prices/", adminAuth(cfg, s.handleAdminManualPrice))
	mux.HandleFunc("/api/admin/watchlist", adminAuth(cfg, s.handleAdminWatchlist))
	mux.HandleFunc("/api/admin/jobs/ws", adminAuth(cfg, s.handleAdminJobsWS))
	mux.HandleFunc("/api/admin/jobs/", adminAuth(cfg, s.handleAdminRunJob))
	mux.HandleFunc("/api/admin/jobs", adminAuth(cfg, s.handleAdminJobs))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":            common.GetVersion(),
		"uptime_seconds":     int64(time.Since(s.app.StartupTime).Seconds()),
		"goroutines":         runtime.NumGoroutine(),
		"heap_alloc_bytes":   mem.HeapAlloc,
		"storage_backend":    s.app.Config.Storage.Backend,
		"providers":          s.app.Providers,
		"reporting_currency": s.app.Config.ReportingCurrency,
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
