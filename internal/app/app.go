// Package app wires configuration, storage, providers and services into
// the shared core used by cmd/shanon-server and cmd/shanon.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bregovic/shanon-sub001/internal/clients/alphavantage"
	"github.com/bregovic/shanon-sub001/internal/clients/cnb"
	"github.com/bregovic/shanon-sub001/internal/clients/eodhd"
	"github.com/bregovic/shanon-sub001/internal/clients/yahoo"
	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
	"github.com/bregovic/shanon-sub001/internal/services/alias"
	"github.com/bregovic/shanon-sub001/internal/services/analytics"
	"github.com/bregovic/shanon-sub001/internal/services/fx"
	"github.com/bregovic/shanon-sub001/internal/services/jobmanager"
	"github.com/bregovic/shanon-sub001/internal/services/provider"
	"github.com/bregovic/shanon-sub001/internal/services/quote"
	"github.com/bregovic/shanon-sub001/internal/services/quotecache"
	"github.com/bregovic/shanon-sub001/internal/services/watchlist"
	"github.com/bregovic/shanon-sub001/internal/storage"
)

// App holds all initialized services and storage.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Aliases     interfaces.AliasResolver
	Cache       interfaces.QuoteCache
	Quotes      interfaces.QuoteService
	Analytics   interfaces.AnalyticsService
	Fx          interfaces.FxService
	Watchlist   interfaces.WatchlistService
	Jobs        *jobmanager.JobManager
	Providers   []string
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath picks the config file: explicit path, SHANON_CONFIG,
// then shanon.toml next to the binary, then config/shanon.toml.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("SHANON_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "shanon.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/shanon.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and builds every service.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := New(config, logger, storageManager)
	logger.Info().
		Dur("startup", time.Since(startupStart)).
		Strs("providers", a.Providers).
		Str("backend", config.Storage.Backend).
		Msg("App initialized")
	return a, nil
}

// New builds the services over an opened storage manager.
func New(config *common.Config, logger *common.Logger, storageManager interfaces.StorageManager) *App {
	providers := buildProviders(config, storageManager.ManualPriceStore(), logger)
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}

	chain := provider.NewChain(providers, provider.NewPacer(rateLimits(config)), 0, logger.WithComponent("provider"))
	cache := quotecache.NewCache(
		storageManager.QuoteStore(),
		storageManager.HistoryStore(),
		chain,
		logger.WithComponent("quotecache"),
		quotecache.WithStoreTimeout(config.Storage.GetTimeout()),
		quotecache.WithHistoryDefault(config.Quotes.HistoryDefault),
	)

	aliasService := alias.NewService(storageManager.AliasStore(), storageManager.QuoteStore(), logger.WithComponent("alias"))

	// The hook reaches the job manager once it exists; refreshes started
	// before then report nothing.
	var jobs *jobmanager.JobManager
	quoteService := quote.NewService(
		aliasService,
		cache,
		storageManager.UniverseStore(),
		config.Quotes.GetTTL(),
		logger.WithComponent("quote"),
		quote.WithWorkers(config.Quotes.GetWorkers()),
		quote.WithTickerHook(func(ticker string, err error) {
			if jobs != nil {
				jobs.NotifyTicker(ticker, err)
			}
		}),
	)

	analyticsService := analytics.NewService(aliasService, cache, storageManager.QuoteStore(), storageManager.HistoryStore(), logger.WithComponent("analytics"))

	var rateSource interfaces.FxRateSource
	if config.Clients.CNB.Enabled {
		rateSource = cnb.NewClient(
			cnb.WithBaseURL(config.Clients.CNB.BaseURL),
			cnb.WithTimeout(config.Clients.CNB.GetTimeout()),
			cnb.WithLogger(logger),
		)
	}
	fxService := fx.NewService(storageManager.FxStore(), rateSource, config.ReportingCurrency, logger.WithComponent("fx"))

	hub := jobmanager.NewJobWSHub(logger)
	jobs = jobmanager.NewJobManager(quoteService, analyticsService, fxService, hub, config.Jobs, config.Quotes.GetPerCallDelay(), logger.WithComponent("jobs"))

	return &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Aliases:     aliasService,
		Cache:       cache,
		Quotes:      quoteService,
		Analytics:   analyticsService,
		Fx:          fxService,
		Watchlist:   watchlist.NewService(storageManager.UniverseStore(), aliasService, logger.WithComponent("watchlist")),
		Jobs:        jobs,
		Providers:   names,
		StartupTime: time.Now(),
	}
}

// buildProviders instantiates the enabled quote sources in the configured
// order. Keyed sources without a key are skipped. The manual override is
// always present.
func buildProviders(config *common.Config, manual interfaces.ManualPriceStore, logger *common.Logger) []interfaces.QuoteProvider {
	order := config.Quotes.ProviderOrder
	if len(order) == 0 {
		order = []string{models.SourceEODHD, models.SourceYahoo, models.SourceAlphaVantage, models.SourceManual}
	}

	var providers []interfaces.QuoteProvider
	haveManual := false
	for _, name := range order {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case models.SourceEODHD:
			c := config.Clients.EODHD
			if !c.Enabled {
				continue
			}
			if c.APIKey == "" {
				logger.Warn().Msg("EODHD API key not configured - provider disabled")
				continue
			}
			providers = append(providers, eodhd.NewClient(c.APIKey,
				eodhd.WithBaseURL(c.BaseURL),
				eodhd.WithTimeout(c.GetTimeout()),
				eodhd.WithLogger(logger),
			))
		case models.SourceYahoo:
			c := config.Clients.Yahoo
			if !c.Enabled {
				continue
			}
			providers = append(providers, yahoo.NewClient(
				yahoo.WithBaseURL(c.BaseURL),
				yahoo.WithTimeout(c.GetTimeout()),
				yahoo.WithLogger(logger),
			))
		case models.SourceAlphaVantage:
			c := config.Clients.AlphaVantage
			if !c.Enabled {
				continue
			}
			if c.APIKey == "" {
				logger.Warn().Msg("Alpha Vantage API key not configured - provider disabled")
				continue
			}
			providers = append(providers, alphavantage.NewClient(c.APIKey,
				alphavantage.WithBaseURL(c.BaseURL),
				alphavantage.WithTimeout(c.GetTimeout()),
				alphavantage.WithLogger(logger),
			))
		case models.SourceManual:
			if !haveManual {
				providers = append(providers, provider.NewManualOverride(manual))
				haveManual = true
			}
		default:
			logger.Warn().Str("provider", name).Msg("Unknown quote provider in provider_order, ignored")
		}
	}
	if !haveManual {
		providers = append(providers, provider.NewManualOverride(manual))
	}
	return providers
}

// rateLimits maps provider names to their configured requests per second.
func rateLimits(config *common.Config) map[string]float64 {
	return map[string]float64{
		models.SourceEODHD:        config.Clients.EODHD.RateLimit,
		models.SourceYahoo:        config.Clients.Yahoo.RateLimit,
		models.SourceAlphaVantage: config.Clients.AlphaVantage.RateLimit,
	}
}

// StartJobs launches the background job schedule.
func (a *App) StartJobs() {
	if a.Jobs != nil {
		a.Jobs.Start()
	}
}

// Close releases all resources held by the App.
// Shutdown order: stop jobs, close storage.
func (a *App) Close() {
	if a.Jobs != nil {
		a.Jobs.Stop()
		a.Jobs = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
