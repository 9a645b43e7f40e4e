// Package jobmanager runs the scheduled refresh, analytics and FX import
// jobs and streams their progress over WebSocket.
package jobmanager

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// Job triggers
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// JobManager owns the job schedule and the last run of each job type.
// A job type never runs twice at once; an overlapping request is skipped.
type JobManager struct {
	quotes       interfaces.QuoteService
	analytics    interfaces.AnalyticsService
	fx           interfaces.FxService
	config       common.JobsConfig
	perCallDelay time.Duration
	hub          *JobWSHub
	logger       *common.Logger
	now          func() time.Time

	mu       sync.Mutex
	running  map[string]bool
	lastRuns map[string]*models.JobRun

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobManager creates a job manager. hub may be nil, in which case one
// is created.
func NewJobManager(
	quotes interfaces.QuoteService,
	analytics interfaces.AnalyticsService,
	fx interfaces.FxService,
	hub *JobWSHub,
	config common.JobsConfig,
	perCallDelay time.Duration,
	logger *common.Logger,
) *JobManager {
	if hub == nil {
		hub = NewJobWSHub(logger)
	}
	return &JobManager{
		quotes:       quotes,
		analytics:    analytics,
		fx:           fx,
		config:       config,
		perCallDelay: perCallDelay,
		hub:          hub,
		logger:       logger,
		now:          time.Now,
		running:      make(map[string]bool),
		lastRuns:     make(map[string]*models.JobRun),
	}
}

// safeGo launches a goroutine with panic recovery and logging.
func (jm *JobManager) safeGo(name string, fn func()) {
	jm.wg.Add(1)
	go func() {
		defer jm.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				jm.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in job manager goroutine")
			}
		}()
		fn()
	}()
}

// Start launches the WebSocket hub and, when jobs are enabled, one
// schedule loop per job type.
func (jm *JobManager) Start() {
	if jm.cancel != nil {
		jm.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	jm.cancel = cancel

	jm.safeGo("websocket-hub", func() { jm.hub.Run() })

	if !jm.config.Enabled {
		jm.logger.Info().Msg("Job manager started (schedule disabled)")
		return
	}

	schedule := map[string]time.Duration{
		models.JobTypeRefreshQuotes:    jm.config.GetRefreshInterval(),
		models.JobTypeComputeAnalytics: jm.config.GetAnalyticsInterval(),
		models.JobTypeImportFxRates:    jm.config.GetFxImportInterval(),
	}
	for jobType, interval := range schedule {
		if interval <= 0 {
			jm.logger.Warn().Str("job_type", jobType).Msg("Non-positive interval, job not scheduled")
			continue
		}
		jobType, interval := jobType, interval
		jm.safeGo("schedule-"+jobType, func() { jm.scheduleLoop(ctx, jobType, interval) })
	}

	jm.logger.Info().
		Dur("refresh_interval", schedule[models.JobTypeRefreshQuotes]).
		Dur("analytics_interval", schedule[models.JobTypeComputeAnalytics]).
		Dur("fx_import_interval", schedule[models.JobTypeImportFxRates]).
		Msg("Job manager started")
}

// Stop cancels the schedule loops and waits for them to exit.
func (jm *JobManager) Stop() {
	if jm.cancel != nil {
		jm.cancel()
		jm.cancel = nil
	}
	jm.hub.Stop()
	jm.wg.Wait()
	jm.logger.Info().Msg("Job manager stopped")
}

// Hub returns the WebSocket hub for handler registration
func (jm *JobManager) Hub() *JobWSHub {
	return jm.hub
}

func (jm *JobManager) scheduleLoop(ctx context.Context, jobType string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := jm.RunNow(ctx, jobType, TriggerSchedule); err != nil {
				jm.logger.Warn().Err(err).Str("job_type", jobType).Msg("Scheduled job failed")
			}
		}
	}
}

// RunNow runs jobType synchronously and records the run. When the same
// job type is already running, the returned run is marked skipped.
func (jm *JobManager) RunNow(ctx context.Context, jobType, trigger string) (*models.JobRun, error) {
	if !validJobType(jobType) {
		return nil, fmt.Errorf("unknown job type: %s", jobType)
	}

	run := &models.JobRun{
		ID:        uuid.New().String(),
		JobType:   jobType,
		Trigger:   trigger,
		Status:    models.JobStatusRunning,
		StartedAt: jm.now(),
	}

	jm.mu.Lock()
	if jm.running[jobType] {
		jm.mu.Unlock()
		run.Status = models.JobStatusSkipped
		run.CompletedAt = run.StartedAt
		jm.logger.Info().Str("job_type", jobType).Msg("Job already running, skipped")
		return run, nil
	}
	jm.running[jobType] = true
	jm.mu.Unlock()

	defer func() {
		jm.mu.Lock()
		delete(jm.running, jobType)
		jm.mu.Unlock()
	}()

	jm.hub.Broadcast(models.JobEvent{Type: models.JobEventStarted, Job: copyRun(run), Timestamp: run.StartedAt})

	summary, err := jm.execute(ctx, jobType)

	run.CompletedAt = jm.now()
	run.DurationMS = run.CompletedAt.Sub(run.StartedAt).Milliseconds()
	if err != nil {
		run.Status = models.JobStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = models.JobStatusCompleted
		run.Summary = summary
	}

	jm.mu.Lock()
	jm.lastRuns[jobType] = copyRun(run)
	jm.mu.Unlock()

	event := models.JobEvent{Type: models.JobEventCompleted, Job: copyRun(run), Timestamp: run.CompletedAt}
	if err != nil {
		event.Type = models.JobEventFailed
		event.Message = run.Error
	}
	jm.hub.Broadcast(event)

	jm.logger.Info().
		Str("job_id", run.ID).
		Str("job_type", jobType).
		Str("trigger", trigger).
		Str("status", run.Status).
		Int64("duration_ms", run.DurationMS).
		Msg("Job finished")

	return run, err
}

// NotifyTicker broadcasts a per-ticker refresh outcome.
func (jm *JobManager) NotifyTicker(ticker string, err error) {
	event := models.JobEvent{Type: models.JobEventTicker, Ticker: ticker, Success: err == nil, Timestamp: jm.now()}
	if err != nil {
		event.Message = err.Error()
	}
	jm.hub.Broadcast(event)
}

// LastRuns returns the most recent run of each job type, sorted by type.
func (jm *JobManager) LastRuns() []*models.JobRun {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	runs := make([]*models.JobRun, 0, len(jm.lastRuns))
	for _, r := range jm.lastRuns {
		runs = append(runs, copyRun(r))
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].JobType < runs[j].JobType })
	return runs
}

func (jm *JobManager) execute(ctx context.Context, jobType string) (any, error) {
	switch jobType {
	case models.JobTypeRefreshQuotes:
		return jm.quotes.RefreshAll(ctx, jm.perCallDelay)
	case models.JobTypeComputeAnalytics:
		return jm.analytics.ComputeAll(ctx)
	case models.JobTypeImportFxRates:
		return jm.fx.ImportRates(ctx, jm.now())
	default:
		return nil, fmt.Errorf("unknown job type: %s", jobType)
	}
}

func validJobType(jobType string) bool {
	switch jobType {
	case models.JobTypeRefreshQuotes, models.JobTypeComputeAnalytics, models.JobTypeImportFxRates:
		return true
	}
	return false
}

func copyRun(r *models.JobRun) *models.JobRun {
	c := *r
	return &c
}
