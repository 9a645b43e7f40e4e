package jobmanager

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/models"
)

// --- mocks ---

type mockQuoteService struct {
	calls   int32
	delay   time.Duration
	err     error
	gotWait time.Duration
}

func (m *mockQuoteService) GetQuote(_ context.Context, ticker string, _ bool, _ string) (*models.QuoteRecord, error) {
	return &models.QuoteRecord{Ticker: ticker}, nil
}

func (m *mockQuoteService) RefreshAll(_ context.Context, delay time.Duration) (*models.RefreshResult, error) {
	atomic.AddInt32(&m.calls, 1)
	m.gotWait = delay
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &models.RefreshResult{Total: 2, Updated: 2, Details: []string{}}, nil
}

func (m *mockQuoteService) Universe(_ context.Context) ([]string, error) { return nil, nil }

type mockAnalyticsService struct{ calls int32 }

func (m *mockAnalyticsService) ComputeAnalytics(_ context.Context, ticker string) (*models.Analytics, error) {
	return &models.Analytics{Ticker: ticker}, nil
}

func (m *mockAnalyticsService) ComputeAll(_ context.Context) (*models.AnalyticsRunResult, error) {
	atomic.AddInt32(&m.calls, 1)
	return &models.AnalyticsRunResult{Total: 1, Computed: 1}, nil
}

type mockFxService struct{ day time.Time }

func (m *mockFxService) ResolveRate(_ context.Context, cur, date string, _ bool) (*models.RateResult, error) {
	return &models.RateResult{Currency: cur, Date: date}, nil
}

func (m *mockFxService) ResolveBatch(_ context.Context, _ []models.RatePair, _ bool) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func (m *mockFxService) ImportRates(_ context.Context, date time.Time) (*models.FxImportResult, error) {
	m.day = date
	return &models.FxImportResult{Date: models.FormatDate(date), Imported: 31}, nil
}

func newTestManager(q *mockQuoteService, cfg common.JobsConfig) *JobManager {
	return NewJobManager(q, &mockAnalyticsService{}, &mockFxService{}, nil, cfg, 250*time.Millisecond, common.NewSilentLogger())
}

// --- tests ---

func TestRunNow_RecordsCompletedRun(t *testing.T) {
	q := &mockQuoteService{}
	jm := newTestManager(q, common.JobsConfig{})

	run, err := jm.RunNow(context.Background(), models.JobTypeRefreshQuotes, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, run.Status)
	assert.Equal(t, TriggerManual, run.Trigger)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 250*time.Millisecond, q.gotWait)

	summary, ok := run.Summary.(*models.RefreshResult)
	require.True(t, ok)
	assert.Equal(t, 2, summary.Updated)

	runs := jm.LastRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestRunNow_FailureRecorded(t *testing.T) {
	q := &mockQuoteService{err: errors.New("store unavailable")}
	jm := newTestManager(q, common.JobsConfig{})

	run, err := jm.RunNow(context.Background(), models.JobTypeRefreshQuotes, TriggerManual)
	assert.Error(t, err)
	assert.Equal(t, models.JobStatusFailed, run.Status)
	assert.Equal(t, "store unavailable", run.Error)
	assert.Nil(t, run.Summary)
}

func TestRunNow_OverlappingRunIsSkipped(t *testing.T) {
	q := &mockQuoteService{delay: 100 * time.Millisecond}
	jm := newTestManager(q, common.JobsConfig{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		jm.RunNow(context.Background(), models.JobTypeRefreshQuotes, TriggerSchedule)
	}()
	time.Sleep(20 * time.Millisecond)

	run, err := jm.RunNow(context.Background(), models.JobTypeRefreshQuotes, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSkipped, run.Status)

	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&q.calls))
}

func TestRunNow_FxImportUsesToday(t *testing.T) {
	fx := &mockFxService{}
	jm := NewJobManager(&mockQuoteService{}, &mockAnalyticsService{}, fx, nil, common.JobsConfig{}, 0, common.NewSilentLogger())
	fixed := time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)
	jm.now = func() time.Time { return fixed }

	run, err := jm.RunNow(context.Background(), models.JobTypeImportFxRates, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, run.Status)
	assert.Equal(t, fixed, fx.day)
}

func TestRunNow_UnknownJobType(t *testing.T) {
	jm := newTestManager(&mockQuoteService{}, common.JobsConfig{})
	_, err := jm.RunNow(context.Background(), "drop_database", TriggerManual)
	assert.Error(t, err)
	assert.Empty(t, jm.LastRuns())
}

func TestStart_SchedulesJobs(t *testing.T) {
	q := &mockQuoteService{}
	jm := newTestManager(q, common.JobsConfig{
		Enabled:           true,
		RefreshInterval:   "20ms",
		AnalyticsInterval: "1h",
		FxImportInterval:  "1h",
	})

	jm.Start()
	time.Sleep(90 * time.Millisecond)
	jm.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&q.calls), int32(2))
}

func TestStart_DisabledRunsNoJobs(t *testing.T) {
	q := &mockQuoteService{}
	jm := newTestManager(q, common.JobsConfig{Enabled: false, RefreshInterval: "10ms"})

	jm.Start()
	time.Sleep(40 * time.Millisecond)
	jm.Stop()

	assert.Equal(t, int32(0), atomic.LoadInt32(&q.calls))
}

func TestHub_StreamsJobEvents(t *testing.T) {
	jm := newTestManager(&mockQuoteService{}, common.JobsConfig{})
	jm.Start()
	defer jm.Stop()

	srv := httptest.NewServer(jm.Hub())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return jm.Hub().ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err = jm.RunNow(context.Background(), models.JobTypeComputeAnalytics, TriggerManual)
	require.NoError(t, err)
	jm.NotifyTicker("CEZ", nil)

	var types []string
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for len(types) < 3 {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev models.JobEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		types = append(types, ev.Type)
		if ev.Type == models.JobEventTicker {
			assert.Equal(t, "CEZ", ev.Ticker)
			assert.True(t, ev.Success)
		}
	}
	assert.Equal(t, []string{models.JobEventStarted, models.JobEventCompleted, models.JobEventTicker}, types)
}

func TestHub_StopIsIdempotent(t *testing.T) {
	hub := NewJobWSHub(common.NewSilentLogger())
	go hub.Run()
	hub.Stop()
	hub.Stop()
	hub.Broadcast(models.JobEvent{Type: models.JobEventStarted})
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewJobWSHub(common.NewSilentLogger())
	go hub.Run()
	defer hub.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			hub.Broadcast(models.JobEvent{Type: models.JobEventTicker, Timestamp: time.Now()})
			time.Sleep(time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			client := &JobWSClient{hub: hub, send: make(chan []byte, 1)}
			hub.register <- client
			time.Sleep(2 * time.Millisecond)
			hub.unregister <- client
		}
	}()
	wg.Wait()
}
