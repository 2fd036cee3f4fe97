package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/sensorx/pkg/anomaly"
	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/reconciler"
	"github.com/canopy-network/sensorx/pkg/schema"
	"github.com/canopy-network/sensorx/pkg/trend"
)

type fakeRunner struct {
	mu       sync.Mutex
	requests []reconciler.Request
	results  map[string]*reconciler.Result
	errs     map[string]error
}

func (f *fakeRunner) Run(_ context.Context, req reconciler.Request) (*reconciler.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.errs[req.Table]; err != nil {
		return nil, err
	}
	return f.results[req.Table], nil
}

type fakePublisher struct {
	tables []string
	err    error
	// onPublish runs inside PublishResult when set.
	onPublish func()
}

func (f *fakePublisher) PublishResult(_ context.Context, res *reconciler.Result) error {
	f.tables = append(f.tables, res.Table)
	if f.onPublish != nil {
		f.onPublish()
	}
	return f.err
}

type pingStore struct {
	db.Store
	err error
}

func (p pingStore) Ping(context.Context) error { return p.err }

func okResult(table string) *reconciler.Result {
	v := 90.0
	return &reconciler.Result{
		Table:       table,
		Status:      reconciler.StatusOK,
		Mode:        reconciler.ModeTwoTable,
		Descriptors: []schema.SensorDescriptor{{ColumnName: "temperature"}},
		Sensors:     []trend.Snapshot{{Name: "temperature"}},
		Alerts:      []trend.Alert{{Column: "temperature"}},
		History: map[string][]anomaly.Point{"temperature": {
			{Value: &v, Verdict: anomaly.Verdict{IsOutlier: true, Reasons: anomaly.OutOfBounds}},
			{Value: &v},
		}},
		DataPoints: 2,
	}
}

func newTestApp(t *testing.T, runner Runner, pub ResultPublisher, tables ...string) *App {
	t.Helper()
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	a := New(Config{Tables: tables, CronSpec: "*/5 * * * * *", History: true, Location: seoul, Addr: ":0"},
		runner, pingStore{}, pub, zaptest.NewLogger(t))
	a.now = func() time.Time { return time.Date(2024, 5, 1, 16, 30, 0, 0, time.UTC) }
	return a
}

func TestReconcile(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*reconciler.Result{
			"line_a":  okResult("line_a"),
			"notices": {Table: "notices", Status: reconciler.StatusNoSensorColumns},
		},
		errs: map[string]error{"line_b": errors.New("fetch stage failed")},
	}
	pub := &fakePublisher{}
	a := newTestApp(t, runner, pub, "line_a", "line_b", "notices")

	err := a.Reconcile(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line_b")

	require.Len(t, runner.requests, 3)
	req := runner.requests[0]
	assert.True(t, req.History)
	assert.Equal(t, "2024-05-02", req.Date, "the day is taken in the monitor's time zone")
	assert.Equal(t, "Asia/Seoul", req.Location.String())

	assert.Equal(t, []string{"line_a"}, pub.tables, "only successful results with sensors are published")

	run, ok := a.Runs.Load("line_a")
	require.True(t, ok)
	assert.Equal(t, 1, run.Outliers)
	assert.Equal(t, 1, run.Alerts)
	assert.Equal(t, 2, run.DataPoints)
	assert.Equal(t, uint64(1), run.Runs)
	assert.Empty(t, run.Error)

	failed, ok := a.Runs.Load("line_b")
	require.True(t, ok)
	assert.Equal(t, "fetch stage failed", failed.Error)

	require.Error(t, a.Reconcile(t.Context()))
	run, _ = a.Runs.Load("line_a")
	assert.Equal(t, uint64(2), run.Runs)
}

func TestReconcile_PublishFailureIsRecorded(t *testing.T) {
	runner := &fakeRunner{results: map[string]*reconciler.Result{"line_a": okResult("line_a")}}
	a := newTestApp(t, runner, &fakePublisher{err: errors.New("redis down")}, "line_a")

	err := a.Reconcile(t.Context())
	require.Error(t, err)
	run, _ := a.Runs.Load("line_a")
	assert.Equal(t, "redis down", run.Error)
}

func TestReconcile_DurationIncludesPublish(t *testing.T) {
	runner := &fakeRunner{results: map[string]*reconciler.Result{"line_a": okResult("line_a")}}
	clock := time.Date(2024, 5, 1, 16, 30, 0, 0, time.UTC)
	pub := &fakePublisher{onPublish: func() { clock = clock.Add(3 * time.Second) }}
	a := newTestApp(t, runner, pub, "line_a")
	a.now = func() time.Time { return clock }

	require.NoError(t, a.Reconcile(t.Context()))
	run, ok := a.Runs.Load("line_a")
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, run.Duration)
	assert.Equal(t, time.Date(2024, 5, 1, 16, 30, 0, 0, time.UTC), run.StartedAt)
}

func TestReconcile_WithoutHistory(t *testing.T) {
	runner := &fakeRunner{results: map[string]*reconciler.Result{"line_a": okResult("line_a")}}
	a := newTestApp(t, runner, nil, "line_a")
	a.Config.History = false

	require.NoError(t, a.Reconcile(t.Context()))
	assert.Empty(t, runner.requests[0].Date)
	assert.Nil(t, runner.requests[0].Location)
}

func TestSetupScheduler(t *testing.T) {
	a := newTestApp(t, &fakeRunner{}, nil, "line_a")
	require.NoError(t, a.SetupScheduler(t.Context()))
	assert.Len(t, a.Cron.Entries(), 1)

	a.Config.CronSpec = "every tuesday"
	assert.Error(t, a.SetupScheduler(t.Context()))
}

func TestRouter(t *testing.T) {
	runner := &fakeRunner{results: map[string]*reconciler.Result{"line_a": okResult("line_a")}}
	a := newTestApp(t, runner, nil, "line_a")
	require.NoError(t, a.Reconcile(t.Context()))
	router := a.Router()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/healthz").Code)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)

	rec := get("/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []TableRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "line_a", runs[0].Table)

	rec = get("/runs/line_a")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, get("/runs/unknown").Code)

	a.Store = pingStore{err: errors.New("down")}
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MONITOR_TABLES", "line_a, line_b,line_a")
	t.Setenv("MONITOR_CRON", "*/30 * * * * *")
	t.Setenv("MONITOR_HISTORY", "false")
	t.Setenv("MONITOR_TIMEZONE", "Asia/Seoul")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"line_a", "line_b"}, cfg.Tables)
	assert.Equal(t, "*/30 * * * * *", cfg.CronSpec)
	assert.False(t, cfg.History)
	assert.Equal(t, "Asia/Seoul", cfg.Location.String())
	assert.Equal(t, ":3002", cfg.Addr)

	t.Setenv("MONITOR_TABLES", "")
	_, err = ConfigFromEnv()
	assert.Error(t, err)

	t.Setenv("MONITOR_TABLES", "line_a")
	t.Setenv("MONITOR_TIMEZONE", "Mars/Olympus")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}
