package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/billing"
	jobmetrics "github.com/shopledger/shopledger/internal/jobs"
	"github.com/shopledger/shopledger/internal/reports"
)

func TestNewExportTaskCarriesPayload(t *testing.T) {
	payload := ExportPayload{
		JobID:       "job-1",
		Report:      "aging",
		Format:      "csv",
		Query:       reports.Query{Period: "monthly", BranchID: "b1"},
		RequestedAt: time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC),
	}
	task, err := NewExportTask(payload)
	require.NoError(t, err)
	require.Equal(t, TaskExportReport, task.Type())

	var decoded ExportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, payload, decoded)

	require.Equal(t, TaskSnapshotWarmup, NewSnapshotWarmupTask().Type())
}

type stubLoader struct {
	snap billing.Snapshot
	err  error
}

func (s stubLoader) Load(context.Context) (billing.Snapshot, error) { return s.snap, s.err }

func TestSnapshotWarmupJob(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	snap := billing.Snapshot{Bills: []billing.Bill{{ID: "b1"}, {ID: "b2"}}}

	job := NewSnapshotWarmupJob(stubLoader{snap: snap}, nil, metrics)
	require.NoError(t, job.Handle(context.Background(), NewSnapshotWarmupTask()))

	failing := NewSnapshotWarmupJob(stubLoader{err: errors.New("source down")}, nil, metrics)
	require.Error(t, failing.Handle(context.Background(), NewSnapshotWarmupTask()))

	var unset *SnapshotWarmupJob
	require.Error(t, unset.Handle(context.Background(), NewSnapshotWarmupTask()))
}

func TestSnapshotWarmupJobRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := NewSnapshotWarmupJob(stubLoader{err: errors.New("source down")}, nil, metrics)
	_ = job.Handle(context.Background(), NewSnapshotWarmupTask())

	count, err := testutil.GatherAndCount(registry, "shopledger_jobs_failures_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func serveHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(inspector, nil).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec
}

func TestHealthReportsQueueDepth(t *testing.T) {
	rec := serveHealth(t, stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Failed: 1}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":4,"active":0,"retry":0,"archived":0,"processedToday":0,"failedToday":1}`, rec.Body.String())

	rec = serveHealth(t, stubInspector{err: asynq.ErrQueueNotFound})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serveHealth(t, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serveHealth(t, stubInspector{err: errors.New("redis down")})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
