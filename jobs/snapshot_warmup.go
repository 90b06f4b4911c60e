package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/billing"
	jobmetrics "github.com/shopledger/shopledger/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SnapshotLoader is the cached source the warmup refreshes.
type SnapshotLoader interface {
	Load(ctx context.Context) (billing.Snapshot, error)
}

// SnapshotWarmupJob loads the source snapshot ahead of traffic so the first
// report request after a cache expiry does not pay the fetch.
type SnapshotWarmupJob struct {
	Loader  SnapshotLoader
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewSnapshotWarmupJob wires dependencies for the warmup handler.
func NewSnapshotWarmupJob(loader SnapshotLoader, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotWarmupJob {
	return &SnapshotWarmupJob{Loader: loader, Logger: logger, Metrics: metrics, Timeout: 30 * time.Second}
}

// Handle processes TaskSnapshotWarmup tasks.
func (j *SnapshotWarmupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Loader == nil {
		return errors.New("snapshot warmup: handler not configured")
	}
	tracker := j.metrics().Track(TaskSnapshotWarmup)
	defer func() { err = tracker.End(err) }()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	started := time.Now()
	snap, err := j.Loader.Load(ctx)
	if err != nil {
		j.logger().Error("warm snapshot", slog.Any("error", err))
		return err
	}
	j.logger().Info("snapshot warmed",
		slog.Int("bills", len(snap.Bills)),
		slog.Int("purchase_orders", len(snap.PurchaseOrders)),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *SnapshotWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSnapshotWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSnapshotWarmup))
}

func (j *SnapshotWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
