package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/billing"
	jobmetrics "github.com/shopledger/shopledger/internal/jobs"
	"github.com/shopledger/shopledger/internal/reports"
	"github.com/shopledger/shopledger/jobs"
)

// TableSource builds report tables; *reports.Service satisfies it.
type TableSource interface {
	Table(ctx context.Context, kind reports.Kind, filter reports.Filter, partyKind billing.PartyKind) (reports.Table, error)
	Location() *time.Location
}

// JobConfig wires dependencies required by the worker job.
type JobConfig struct {
	Reports    TableSource
	StorageDir string
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	Now        func() time.Time
}

// Job renders queued exports to the storage directory.
type Job struct {
	reports    TableSource
	storageDir string
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
	now        func() time.Time
}

// NewJob constructs a Job handler.
func NewJob(cfg JobConfig) *Job {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Job{reports: cfg.Reports, storageDir: cfg.StorageDir, logger: cfg.Logger, metrics: cfg.Metrics, now: cfg.Now}
}

// Handle fulfils the asynq.HandlerFunc contract. Malformed payloads and
// invalid filters are not retried.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.reports == nil {
		return errors.New("export job not configured")
	}
	var payload jobs.ExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode export payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.metrics.Track(jobs.TaskExportReport)
	defer func() { err = tracker.End(err) }()

	kind, err := reports.ParseKind(payload.Report)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	format, err := ParseFormat(payload.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	filter, partyKind, err := payload.Query.Filter(j.reports.Location())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	table, err := j.reports.Table(ctx, kind, filter, partyKind)
	if err != nil {
		if errors.Is(err, reports.ErrInvalidFilter) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	generated := j.now().In(j.reports.Location())
	var buf bytes.Buffer
	if err := Write(&buf, format, table, generated); err != nil {
		return err
	}
	path, err := j.save(payload.JobID, kind, format, generated, buf.Bytes())
	if err != nil {
		return err
	}
	j.metrics.AddExportBytes(string(format), buf.Len())
	j.logger.Info("report export ready",
		slog.String("job_id", payload.JobID),
		slog.String("report", string(kind)),
		slog.String("file", path))
	return nil
}

// OutputPath is where a finished job writes its file.
func OutputPath(dir, jobID string, kind reports.Kind, f Format, at time.Time) string {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "shopledger-exports")
	}
	name := Filename(kind, f, at)
	if jobID != "" {
		name = jobID + "-" + name
	}
	return filepath.Join(dir, name)
}

func (j *Job) save(jobID string, kind reports.Kind, f Format, at time.Time, data []byte) (string, error) {
	path := OutputPath(j.storageDir, jobID, kind, f, at)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
