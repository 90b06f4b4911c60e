// Package cli implements the operator commands behind shopledgerctl.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/reports"
	"github.com/shopledger/shopledger/internal/reports/export"
	"github.com/shopledger/shopledger/jobs"
)

// Enqueuer submits tasks to the queue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Inspector reads queue state.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Bumper invalidates cached snapshots.
type Bumper interface {
	Bump(ctx context.Context) (int64, error)
}

// OpsCLI dispatches operator subcommands.
type OpsCLI struct {
	Client    Enqueuer
	Inspector Inspector
	Cache     Bumper
	Location  *time.Location
	Stdout    io.Writer
	Stderr    io.Writer
	NewID     func() string
	Now       func() time.Time
}

// QueueStats summarises the default queue.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

var errUsage = errors.New("usage: shopledgerctl <queue stats|trigger warmup|export|cache bump> [flags]")

// Run executes one command and returns the process exit code.
func (c *OpsCLI) Run(ctx context.Context, args []string) int {
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if err := c.dispatch(ctx, args); err != nil {
		fmt.Fprintf(c.Stderr, "shopledgerctl: %v\n", err)
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return 2
		}
		return 1
	}
	return 0
}

func (c *OpsCLI) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "queue":
		if len(args) < 2 || args[1] != "stats" {
			return errUsage
		}
		return c.queueStats()
	case "trigger":
		if len(args) < 2 || args[1] != "warmup" {
			return errUsage
		}
		return c.triggerWarmup(ctx)
	case "export":
		return c.enqueueExport(ctx, args[1:])
	case "cache":
		if len(args) < 2 || args[1] != "bump" {
			return errUsage
		}
		return c.bump(ctx)
	default:
		return errUsage
	}
}

func (c *OpsCLI) queueStats() error {
	if c.Inspector == nil {
		return errors.New("inspector not configured")
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	info, err := c.Inspector.GetQueueInfo(jobs.QueueDefault)
	switch {
	case errors.Is(err, asynq.ErrQueueNotFound):
	case err != nil:
		return fmt.Errorf("inspect queue: %w", err)
	case info != nil:
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return c.print(stats)
}

func (c *OpsCLI) triggerWarmup(ctx context.Context) error {
	if c.Client == nil {
		return errors.New("client not configured")
	}
	info, err := c.Client.EnqueueContext(ctx, jobs.NewSnapshotWarmupTask(), asynq.Queue(jobs.QueueDefault))
	if err != nil {
		return fmt.Errorf("enqueue warmup: %w", err)
	}
	return c.print(map[string]string{"task_id": info.ID, "type": jobs.TaskSnapshotWarmup})
}

func (c *OpsCLI) enqueueExport(ctx context.Context, args []string) error {
	if c.Client == nil {
		return errors.New("client not configured")
	}
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(c.Stderr)
	var (
		report = fs.String("report", "", "report kind, e.g. profit-loss")
		format = fs.String("format", "csv", "csv, xlsx or pdf")
		q      reports.Query
	)
	fs.StringVar(&q.Period, "period", "", "all, today, weekly, monthly or custom")
	fs.StringVar(&q.From, "from", "", "custom period start (YYYY-MM-DD)")
	fs.StringVar(&q.To, "to", "", "custom period end (YYYY-MM-DD)")
	fs.StringVar(&q.BranchID, "branch", "", "branch id")
	fs.StringVar(&q.CustomerID, "customer", "", "customer id")
	fs.StringVar(&q.PaymentMode, "mode", "", "payment mode")
	fs.StringVar(&q.Kind, "kind", "", "customer or branch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kind, err := reports.ParseKind(*report)
	if err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	q = q.Canonical()
	if _, _, err := q.Filter(c.Location); err != nil {
		return err
	}

	payload := jobs.ExportPayload{
		JobID:       c.NewID(),
		Report:      string(kind),
		Format:      string(f),
		Query:       q,
		RequestedAt: c.Now().UTC(),
	}
	task, err := jobs.NewExportTask(payload)
	if err != nil {
		return err
	}
	if _, err := c.Client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
		return fmt.Errorf("enqueue export: %w", err)
	}
	return c.print(map[string]string{"job_id": payload.JobID, "report": payload.Report, "format": payload.Format})
}

func (c *OpsCLI) bump(ctx context.Context) error {
	if c.Cache == nil {
		return errors.New("snapshot cache not configured")
	}
	ver, err := c.Cache.Bump(ctx)
	if err != nil {
		return fmt.Errorf("bump cache: %w", err)
	}
	return c.print(map[string]int64{"version": ver})
}

func (c *OpsCLI) print(v any) error {
	enc := json.NewEncoder(c.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
