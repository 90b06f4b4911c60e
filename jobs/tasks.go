package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/reports"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExportReport renders a report export to the export directory.
	TaskExportReport = "reports:export"
	// TaskSnapshotWarmup refreshes the cached source snapshot.
	TaskSnapshotWarmup = "snapshot:warmup"
)

// ExportPayload describes a queued export.
type ExportPayload struct {
	JobID       string        `json:"job_id"`
	Report      string        `json:"report"`
	Format      string        `json:"format"`
	Query       reports.Query `json:"query"`
	RequestedAt time.Time     `json:"requested_at"`
}

// NewExportTask constructs an Asynq task. The job id doubles as the task id
// so a retried request never renders twice.
func NewExportTask(payload ExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportReport, data, asynq.TaskID(payload.JobID), asynq.MaxRetry(3)), nil
}

// NewSnapshotWarmupTask constructs the periodic warmup task.
func NewSnapshotWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskSnapshotWarmup, nil, asynq.MaxRetry(1))
}
