package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-catalog/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// reindexUniqueTTL is the window in which an identical reindex request is
// rejected with asynq.ErrDuplicateTask.
const reindexUniqueTTL = time.Minute

// CatalogReindexPayload carries reindex options. The payload is part of the
// uniqueness key, so it holds only what distinguishes one request from another.
type CatalogReindexPayload struct {
	Bump   bool   `json:"bump"`
	Reason string `json:"reason,omitempty"`
}

// NewCatalogReindexTask builds a reindex task. Bump advances the sales
// version so every process drops its cached index.
func NewCatalogReindexTask(bump bool, reason string) (*asynq.Task, error) {
	payload := CatalogReindexPayload{Bump: bump, Reason: reason}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogReindex, body, asynq.Queue(QueueDefault), asynq.Unique(reindexUniqueTTL)), nil
}

// VersionBumper advances the sales collection version.
type VersionBumper interface {
	Bump(ctx context.Context) (int64, error)
}

// IndexWarmer builds the sales index for the current version.
type IndexWarmer interface {
	Warm(ctx context.Context) error
}

// CatalogReindexJob bumps the sales version on request and warms the index.
type CatalogReindexJob struct {
	Versions VersionBumper
	Index    IndexWarmer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewCatalogReindexJob wires dependencies for the reindex handler.
func NewCatalogReindexJob(versions VersionBumper, index IndexWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogReindexJob {
	return &CatalogReindexJob{Versions: versions, Index: index, Logger: logger, Metrics: metrics}
}

// Handle processes catalog reindex tasks.
func (j *CatalogReindexJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Index == nil {
		return errors.New("catalog reindex: handler not configured")
	}
	var payload CatalogReindexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskCatalogReindex)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	taskID, ok := asynq.GetTaskID(ctx)
	if !ok {
		taskID = uuid.NewString()
	}
	logger := j.logger().With(slog.String("task_id", taskID))
	start := time.Now()
	if payload.Bump && j.Versions != nil {
		ver, err := j.Versions.Bump(ctx)
		if err != nil {
			logger.Error("bump sales version", slog.Any("error", err))
			return err
		}
		logger = logger.With(slog.Int64("version", ver))
	}
	if err := j.Index.Warm(ctx); err != nil {
		logger.Error("warm sales index", slog.Any("error", err))
		return err
	}
	logger.Info("catalog reindexed", slog.String("reason", payload.Reason), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *CatalogReindexJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *CatalogReindexJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
