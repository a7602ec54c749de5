package etl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"consultetl/internal/domain"
)

// ── SyncJob ────────────────────────────────────────────────
// Orchestrates: source.Extract → transform → destination.Write.
// Each stage catches its own failures, logs them and hands an empty
// result to the next stage, so a run always ends with a status message.

// Status messages reported by Load.
const (
	StatusLoaded     = "Data loaded or saved successfully."
	StatusLoadFailed = "Data loading unsuccessful."
)

// SyncJob holds the configuration for the consultation sync.
type SyncJob struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	SourceType string       `json:"sourceType"`
	SourceCfg  SourceConfig `json:"sourceConfig"`
}

// SyncResult is the outcome of running a sync job.
type SyncResult struct {
	JobID    string        `json:"jobId"`
	RunID    string        `json:"runId"`
	Status   string        `json:"status"` // "success" | "error"
	Message  string        `json:"message"`
	Tables   []string      `json:"tables"`
	Stats    Stats         `json:"stats"`
	Duration time.Duration `json:"duration"`
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs sync jobs using the registered sources and a destination.
type Engine struct {
	Dest   Destination
	Logger *slog.Logger
	// Now supplies the reference time for derived fields. Defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// RunSync executes a sync job end-to-end and never fails; the outcome is
// carried by the result's Status and Message.
func (e *Engine) RunSync(ctx context.Context, job *SyncJob) *SyncResult {
	start := time.Now()
	result := &SyncResult{JobID: job.ID, RunID: uuid.New().String()}
	logger := e.logger().With("job", job.Name, "run_id", result.RunID)
	ctx = withLogger(ctx, logger)

	logger.Info("sync started", "source", job.SourceType)

	raw := e.Extract(ctx, job)
	result.Stats.Extracted = len(raw)

	tables := e.Transform(ctx, raw)
	result.Tables = TableNames(tables)
	result.Stats.Tables = len(tables)
	if len(tables) > 0 {
		result.Stats.Staged = len(raw)
	}
	for _, t := range tables {
		result.Stats.Retained += len(t.Records)
	}

	result.Message = e.Load(ctx, tables)
	result.Status = "success"
	if result.Message == StatusLoaded {
		result.Stats.Loaded = result.Stats.Retained
	} else {
		result.Status = "error"
	}
	result.Duration = time.Since(start)

	logger.Info("sync finished",
		"status", result.Status,
		"stats", result.Stats,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result
}

// Extract reads raw records for job. On any failure the error is logged
// and an empty slice is returned.
func (e *Engine) Extract(ctx context.Context, job *SyncJob) []domain.RawRecord {
	logger := loggerFrom(ctx, e.logger())

	source, err := GetSource(job.SourceType)
	if err == nil {
		err = ValidateConfig(source.Spec(), job.SourceCfg)
	}
	if err != nil {
		logFailure(logger, StageExtract, errors.WithStack(err))
		return nil
	}

	records, err := source.Extract(ctx, job.SourceCfg)
	if err != nil {
		logFailure(logger, StageExtract, err)
		return nil
	}
	logger.Debug("extracted records", "stage", StageExtract, "records", len(records))
	return records
}

// Transform stages, deduplicates and partitions raw records. On any failure
// the error is logged and an empty map is returned.
func (e *Engine) Transform(ctx context.Context, raw []domain.RawRecord) map[string]domain.CountryTable {
	logger := loggerFrom(ctx, e.logger())

	tables, err := TransformRecords(raw, e.now())
	if err != nil {
		logFailure(logger, StageTransform, err)
		return map[string]domain.CountryTable{}
	}
	logger.Debug("transformed records", "stage", StageTransform, "tables", len(tables))
	return tables
}

// Load writes every table to the destination in table name order and
// returns StatusLoaded, or StatusLoadFailed at the first failing write.
// Tables written before a failure are left in place.
func (e *Engine) Load(ctx context.Context, tables map[string]domain.CountryTable) string {
	logger := loggerFrom(ctx, e.logger())

	for _, name := range TableNames(tables) {
		table := tables[name]
		if err := e.Dest.Write(ctx, table); err != nil {
			logFailure(logger, StageLoad, errors.Wrapf(err, "table %s", name))
			return StatusLoadFailed
		}
		logger.Debug("table written", "stage", StageLoad, "table", name, "rows", len(table.Records))
	}
	return StatusLoaded
}

// stackTracer is implemented by errors created with github.com/pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// logFailure logs err with its concrete type and, when available, the
// stack trace captured where it was created.
func logFailure(logger *slog.Logger, stage Stage, err error) {
	attrs := []any{
		"stage", stage,
		"error_type", fmt.Sprintf("%T", errors.Cause(err)),
		"error", err.Error(),
	}
	if _, ok := err.(stackTracer); ok {
		attrs = append(attrs, "stack", fmt.Sprintf("%+v", err))
	}
	logger.Error(string(stage)+" failed", attrs...)
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}
