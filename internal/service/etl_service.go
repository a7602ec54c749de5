package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"consultetl/internal/config"
	"consultetl/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// ETL Service: runs the consultation sync and its triggers
// ─────────────────────────────────────────────────────────────

// EventJobCompleted is emitted with the *etl.SyncResult of every finished run.
const EventJobCompleted = "etl:job-completed"

// ETLService runs the consultation sync job once, on a schedule or on
// input file changes. Runs never overlap.
type ETLService struct {
	cfg         config.Config
	job         *etl.SyncJob
	engine      *etl.Engine
	emitter     EventEmitter
	logger      *slog.Logger
	runningJobs runningJobsGuard

	// watcher / cron lifecycle
	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewETLService creates an ETLService ready for use.
func NewETLService(
	cfg config.Config,
	engine *etl.Engine,
	emitter EventEmitter,
	logger *slog.Logger,
) *ETLService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ETLService{
		cfg:     cfg,
		job:     NewSyncJob(cfg),
		engine:  engine,
		emitter: emitter,
		logger:  logger,
	}
}

// NewSyncJob builds the master file sync job described by cfg.
func NewSyncJob(cfg config.Config) *etl.SyncJob {
	return &etl.SyncJob{
		ID:         uuid.New().String(),
		Name:       "consultations",
		SourceType: "master_file",
		SourceCfg: etl.SourceConfig{
			"filePath":     cfg.InputPath,
			"delimiter":    cfg.Delimiter,
			"detailMarker": cfg.DetailMarker,
		},
	}
}

// Job returns the sync job run by the service.
func (s *ETLService) Job() *etl.SyncJob { return s.job }

// Running reports whether a run is in progress.
func (s *ETLService) Running() bool { return s.runningJobs.Running(s.job.ID) }

// ── Run ────────────────────────────────────────────────────

// RunJob executes the sync synchronously and emits EventJobCompleted.
// It fails only when a run is already in progress.
func (s *ETLService) RunJob(ctx context.Context) (*etl.SyncResult, error) {
	if !s.runningJobs.TryLock(s.job.ID) {
		return nil, fmt.Errorf("job %s is already running", s.job.Name)
	}
	defer s.runningJobs.Unlock(s.job.ID)

	result := s.engine.RunSync(ctx, s.job)
	s.emitter.Emit(ctx, EventJobCompleted, result)
	return result, nil
}

// Start installs the configured trigger. For TriggerManual it runs the job
// once and returns; the other triggers keep running until Stop.
func (s *ETLService) Start(ctx context.Context) error {
	s.logger.Info("etl: starting",
		"job", s.job.Name,
		"trigger", s.cfg.Trigger.Type,
		"source", s.job.SourceType,
		"registered_sources", lo.Map(etl.ListSources(), func(spec etl.SourceSpec, _ int) string { return spec.Type }),
	)
	switch s.cfg.Trigger.Type {
	case config.TriggerSchedule:
		return s.startCron(ctx)
	case config.TriggerFileWatch:
		return s.startWatcher(ctx)
	default:
		_, err := s.RunJob(ctx)
		return err
	}
}

// ── Watchers (cron + file_watch) ──────────────────────────

func (s *ETLService) startCron(ctx context.Context) error {
	s.stopWatchers()

	c := cron.New()
	_, err := c.AddFunc(s.cfg.Trigger.Schedule, func() {
		s.logger.Info("etl cron: running job", "job", s.job.Name)
		if _, err := s.RunJob(ctx); err != nil {
			s.logger.Warn("etl cron: run skipped", "job", s.job.Name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.cfg.Trigger.Schedule, err)
	}
	c.Start()

	s.mu.Lock()
	s.cronSched = c
	s.mu.Unlock()
	s.logger.Info("etl cron: scheduled job", "job", s.job.Name, "schedule", s.cfg.Trigger.Schedule)
	return nil
}

func (s *ETLService) startWatcher(ctx context.Context) error {
	s.stopWatchers()

	absPath, err := filepath.Abs(s.cfg.InputPath)
	if err != nil {
		return fmt.Errorf("bad input path %q: %w", s.cfg.InputPath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are still seen.
	dir := filepath.Dir(absPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.watcher = watcher
	s.watchCancel = cancel
	s.mu.Unlock()

	debounce := s.cfg.Trigger.WatchDebounce
	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if p, _ := filepath.Abs(event.Name); p != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					s.logger.Info("etl watcher: file changed, running job", "path", absPath, "job", s.job.Name)
					if _, err := s.RunJob(ctx); err != nil {
						s.logger.Warn("etl watcher: run skipped", "job", s.job.Name, "error", err)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("etl watcher: error", "error", err)
			}
		}
	}()

	s.logger.Info("etl watcher: watching file", "path", absPath)
	return nil
}

// WaitRunning blocks until the running job finishes or ctx is cancelled.
// Used for graceful shutdown.
func (s *ETLService) WaitRunning(ctx context.Context) {
	s.runningJobs.WaitAll(ctx)
}

// Stop tears down all watchers and schedulers.
func (s *ETLService) Stop() {
	s.stopWatchers()
}

func (s *ETLService) stopWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
