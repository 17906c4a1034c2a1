// Package scheduler drives reconciliation passes: a periodic full pass over
// everything, plus debounced partial passes triggered by webhooks. Webhook
// bursts within the debounce window coalesce into a single merged scope, so
// an inventory storm costs one pass instead of one per delivery.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Sync Job Types
// ---------------------------------------------------------------------------

// SyncJobStatus represents the status of a reconciliation job
type SyncJobStatus string

const (
	SyncJobStatusPending SyncJobStatus = "PENDING"
	SyncJobStatusRunning SyncJobStatus = "RUNNING"
	SyncJobStatusSuccess SyncJobStatus = "SUCCESS"
	SyncJobStatusPartial SyncJobStatus = "PARTIAL"
	SyncJobStatusFailed  SyncJobStatus = "FAILED"
)

// Job trigger sources
const (
	TriggerSchedule = "schedule"
	TriggerWebhook  = "webhook"
	TriggerManual   = "manual"
)

// SyncJob represents one queued reconciliation pass
type SyncJob struct {
	ID          uuid.UUID
	Scope       syncdomain.Scope
	Trigger     string
	Status      SyncJobStatus
	Error       string
	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	// Pass results
	Applied   int
	Skipped   int
	Failed    int
	Conflicts int
}

// NewSyncJob creates a pending job for a scope
func NewSyncJob(scope syncdomain.Scope, trigger string) *SyncJob {
	return &SyncJob{
		ID:         uuid.New(),
		Scope:      scope,
		Trigger:    trigger,
		Status:     SyncJobStatusPending,
		EnqueuedAt: time.Now(),
	}
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
}

// Complete records the pass outcome
func (j *SyncJob) Complete(applied, skipped, failed, conflicts int) {
	now := time.Now()
	j.Applied = applied
	j.Skipped = skipped
	j.Failed = failed
	j.Conflicts = conflicts
	j.CompletedAt = &now

	if failed == 0 {
		j.Status = SyncJobStatusSuccess
	} else if applied > 0 || skipped > 0 {
		j.Status = SyncJobStatusPartial
	} else {
		j.Status = SyncJobStatusFailed
	}
}

// Fail marks the job as failed outright
func (j *SyncJob) Fail(err string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ---------------------------------------------------------------------------
// SyncExecutor Interface
// ---------------------------------------------------------------------------

// SyncExecutor runs one reconciliation pass and fills in the job's counters
type SyncExecutor interface {
	Execute(ctx context.Context, job *SyncJob) error
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds sync scheduler configuration
type Config struct {
	// FullSyncInterval is how often a full pass is queued
	FullSyncInterval time.Duration
	// DebounceWindow is how long webhook-triggered scopes accumulate before
	// one merged partial pass is queued
	DebounceWindow time.Duration
	// MaxConcurrentJobs is the worker pool size
	MaxConcurrentJobs int
	// JobTimeout bounds a single pass
	JobTimeout time.Duration
	// QueueCapacity is the pending job channel capacity
	QueueCapacity int
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		FullSyncInterval:  5 * time.Minute,
		DebounceWindow:    2 * time.Second,
		MaxConcurrentJobs: 2,
		JobTimeout:        10 * time.Minute,
		QueueCapacity:     100,
	}
}

// Validate validates the configuration
func (c Config) Validate() error {
	if c.FullSyncInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.DebounceWindow <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueCapacity <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler manages queued reconciliation passes
type SyncScheduler struct {
	config   Config
	executor SyncExecutor
	logger   *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Debounce state for webhook-triggered scopes
	debounceMu    sync.Mutex
	pendingScope  syncdomain.Scope
	debounceTimer *time.Timer

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*SyncJob
	maxHistory int
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config Config, executor SyncExecutor, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncScheduler{
		config:     config,
		executor:   executor,
		logger:     logger,
		jobs:       make(chan *SyncJob, config.QueueCapacity),
		history:    make([]*SyncJob, 0, 100),
		maxHistory: 100,
	}, nil
}

// Start starts the worker pool and the periodic full pass ticker
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.wg.Add(1)
	go s.fullPassLoop(ctx)

	s.logger.Info("sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("full_sync_interval", s.config.FullSyncInterval),
		zap.Duration("debounce_window", s.config.DebounceWindow))
	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	s.debounceMu.Lock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
	s.debounceMu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Enqueue merges a webhook-derived scope into the debounce window. The
// merged partial pass is queued once the window elapses.
func (s *SyncScheduler) Enqueue(scope syncdomain.Scope) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	if scope.IsEmpty() {
		return nil
	}

	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()

	s.pendingScope = s.pendingScope.Merge(scope)
	if s.debounceTimer == nil {
		s.debounceTimer = time.AfterFunc(s.config.DebounceWindow, s.flushPending)
	}
	return nil
}

// flushPending queues the accumulated scope as one partial pass
func (s *SyncScheduler) flushPending() {
	s.debounceMu.Lock()
	scope := s.pendingScope
	s.pendingScope = syncdomain.PartialScope(nil, nil)
	s.debounceTimer = nil
	s.debounceMu.Unlock()

	if scope.IsEmpty() {
		return
	}
	if err := s.submit(NewSyncJob(scope, TriggerWebhook)); err != nil {
		s.logger.Warn("failed to queue debounced pass", zap.Error(err))
	}
}

// TriggerNow queues a pass immediately, bypassing the debounce window.
// Used by the manual trigger endpoint.
func (s *SyncScheduler) TriggerNow(scope syncdomain.Scope) (*SyncJob, error) {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil, ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	job := NewSyncJob(scope, TriggerManual)
	if err := s.submit(job); err != nil {
		return nil, err
	}
	return job, nil
}

// submit queues a job. Holding the run lock orders submissions before the
// channel close in Stop.
func (s *SyncScheduler) submit(job *SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	select {
	case s.jobs <- job:
		s.logger.Debug("sync job queued",
			zap.String("job_id", job.ID.String()),
			zap.String("trigger", job.Trigger),
			zap.Bool("full", job.Scope.IsFull()))
		return nil
	default:
		return ErrJobQueueFull
	}
}

// fullPassLoop queues a full pass on every tick
func (s *SyncScheduler) fullPassLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.FullSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.submit(NewSyncJob(syncdomain.FullScope(), TriggerSchedule)); err != nil {
				s.logger.Warn("failed to queue scheduled full pass", zap.Error(err))
			}
		}
	}
}

// worker processes jobs from the queue
func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	job.Start()

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	err := s.executor.Execute(jobCtx, job)
	if err != nil {
		job.Fail(err.Error())
		s.logger.Error("sync job failed",
			zap.String("job_id", job.ID.String()),
			zap.String("trigger", job.Trigger),
			zap.Int("worker_id", workerID),
			zap.Error(err))
	} else {
		s.logger.Info("sync job completed",
			zap.String("job_id", job.ID.String()),
			zap.String("trigger", job.Trigger),
			zap.String("status", string(job.Status)),
			zap.Int("applied", job.Applied),
			zap.Int("failed", job.Failed),
			zap.Int("conflicts", job.Conflicts))
	}
	s.recordHistory(job)
}

// recordHistory appends the job to the bounded in-memory history
func (s *SyncScheduler) recordHistory(job *SyncJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append(s.history, job)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
}

// History returns recent jobs, newest last
func (s *SyncScheduler) History(limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]*SyncJob, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}

// IsRunning reports whether the scheduler is started
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
