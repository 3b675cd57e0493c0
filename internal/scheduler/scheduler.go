package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsletterIngest/internal/domain"
	"NewsletterIngest/internal/metrics"
)

// SyncRunner is the ingestion entry point the scheduler drives.
type SyncRunner interface {
	SyncAll(ctx context.Context) (domain.SyncSummary, error)
	SyncOne(ctx context.Context, publicationID string) (domain.PublicationResult, error)
}

// Config controls cadence, retries, and history retention.
type Config struct {
	Enabled      bool
	Interval     time.Duration
	WarmupDelay  time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	HistoryLimit int
}

// DefaultConfig matches the production cadence.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Interval:     6 * time.Hour,
		WarmupDelay:  30 * time.Second,
		MaxRetries:   3,
		RetryDelay:   5 * time.Minute,
		HistoryLimit: 50,
	}
}

// ConfigPatch carries partial updates; nil fields keep current values.
type ConfigPatch struct {
	Enabled    *bool
	Interval   *time.Duration
	MaxRetries *int
	RetryDelay *time.Duration
}

// Status is the operator-facing snapshot of the scheduler.
type Status struct {
	Enabled           bool
	Running           bool
	Config            Config
	ActiveJobCount    int
	TotalJobCount     int
	LastJob           *domain.SyncJob
	NextSyncInMinutes int // -1 when no run is scheduled
}

// Scheduler triggers sync passes on an interval and on demand, retries
// failed passes with a bounded delay, and retains a capped in-memory
// job history. Overlapping automatic and manual passes are not
// mutually excluded; each gets its own job.
type Scheduler struct {
	mu sync.Mutex

	runner SyncRunner
	clock  Clock
	cfg    Config
	logger *slog.Logger

	running       bool
	intervalTimer Timer
	nextRunAt     time.Time
	jobs          []*domain.SyncJob // oldest first
	retryTimers   map[string]Timer
}

// New builds a scheduler; a nil clock selects the real one.
func New(runner SyncRunner, cfg Config, clock Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	return &Scheduler{
		runner:      runner,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
		retryTimers: map[string]Timer{},
	}
}

// Start schedules the warm-up pass and then a recurring pass at the
// configured interval until Stop is called.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

func (s *Scheduler) startLocked() {
	if s.running || !s.cfg.Enabled {
		return
	}
	s.running = true
	s.scheduleNextLocked(s.cfg.WarmupDelay)
	s.logger.Info("scheduler started", "interval", s.cfg.Interval, "warmup", s.cfg.WarmupDelay)
}

// Stop cancels the interval timer and every pending retry timer. It
// does not abort an in-flight pass; cancellation is cooperative.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	// Timers are swept even when not running: a manually triggered job
	// may hold a retry timer regardless of the interval state.
	if s.intervalTimer != nil {
		s.intervalTimer.Stop()
		s.intervalTimer = nil
	}
	for id, t := range s.retryTimers {
		t.Stop()
		delete(s.retryTimers, id)
	}
	if !s.running {
		return
	}
	s.running = false
	s.nextRunAt = time.Time{}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) scheduleNextLocked(d time.Duration) {
	s.nextRunAt = s.clock.Now().Add(d)
	s.intervalTimer = s.clock.AfterFunc(d, s.tick)
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.scheduleNextLocked(s.cfg.Interval)
	s.mu.Unlock()

	job := s.newJob("interval")
	s.runJob(job, s.syncAll)
}

// TriggerManualSync executes a pass outside the regular interval,
// reusing the job machinery. Returns a snapshot of the created job.
func (s *Scheduler) TriggerManualSync() domain.SyncJob {
	job := s.newJob("manual")
	go s.runJob(job, s.syncAll)
	return s.snapshot(job)
}

// TriggerPublication runs a pass for a single publication.
func (s *Scheduler) TriggerPublication(publicationID string) domain.SyncJob {
	job := s.newJob("manual")
	go s.runJob(job, func(ctx context.Context) (domain.SyncSummary, error) {
		result, err := s.runner.SyncOne(ctx, publicationID)
		summary := domain.SyncSummary{
			Publications: []domain.PublicationResult{result},
			Success:      err == nil && result.Success,
		}
		return summary, err
	})
	return s.snapshot(job)
}

func (s *Scheduler) syncAll(ctx context.Context) (domain.SyncSummary, error) {
	return s.runner.SyncAll(ctx)
}

func (s *Scheduler) newJob(trigger string) *domain.SyncJob {
	job := &domain.SyncJob{
		ID:          uuid.NewString(),
		Trigger:     trigger,
		ScheduledAt: s.clock.Now(),
		Status:      domain.JobPending,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	for len(s.jobs) > s.cfg.HistoryLimit {
		evicted := s.jobs[0]
		s.jobs = s.jobs[1:]
		if t, ok := s.retryTimers[evicted.ID]; ok {
			t.Stop()
			delete(s.retryTimers, evicted.ID)
		}
	}
	return job
}

// runJob drives one job through the state machine, scheduling a retry
// on failure until the retry budget is exhausted.
func (s *Scheduler) runJob(job *domain.SyncJob, run func(context.Context) (domain.SyncSummary, error)) {
	s.mu.Lock()
	job.Status = domain.JobRunning
	job.ExecutedAt = s.clock.Now()
	s.mu.Unlock()

	summary, err := s.safeRun(run)

	s.mu.Lock()
	defer s.mu.Unlock()

	job.CompletedAt = s.clock.Now()
	job.Results = &summary

	if err == nil {
		job.Status = domain.JobCompleted
		metrics.SyncJobs.WithLabelValues(string(domain.JobCompleted)).Inc()
		s.logger.Info("sync job completed", "job", job.ID, "trigger", job.Trigger)
		return
	}

	job.Error = err.Error()
	// A stopped scheduler never schedules retries, including for a pass
	// that was already in flight when Stop was called.
	if s.running && job.RetryCount < s.cfg.MaxRetries {
		job.RetryCount++
		job.Status = domain.JobRetrying
		t := s.clock.AfterFunc(s.cfg.RetryDelay, func() {
			s.mu.Lock()
			delete(s.retryTimers, job.ID)
			s.mu.Unlock()
			s.runJob(job, run)
		})
		s.retryTimers[job.ID] = t
		s.logger.Warn("sync job failed, retry scheduled",
			"job", job.ID, "retry", job.RetryCount, "max_retries", s.cfg.MaxRetries, "error", err)
		return
	}

	job.Status = domain.JobFailed
	metrics.SyncJobs.WithLabelValues(string(domain.JobFailed)).Inc()
	s.logger.Error("sync job failed terminally", "job", job.ID, "retries", job.RetryCount, "error", err)
}

// safeRun converts panics from a pass into job failures so the
// scheduler itself never dies.
func (s *Scheduler) safeRun(run func(context.Context) (domain.SyncSummary, error)) (summary domain.SyncSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync pass panic: %v", r)
		}
	}()
	return run(context.Background())
}

// GetStatus reports the current scheduler state.
func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Enabled:           s.cfg.Enabled,
		Running:           s.running,
		Config:            s.cfg,
		TotalJobCount:     len(s.jobs),
		NextSyncInMinutes: -1,
	}
	for _, job := range s.jobs {
		if job.Status == domain.JobRunning || job.Status == domain.JobRetrying || job.Status == domain.JobPending {
			status.ActiveJobCount++
		}
	}
	if len(s.jobs) > 0 {
		last := *s.jobs[len(s.jobs)-1]
		status.LastJob = &last
	}
	if s.running && !s.nextRunAt.IsZero() {
		status.NextSyncInMinutes = int(s.nextRunAt.Sub(s.clock.Now()).Minutes())
	}
	return status
}

// JobHistory returns up to limit jobs, newest first.
func (s *Scheduler) JobHistory(limit int) []domain.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.jobs) {
		limit = len(s.jobs)
	}
	history := make([]domain.SyncJob, 0, limit)
	for i := len(s.jobs) - 1; i >= 0 && len(history) < limit; i-- {
		history = append(history, *s.jobs[i])
	}
	return history
}

// UpdateConfig applies new settings. An interval change while running
// restarts the cadence; disabling stops the scheduler.
func (s *Scheduler) UpdateConfig(patch ConfigPatch) Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	intervalChanged := false
	if patch.Interval != nil && *patch.Interval != s.cfg.Interval {
		s.cfg.Interval = *patch.Interval
		intervalChanged = true
	}
	if patch.MaxRetries != nil {
		s.cfg.MaxRetries = *patch.MaxRetries
	}
	if patch.RetryDelay != nil {
		s.cfg.RetryDelay = *patch.RetryDelay
	}
	if patch.Enabled != nil {
		s.cfg.Enabled = *patch.Enabled
	}

	switch {
	case !s.cfg.Enabled && s.running:
		s.stopLocked()
	case s.cfg.Enabled && !s.running:
		s.startLocked()
	case intervalChanged && s.running:
		s.stopLocked()
		s.startLocked()
	}
	return s.cfg
}

func (s *Scheduler) snapshot(job *domain.SyncJob) domain.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *job
}
