package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
	"github.com/ledgerbot-dev/ledgerbot/internal/metrics"
	"github.com/ledgerbot-dev/ledgerbot/internal/repository"
)

// Config tunes the scheduler. Zero values fall back to production defaults.
type Config struct {
	PollInterval  time.Duration // between ticks, default 10s
	MaxConcurrent int64         // in-flight job bound, default 2
	MaxAttempts   int           // per-job attempt budget at enqueue, default 3
	Retention     time.Duration // completed-job retention, default 7 days
}

func (c *Config) withDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Retention <= 0 {
		c.Retention = 7 * 24 * time.Hour
	}
}

// Status is the observability snapshot returned by Scheduler.Status.
type Status struct {
	Total             int   `json:"total"`
	Pending           int   `json:"pending"`
	Processing        int   `json:"processing"`
	Completed         int   `json:"completed"`
	Failed            int   `json:"failed"`
	CurrentProcessing int64 `json:"currentProcessing"`
	MaxConcurrent     int64 `json:"maxConcurrent"`
}

// Scheduler polls the job store on a fixed interval and runs up to
// MaxConcurrent jobs at a time, dispatching by job type. Eligible jobs are
// picked oldest first; there is no ordering guarantee across ticks once the
// pool is saturated.
type Scheduler struct {
	jobs     repository.JobRepository
	handlers map[constants.JobType]Handler
	cfg      Config

	sem      *semaphore.Weighted
	inFlight atomic.Int64
	wg       sync.WaitGroup

	collector *metrics.Collector
	log       *slog.Logger
}

func NewScheduler(jobs repository.JobRepository, cfg Config, collector *metrics.Collector, log *slog.Logger) *Scheduler {
	cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		jobs:      jobs,
		handlers:  make(map[constants.JobType]Handler),
		cfg:       cfg,
		sem:       semaphore.NewWeighted(cfg.MaxConcurrent),
		collector: collector,
		log:       log,
	}
}

// Register adds a handler for its job type. Not safe to call once Run has
// started.
func (s *Scheduler) Register(h Handler) {
	s.handlers[h.Type()] = h
}

// Enqueue persists a new pending job and returns its id. Storage errors are
// surfaced to the caller.
func (s *Scheduler) Enqueue(ctx context.Context, typ constants.JobType, payload any) (int64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}
	job := &entity.Job{
		Type:        typ,
		Status:      constants.JobStatusPending,
		Payload:     raw,
		MaxAttempts: s.cfg.MaxAttempts,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return 0, err
	}
	s.collector.RecordEnqueue()
	return job.ID, nil
}

// Run ticks until ctx is cancelled, then waits for in-flight jobs to settle.
// A failed tick is logged and the loop keeps going. Completed jobs older than
// the retention window are swept hourly.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	sweep := time.NewTicker(time.Hour)
	defer sweep.Stop()

	s.log.Info("scheduler started",
		"poll_interval", s.cfg.PollInterval,
		"max_concurrent", s.cfg.MaxConcurrent,
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping, draining in-flight jobs")
			s.wg.Wait()
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.log.Error("tick failed", "error", err)
			}
		case <-sweep.C:
			if _, err := s.SweepCompleted(ctx, s.cfg.Retention); err != nil {
				s.log.Error("retention sweep failed", "error", err)
			}
		}
	}
}

// Tick claims and dispatches up to the remaining concurrency headroom. A
// no-op when the pool is saturated. One job's claim or handler failure never
// prevents the others selected in the same tick from running.
func (s *Scheduler) Tick(ctx context.Context) error {
	capacity := s.cfg.MaxConcurrent - s.inFlight.Load()
	if capacity <= 0 {
		return nil
	}

	eligible, err := s.jobs.SelectEligible(ctx, int(capacity))
	if err != nil {
		return fmt.Errorf("select eligible: %w", err)
	}

	for _, job := range eligible {
		if !s.sem.TryAcquire(1) {
			break
		}
		claimed, err := s.jobs.MarkProcessing(ctx, job.ID)
		if err != nil {
			s.sem.Release(1)
			s.log.Error("claim failed", "job_id", job.ID, "error", err)
			continue
		}
		if claimed == nil {
			// raced with another claim
			s.sem.Release(1)
			continue
		}

		s.wg.Add(1)
		s.inFlight.Add(1)
		s.collector.SetInFlight(int(s.inFlight.Load()))

		// Dispatched jobs run to completion even during shutdown; the
		// handler's own call timeouts bound their lifetime.
		go s.runJob(context.WithoutCancel(ctx), claimed)
	}
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, job *entity.Job) {
	start := time.Now()
	defer func() {
		s.inFlight.Add(-1)
		s.collector.SetInFlight(int(s.inFlight.Load()))
		s.sem.Release(1)
		s.wg.Done()
	}()

	err := s.dispatch(ctx, job)
	elapsed := time.Since(start)

	if err == nil {
		if err := s.jobs.MarkCompleted(ctx, job.ID); err != nil {
			s.log.Error("mark completed failed", "job_id", job.ID, "error", err)
			return
		}
		s.collector.RecordCompleted(elapsed.Seconds())
		s.log.Info("job completed", "job_id", job.ID, "type", job.Type,
			"attempt", job.Attempts, "elapsed_ms", elapsed.Milliseconds())
		return
	}

	terminal := job.FinalAttempt()
	if rerr := s.jobs.RecordFailure(ctx, job.ID, err.Error(), terminal); rerr != nil {
		s.log.Error("record failure failed", "job_id", job.ID, "error", rerr)
	}
	s.collector.RecordFailed(elapsed.Seconds())
	if terminal {
		s.log.Error("job failed permanently", "job_id", job.ID, "type", job.Type,
			"attempts", job.Attempts, "error", err)
	} else {
		s.log.Warn("job attempt failed, will retry", "job_id", job.ID, "type", job.Type,
			"attempt", job.Attempts, "max_attempts", job.MaxAttempts, "error", err)
	}
}

// dispatch routes to the registered handler and converts panics into errors
// so one job can never take the scheduler down.
func (s *Scheduler) dispatch(ctx context.Context, job *entity.Job) (err error) {
	handler, ok := s.handlers[job.Type]
	if !ok {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, job)
}

// Status returns aggregate counts by status plus the in-flight snapshot.
// Read-only.
func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	counts, err := s.jobs.CountByStatus(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		Pending:           counts[constants.JobStatusPending],
		Processing:        counts[constants.JobStatusProcessing],
		Completed:         counts[constants.JobStatusCompleted],
		Failed:            counts[constants.JobStatusFailed],
		CurrentProcessing: s.inFlight.Load(),
		MaxConcurrent:     s.cfg.MaxConcurrent,
	}
	st.Total = st.Pending + st.Processing + st.Completed + st.Failed
	s.collector.SetPending(st.Pending)
	return st, nil
}

// RetryFailed resets up to limit failed jobs for another round of attempts.
// Administrative; storage errors go straight back to the caller.
func (s *Scheduler) RetryFailed(ctx context.Context, limit int) (int64, error) {
	return s.jobs.RetryFailed(ctx, limit)
}

// SweepCompleted deletes completed jobs older than the given age.
func (s *Scheduler) SweepCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.jobs.DeleteCompletedBefore(ctx, time.Now().Add(-olderThan))
}
