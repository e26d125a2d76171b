package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
	"github.com/ledgerbot-dev/ledgerbot/internal/platform/sqlite"
	"github.com/ledgerbot-dev/ledgerbot/internal/repository"
)

type stubHandler struct {
	typ   constants.JobType
	fn    func(ctx context.Context, job *entity.Job) error
	calls atomic.Int64
}

func (h *stubHandler) Type() constants.JobType { return h.typ }

func (h *stubHandler) Handle(ctx context.Context, job *entity.Job) error {
	h.calls.Add(1)
	if h.fn == nil {
		return nil
	}
	return h.fn(ctx, job)
}

func setupScheduler(t *testing.T, cfg Config) (*Scheduler, repository.JobRepository) {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	jobs := repository.NewJobRepository(db.DB, slog.Default())
	return NewScheduler(jobs, cfg, nil, slog.Default()), jobs
}

func TestScheduler_TickCompletesJob(t *testing.T) {
	sched, jobs := setupScheduler(t, Config{})
	ctx := context.Background()

	handler := &stubHandler{typ: constants.JobTypeReceipt}
	sched.Register(handler)

	id, err := sched.Enqueue(ctx, constants.JobTypeReceipt, entity.ReceiptPayload{ReceiptID: 1})
	require.NoError(t, err)
	require.NotZero(t, id)

	require.NoError(t, sched.Tick(ctx))

	require.Eventually(t, func() bool {
		j, err := jobs.Get(ctx, id)
		return err == nil && j.Status == constants.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	j, err := jobs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, j.Attempts)
	assert.Nil(t, j.ErrorMessage)
	assert.EqualValues(t, 1, handler.calls.Load())
}

func TestScheduler_RetriesThenFailsPermanently(t *testing.T) {
	sched, jobs := setupScheduler(t, Config{MaxAttempts: 3})
	ctx := context.Background()

	handler := &stubHandler{
		typ: constants.JobTypeReceipt,
		fn: func(context.Context, *entity.Job) error {
			return errors.New("model unavailable")
		},
	}
	sched.Register(handler)

	id, err := sched.Enqueue(ctx, constants.JobTypeReceipt, entity.ReceiptPayload{ReceiptID: 1})
	require.NoError(t, err)

	// keep ticking; each failed attempt puts the job back to pending until
	// the attempt budget runs out
	require.Eventually(t, func() bool {
		_ = sched.Tick(ctx)
		j, err := jobs.Get(ctx, id)
		return err == nil && j.Status == constants.JobStatusFailed
	}, 3*time.Second, 10*time.Millisecond)

	j, err := jobs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, j.Attempts)
	require.NotNil(t, j.ErrorMessage)
	assert.Contains(t, *j.ErrorMessage, "model unavailable")
	assert.EqualValues(t, 3, handler.calls.Load())

	// failed is terminal: further ticks never pick the job up again
	require.NoError(t, sched.Tick(ctx))
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 3, handler.calls.Load())
}

func TestScheduler_ConcurrencyBound(t *testing.T) {
	sched, _ := setupScheduler(t, Config{MaxConcurrent: 2})
	ctx := context.Background()

	release := make(chan struct{})
	var running, maxRunning atomic.Int64
	handler := &stubHandler{
		typ: constants.JobTypeReceipt,
		fn: func(context.Context, *entity.Job) error {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			<-release
			return nil
		},
	}
	sched.Register(handler)

	for i := 0; i < 4; i++ {
		_, err := sched.Enqueue(ctx, constants.JobTypeReceipt, entity.ReceiptPayload{ReceiptID: int64(i)})
		require.NoError(t, err)
	}

	require.NoError(t, sched.Tick(ctx))

	// both claimed handlers are parked on the release gate
	require.Eventually(t, func() bool { return running.Load() == 2 }, 2*time.Second, 5*time.Millisecond)

	st, err := sched.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.CurrentProcessing)
	assert.Equal(t, 2, st.Processing)
	assert.Equal(t, 2, st.Pending)

	// pool saturated, another tick picks up nothing
	require.NoError(t, sched.Tick(ctx))
	st, err = sched.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.CurrentProcessing)

	close(release)

	require.Eventually(t, func() bool {
		_ = sched.Tick(ctx)
		st, err := sched.Status(ctx)
		return err == nil && st.Completed == 4 && st.CurrentProcessing == 0
	}, 3*time.Second, 10*time.Millisecond)

	assert.EqualValues(t, 2, maxRunning.Load())
}

func TestScheduler_UnknownJobType(t *testing.T) {
	sched, jobs := setupScheduler(t, Config{MaxAttempts: 1})
	ctx := context.Background()

	id, err := sched.Enqueue(ctx, constants.JobTypeEmail, entity.EmailPayload{EmailID: 9})
	require.NoError(t, err)

	require.NoError(t, sched.Tick(ctx))

	require.Eventually(t, func() bool {
		j, err := jobs.Get(ctx, id)
		return err == nil && j.Status == constants.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	j, err := jobs.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, j.ErrorMessage)
	assert.Contains(t, *j.ErrorMessage, "unknown job type")
}

func TestScheduler_PanicDoesNotAffectOtherJobs(t *testing.T) {
	sched, jobs := setupScheduler(t, Config{MaxAttempts: 1, MaxConcurrent: 2})
	ctx := context.Background()

	handler := &stubHandler{
		typ: constants.JobTypeReceipt,
		fn: func(_ context.Context, job *entity.Job) error {
			var p entity.ReceiptPayload
			_ = json.Unmarshal(job.Payload, &p)
			if p.ReceiptID == 1 {
				panic("boom")
			}
			return nil
		},
	}
	sched.Register(handler)

	bad, err := sched.Enqueue(ctx, constants.JobTypeReceipt, entity.ReceiptPayload{ReceiptID: 1})
	require.NoError(t, err)
	good, err := sched.Enqueue(ctx, constants.JobTypeReceipt, entity.ReceiptPayload{ReceiptID: 2})
	require.NoError(t, err)

	require.NoError(t, sched.Tick(ctx))

	require.Eventually(t, func() bool {
		b, berr := jobs.Get(ctx, bad)
		g, gerr := jobs.Get(ctx, good)
		return berr == nil && gerr == nil &&
			b.Status == constants.JobStatusFailed &&
			g.Status == constants.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	b, err := jobs.Get(ctx, bad)
	require.NoError(t, err)
	require.NotNil(t, b.ErrorMessage)
	assert.Contains(t, *b.ErrorMessage, "handler panic")
}

func TestScheduler_RetryFailed(t *testing.T) {
	sched, jobs := setupScheduler(t, Config{MaxAttempts: 1})
	ctx := context.Background()

	handler := &stubHandler{
		typ: constants.JobTypeReceipt,
		fn: func(context.Context, *entity.Job) error {
			return errors.New("transient")
		},
	}
	sched.Register(handler)

	id, err := sched.Enqueue(ctx, constants.JobTypeReceipt, entity.ReceiptPayload{ReceiptID: 1})
	require.NoError(t, err)

	require.NoError(t, sched.Tick(ctx))
	require.Eventually(t, func() bool {
		j, err := jobs.Get(ctx, id)
		return err == nil && j.Status == constants.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	n, err := sched.RetryFailed(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n, "limit zero is a no-op")

	n, err = sched.RetryFailed(ctx, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	j, err := jobs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusPending, j.Status)
	assert.Zero(t, j.Attempts)
	assert.Nil(t, j.ErrorMessage)
}

func TestScheduler_StatusCounts(t *testing.T) {
	sched, _ := setupScheduler(t, Config{})
	ctx := context.Background()

	handler := &stubHandler{typ: constants.JobTypeReceipt}
	sched.Register(handler)

	for i := 0; i < 3; i++ {
		_, err := sched.Enqueue(ctx, constants.JobTypeReceipt, entity.ReceiptPayload{ReceiptID: int64(i)})
		require.NoError(t, err)
	}

	st, err := sched.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 3, st.Pending)
	assert.EqualValues(t, 2, st.MaxConcurrent)

	require.Eventually(t, func() bool {
		_ = sched.Tick(ctx)
		st, err := sched.Status(ctx)
		return err == nil && st.Completed == 3
	}, 2*time.Second, 10*time.Millisecond)

	st, err = sched.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Zero(t, st.Pending)
	assert.Zero(t, st.CurrentProcessing)
}
