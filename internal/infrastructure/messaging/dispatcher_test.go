package messaging

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkok-lms/curriculum-engine/internal/domain/shared"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	cfg := DefaultDispatcherConfig(nil)
	cfg.RetryConfig.InitialBackoff = time.Millisecond
	cfg.RetryConfig.MaxBackoff = time.Millisecond

	d := NewDispatcher(cfg)
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

func TestDispatcher_DispatchesToRegisteredHandlers(t *testing.T) {
	d := newTestDispatcher(t)

	var settled, published atomic.Int64
	require.NoError(t, d.Register(shared.EventTaskSettled, "count-settled", func(event shared.Event) error {
		settled.Add(1)
		return nil
	}))
	require.NoError(t, d.Register(shared.EventPlanPublished, "count-published", func(event shared.Event) error {
		published.Add(1)
		return nil
	}))

	require.NoError(t, d.Dispatch(shared.NewTaskSettledEvent("stu-1", "task-1", 10, 0, 10)))
	require.NoError(t, d.Dispatch(shared.NewTaskSettledEvent("stu-1", "task-2", 5, 0, 15)))

	// Dispatch waits for async handlers, so the counts are final here.
	assert.Equal(t, int64(2), settled.Load())
	assert.Zero(t, published.Load())

	stats := d.Stats()
	assert.Equal(t, int64(2), stats.Dispatched)
	assert.Equal(t, int64(2), stats.Succeeded)
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	d := newTestDispatcher(t)

	var calls atomic.Int64
	require.NoError(t, d.Register(shared.EventTaskSettled, "flaky", func(event shared.Event) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	require.NoError(t, d.Dispatch(shared.NewTaskSettledEvent("stu-1", "task-1", 10, 0, 10)))

	assert.Equal(t, int64(3), calls.Load())
	stats := d.Stats()
	assert.Equal(t, int64(1), stats.Succeeded)
	assert.Equal(t, int64(1), stats.RetrySuccesses)
}

func TestDispatcher_DeadLetterAfterExhaustedRetries(t *testing.T) {
	d := newTestDispatcher(t)

	require.NoError(t, d.RegisterHandler(shared.EventTaskSettled, HandlerRegistration{
		Name:       "always-fails",
		Handler:    func(event shared.Event) error { return errors.New("boom") },
		MaxRetries: 2,
	}))

	// Sync registration surfaces the terminal error to the caller.
	err := d.Dispatch(shared.NewTaskSettledEvent("stu-1", "task-1", 10, 0, 10))
	require.Error(t, err)

	dlq := d.DeadLetterQueue()
	require.NotNil(t, dlq)
	require.Equal(t, 1, dlq.Size())

	entry := dlq.Entries()[0]
	assert.Equal(t, "always-fails", entry.HandlerName)
	assert.Equal(t, 3, entry.Attempts)
	assert.Equal(t, int64(1), d.Stats().Failed)
}

func TestDispatcher_RecoveryMiddleware(t *testing.T) {
	d := newTestDispatcher(t)
	d.Use(RecoveryMiddleware(slog.Default()))

	require.NoError(t, d.RegisterHandler(shared.EventTaskSettled, HandlerRegistration{
		Name:       "panics",
		Handler:    func(event shared.Event) error { panic("bad handler") },
		MaxRetries: 1,
	}))

	// The panic becomes an ordinary handler error, not a crash.
	err := d.Dispatch(shared.NewTaskSettledEvent("stu-1", "task-1", 10, 0, 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}

func TestDispatcher_RegistrationValidation(t *testing.T) {
	d := newTestDispatcher(t)

	assert.Error(t, d.Register(shared.EventTaskSettled, "nil-handler", nil))
	assert.Error(t, d.RegisterHandler(shared.EventTaskSettled, HandlerRegistration{
		Handler: func(event shared.Event) error { return nil },
	}))
}
