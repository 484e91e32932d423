package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_StartStop(t *testing.T) {
	var calls atomic.Int64

	w := NewWorker(WorkerConfig{
		Name:         "test",
		PollInterval: 10 * time.Millisecond,
	}, slog.Default(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())

	// Starting twice is a no-op
	require.NoError(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return calls.Load() > 0
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	assert.False(t, w.IsRunning())

	// Stopping twice is a no-op
	require.NoError(t, w.Stop(ctx))
}

func TestWorker_ProcessErrorsDoNotStopLoop(t *testing.T) {
	var calls atomic.Int64

	w := NewWorker(WorkerConfig{
		Name:         "flaky",
		PollInterval: 5 * time.Millisecond,
	}, slog.Default(), func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("transient failure")
	})

	require.NoError(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
}

func TestWorker_ContextCancellationStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	w := NewWorker(WorkerConfig{
		Name:         "cancelled",
		PollInterval: 5 * time.Millisecond,
	}, slog.Default(), func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, w.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case <-w.stoppedCh:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestWorker_Metrics(t *testing.T) {
	w := NewWorker(DefaultWorkerConfig("metrics"), slog.Default(), func(ctx context.Context) error {
		return nil
	})

	w.IncrementSuccess()
	w.IncrementSuccess()
	w.IncrementFailure()

	m := w.Metrics()
	assert.Equal(t, int64(3), m.Processed)
	assert.Equal(t, int64(2), m.Succeeded)
	assert.Equal(t, int64(1), m.Failed)
}

func TestNewQueue_Defaults(t *testing.T) {
	q := NewQueue(nil, QueueConfig{TableName: "kb.edge_ingest_jobs"}, slog.Default())

	assert.Equal(t, 60, q.config.BaseRetryDelaySec)
	assert.Equal(t, 3600, q.config.MaxRetryDelaySec)
	assert.Equal(t, 10, q.config.BatchSize)
}

func TestTruncateError(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}

	assert.Len(t, truncateError(string(long)), 500)
	assert.Equal(t, "short", truncateError("short"))
}
