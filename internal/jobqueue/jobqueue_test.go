package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "://nope")
	assert.ErrorContains(t, err, "parse redis url")
}

func TestQueue_FIFO(t *testing.T) {
	_, client := newTestClient(t)
	q := NewQueue(client, "test:queue")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, core.Job{ID: id, FilePath: "/tmp/" + id + ".csv", ChunkSize: 10}))
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, job.ID)
		assert.Equal(t, 10, job.ChunkSize)
		assert.False(t, job.EnqueuedAt.IsZero())
	}
}

func TestQueue_DequeueTimeout(t *testing.T) {
	_, client := newTestClient(t)
	q := NewQueue(client, "test:queue")

	_, err := q.Dequeue(context.Background(), 50*time.Millisecond)
	assert.ErrorIs(t, err, core.ErrQueueEmpty)
}

func TestQueue_EachJobDeliveredOnce(t *testing.T) {
	_, client := newTestClient(t)
	q := NewQueue(client, "test:queue")
	ctx := context.Background()

	const jobs = 20
	for i := 0; i < jobs; i++ {
		require.NoError(t, q.Enqueue(ctx, core.Job{ID: string(rune('A' + i))}))
	}

	var mu sync.Mutex
	seen := map[string]int{}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := q.Dequeue(ctx, 50*time.Millisecond)
				if err != nil {
					return
				}
				mu.Lock()
				seen[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, jobs)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestStatusStore_UnknownIsPending(t *testing.T) {
	_, client := newTestClient(t)
	s := NewStatusStore(client, time.Hour)

	snap, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, core.StatePending, snap.State)
	assert.Equal(t, "nope", snap.JobID)
}

func TestStatusStore_SetGetAndTTL(t *testing.T) {
	mr, client := newTestClient(t)
	s := NewStatusStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, core.PendingSnapshot("j1")))
	require.NoError(t, s.Set(ctx, core.JobSnapshot{JobID: "j1", State: core.StateProgress, Current: 5, Total: 10, Percent: 50}))

	snap, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, core.StateProgress, snap.State)
	assert.Equal(t, 50, snap.Percent)
	assert.False(t, snap.UpdatedAt.IsZero())
	assert.Equal(t, time.Hour, mr.TTL(statusKey("j1")))

	mr.FastForward(2 * time.Hour)
	snap, err = s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, core.StatePending, snap.State, "expired jobs read as pending")
}

func TestStatusStore_TerminalIsFinal(t *testing.T) {
	_, client := newTestClient(t)
	s := NewStatusStore(client, time.Hour)
	ctx := context.Background()

	result := &core.ImportResult{Status: "completed", Total: 1, Processed: 1}
	require.NoError(t, s.Set(ctx, core.JobSnapshot{JobID: "j2", State: core.StateSuccess, Result: result}))

	err := s.Set(ctx, core.JobSnapshot{JobID: "j2", State: core.StateProgress, Current: 1})
	assert.ErrorIs(t, err, core.ErrTerminalState)
	err = s.Set(ctx, core.JobSnapshot{JobID: "j2", State: core.StateFailure, Error: "late"})
	assert.ErrorIs(t, err, core.ErrTerminalState)

	snap, err := s.Get(ctx, "j2")
	require.NoError(t, err)
	assert.Equal(t, core.StateSuccess, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 1, snap.Result.Processed)
}

func TestStatusStore_NoRegressionToPending(t *testing.T) {
	_, client := newTestClient(t)
	s := NewStatusStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, core.JobSnapshot{JobID: "j3", State: core.StateProgress, Current: 2, Total: 4}))
	assert.Error(t, s.Set(ctx, core.PendingSnapshot("j3")))
}
