package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
)

// Queue is a FIFO list. Producers LPUSH and workers BRPOP, so every job is
// delivered to exactly one worker.
type Queue struct {
	client redis.UniversalClient
	key    string
}

var _ core.JobQueue = (*Queue)(nil)

func NewQueue(client redis.UniversalClient, key string) *Queue {
	return &Queue{client: client, key: key}
}

func (q *Queue) Enqueue(ctx context.Context, job core.Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push job %s: %w", job.ID, err)
	}
	return nil
}

// Dequeue blocks up to timeout. It returns core.ErrQueueEmpty when nothing
// arrived in time.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (core.Job, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.Job{}, core.ErrQueueEmpty
		}
		return core.Job{}, fmt.Errorf("failed to pop job: %w", err)
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return core.Job{}, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}
	var job core.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return core.Job{}, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return job, nil
}

// Len reports how many jobs are waiting.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
