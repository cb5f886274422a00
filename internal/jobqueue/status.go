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

const (
	statusPrefix = "import:job:"

	// Optimistic transactions retried before giving up on a contended key.
	maxWatchRetries = 5
)

// ErrContended is returned when a snapshot write keeps losing its
// optimistic transaction.
var ErrContended = errors.New("job status write contended")

// StatusStore keeps the latest snapshot per job under a TTL.
type StatusStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

var _ core.JobStatusStore = (*StatusStore)(nil)

func NewStatusStore(client redis.UniversalClient, ttl time.Duration) *StatusStore {
	return &StatusStore{client: client, ttl: ttl, now: time.Now}
}

func statusKey(jobID string) string {
	return statusPrefix + jobID
}

// Get returns the stored snapshot. An unknown or expired job reads as
// PENDING.
func (s *StatusStore) Get(ctx context.Context, jobID string) (core.JobSnapshot, error) {
	snap, found, err := readSnapshot(ctx, s.client, jobID)
	if err != nil {
		return core.JobSnapshot{}, err
	}
	if !found {
		return core.PendingSnapshot(jobID), nil
	}
	return snap, nil
}

// Set writes snap unless the stored snapshot is terminal or further along.
// The read and write run under WATCH so concurrent writers cannot step
// over each other.
func (s *StatusStore) Set(ctx context.Context, snap core.JobSnapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = s.now().UTC()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	key := statusKey(snap.JobID)

	txf := func(tx *redis.Tx) error {
		cur, found, err := readSnapshot(ctx, tx, snap.JobID)
		if err != nil {
			return err
		}
		if found && !cur.CanTransition(snap.State) {
			if cur.State.Terminal() {
				return fmt.Errorf("%w: %s is %s", core.ErrTerminalState, snap.JobID, cur.State)
			}
			return fmt.Errorf("job %s cannot move from %s to %s", snap.JobID, cur.State, snap.State)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %s", ErrContended, snap.JobID)
}

// getter is the single command readSnapshot needs, shared by clients and
// WATCH transactions.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readSnapshot(ctx context.Context, c getter, jobID string) (core.JobSnapshot, bool, error) {
	data, err := c.Get(ctx, statusKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.JobSnapshot{}, false, nil
		}
		return core.JobSnapshot{}, false, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	var snap core.JobSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return core.JobSnapshot{}, false, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return snap, true, nil
}
