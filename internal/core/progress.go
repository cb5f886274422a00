package core

import (
	"context"
	"fmt"
	"time"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/logging"
)

// DefaultPollInterval is the delay between status reads.
const DefaultPollInterval = 500 * time.Millisecond

// Event names carried on the progress stream.
const (
	EventNameProgress = "progress"
	EventNameError    = "error"
)

// ProgressPayload is the JSON body of one progress event.
type ProgressPayload struct {
	State   JobState      `json:"state"`
	Current int           `json:"current"`
	Total   int           `json:"total"`
	Percent int           `json:"percent"`
	Status  string        `json:"status"`
	Result  *ImportResult `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ProgressEvent is a named payload.
type ProgressEvent struct {
	Name    string
	Payload ProgressPayload
}

// Terminal reports whether this is the last event of a stream.
func (e ProgressEvent) Terminal() bool {
	return e.Payload.State.Terminal()
}

// PayloadFor maps a snapshot to what an observer sees.
func PayloadFor(snap JobSnapshot) (ProgressPayload, error) {
	switch snap.State {
	case StatePending:
		return ProgressPayload{State: StatePending, Status: "Task pending..."}, nil

	case StateProgress:
		current := min(snap.Current, snap.Total)
		pct := percentOf(current, snap.Total)
		return ProgressPayload{
			State:   StateProgress,
			Current: current,
			Total:   snap.Total,
			Percent: pct,
			Status:  fmt.Sprintf("Processing... %d%%", pct),
		}, nil

	case StateSuccess:
		p := ProgressPayload{
			State:   StateSuccess,
			Current: snap.Current,
			Total:   snap.Total,
			Percent: 100,
			Status:  "Complete!",
			Result:  snap.Result,
		}
		if snap.Result != nil {
			p.Current = snap.Result.Processed
			p.Total = snap.Result.Total
		}
		return p, nil

	case StateFailure:
		return ProgressPayload{State: StateFailure, Status: "Import failed", Error: snap.Error}, nil

	default:
		return ProgressPayload{}, fmt.Errorf("unknown job state %q", snap.State)
	}
}

func streamErrorEvent(err error) ProgressEvent {
	return ProgressEvent{
		Name: EventNameError,
		Payload: ProgressPayload{
			State:  StateFailure,
			Status: "Error checking task status",
			Error:  err.Error(),
		},
	}
}

// ProgressStreamer turns status store reads into an event sequence.
type ProgressStreamer struct {
	store    JobStatusStore
	interval time.Duration
}

// NewProgressStreamer creates a streamer polling every interval.
func NewProgressStreamer(store JobStatusStore, interval time.Duration) *ProgressStreamer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ProgressStreamer{store: store, interval: interval}
}

// Stream polls jobID until a terminal event has been emitted, emit fails, or
// ctx is done. Events are emitted when the state changes and on every poll
// while the job is in PROGRESS. A failed read ends the stream with a
// synthetic FAILURE event named "error".
func (s *ProgressStreamer) Stream(ctx context.Context, jobID string, emit func(ProgressEvent) error) (err error) {
	log := logging.FromContext(logging.WithJob(ctx, jobID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("progress stream panic", "panic", r)
			err = emit(streamErrorEvent(fmt.Errorf("internal error: %v", r)))
		}
	}()

	var last JobState
	for {
		if ctx.Err() != nil {
			return nil
		}

		ev, ok := s.poll(ctx, jobID, last)
		if ok {
			if err := emit(ev); err != nil {
				return err
			}
			if ev.Terminal() {
				return nil
			}
			last = ev.Payload.State
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// poll reads once and decides whether an event is due.
func (s *ProgressStreamer) poll(ctx context.Context, jobID string, last JobState) (ProgressEvent, bool) {
	snap, err := s.store.Get(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return ProgressEvent{}, false
		}
		logging.FromContext(ctx).Warn("progress read failed", "job_id", jobID, "error", err)
		return streamErrorEvent(err), true
	}

	payload, err := PayloadFor(snap)
	if err != nil {
		return streamErrorEvent(err), true
	}

	if payload.State == last && payload.State != StateProgress {
		return ProgressEvent{}, false
	}
	return ProgressEvent{Name: EventNameProgress, Payload: payload}, true
}
