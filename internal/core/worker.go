package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/logging"
)

// Notifier fans an event out to subscribers.
type Notifier interface {
	FanOut(ctx context.Context, eventType string, payload any) []DeliveryResult
}

// WorkerDeps wires a Worker.
type WorkerDeps struct {
	Queue    JobQueue
	Status   JobStatusStore
	Importer *Importer
	Notifier Notifier // optional
}

// Worker pulls jobs from the queue and executes them, at most
// Concurrency at a time.
type Worker struct {
	queue          JobQueue
	status         JobStatusStore
	importer       *Importer
	notifier       Notifier
	slots          *SlotLimiter
	dequeueTimeout time.Duration
	retryBackoff   time.Duration
	// terminalBackoff is the first pause between terminal status retries;
	// it doubles on each attempt.
	terminalBackoff time.Duration
	now             func() time.Time
}

// terminalWriteAttempts bounds how often a SUCCESS or FAILURE write is tried.
// Observers only stop polling once the terminal state lands.
const terminalWriteAttempts = 6

// NewWorker creates a Worker running up to concurrency jobs in parallel.
func NewWorker(deps WorkerDeps, concurrency int, dequeueTimeout time.Duration) *Worker {
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5 * time.Second
	}
	return &Worker{
		queue:           deps.Queue,
		status:          deps.Status,
		importer:        deps.Importer,
		notifier:        deps.Notifier,
		slots:           NewSlotLimiter(concurrency, 0),
		dequeueTimeout:  dequeueTimeout,
		retryBackoff:    time.Second,
		terminalBackoff: 250 * time.Millisecond,
		now:             time.Now,
	}
}

// Run dequeues until ctx is cancelled. Jobs already started keep running
// on a detached context; call Drain to wait for them.
func (w *Worker) Run(ctx context.Context) error {
	logging.FromContext(ctx).Info("worker started",
		"concurrency", w.slots.MaxConcurrent(),
		"dequeue_timeout", w.dequeueTimeout,
	)

	for {
		if err := w.slots.Acquire(ctx); err != nil {
			break
		}

		job, err := w.queue.Dequeue(ctx, w.dequeueTimeout)
		if err != nil {
			w.slots.Release()
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, ErrQueueEmpty) {
				continue
			}
			logging.FromContext(ctx).Error("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(w.retryBackoff):
			}
			continue
		}

		go func() {
			defer w.slots.Release()
			w.Execute(context.WithoutCancel(ctx), job)
		}()
	}

	logging.FromContext(ctx).Info("worker stopped dequeuing", "active_jobs", w.slots.ActiveCount())
	return nil
}

// Drain waits for running jobs to finish or ctx to end.
func (w *Worker) Drain(ctx context.Context) error {
	return w.slots.WaitForDrain(ctx)
}

// Active returns the number of jobs currently executing.
func (w *Worker) Active() int {
	return w.slots.ActiveCount()
}

// Execute runs one job to a terminal state. Panics inside the import are
// recorded as FAILURE.
func (w *Worker) Execute(ctx context.Context, job Job) {
	ctx = logging.WithJob(ctx, job.ID)
	log := logging.FromContext(ctx)
	start := time.Now()

	result, err := w.runImport(ctx, job)
	if err != nil {
		log.Error("import failed", "error", err, "duration", time.Since(start))
		w.setTerminal(ctx, JobSnapshot{
			JobID: job.ID,
			State: StateFailure,
			Error: err.Error(),
		})
		w.notify(ctx, EventImportFailed, map[string]any{
			"event":     EventImportFailed,
			"task_id":   job.ID,
			"file_name": job.FileName,
			"error":     err.Error(),
		})
		return
	}

	log.Info("import completed",
		"total", result.Total,
		"processed", result.Processed,
		"duration", time.Since(start),
	)
	w.setTerminal(ctx, JobSnapshot{
		JobID:   job.ID,
		State:   StateSuccess,
		Current: result.Processed,
		Total:   result.Total,
		Percent: 100,
		Result:  &result,
	})
	w.notify(ctx, EventImportCompleted, map[string]any{
		"event":     EventImportCompleted,
		"task_id":   job.ID,
		"file_name": job.FileName,
		"result":    result,
	})
}

func (w *Worker) runImport(ctx context.Context, job Job) (result ImportResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			removeSource(ctx, job.FilePath)
			err = fmt.Errorf("import panicked: %v", r)
		}
	}()

	report := func(current, total int) {
		w.set(ctx, JobSnapshot{
			JobID:   job.ID,
			State:   StateProgress,
			Current: current,
			Total:   total,
			Percent: percentOf(current, total),
		})
	}
	return w.importer.Run(ctx, job, report)
}

func (w *Worker) set(ctx context.Context, snap JobSnapshot) {
	snap.UpdatedAt = w.now().UTC()
	err := w.status.Set(ctx, snap)
	switch {
	case err == nil:
	case errors.Is(err, ErrTerminalState):
		logging.FromContext(ctx).Warn("ignored write to finished job", "state", snap.State)
	default:
		logging.FromContext(ctx).Error("failed to write job status", "state", snap.State, "error", err)
	}
}

// setTerminal writes a SUCCESS or FAILURE snapshot, retrying transient store
// errors with doubling backoff. A job that is already terminal is left as is.
func (w *Worker) setTerminal(ctx context.Context, snap JobSnapshot) {
	log := logging.FromContext(ctx)
	backoff := w.terminalBackoff

	for attempt := 1; ; attempt++ {
		snap.UpdatedAt = w.now().UTC()
		err := w.status.Set(ctx, snap)
		switch {
		case err == nil:
			return
		case errors.Is(err, ErrTerminalState):
			log.Warn("ignored write to finished job", "state", snap.State)
			return
		case attempt >= terminalWriteAttempts:
			log.Error("gave up writing final job status",
				"state", snap.State,
				"attempts", attempt,
				"error", err,
			)
			return
		}

		log.Warn("retrying final job status write",
			"state", snap.State,
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			log.Error("final job status not written", "state", snap.State, "error", ctx.Err())
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// notify runs the fan-out after the job's state is final; its outcome never
// changes the job.
func (w *Worker) notify(ctx context.Context, eventType string, payload any) {
	if w.notifier == nil {
		return
	}
	w.notifier.FanOut(ctx, eventType, payload)
}
