package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// dequeueBackoff is the pause after a failed dequeue, e.g. while Redis is down.
const dequeueBackoff = time.Second

// Worker drains a Queue through a Dispatcher until its context ends.
type Worker struct {
	queue      Queue
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewWorker creates a Worker.
func NewWorker(queue Queue, dispatcher *Dispatcher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run processes jobs one at a time. It returns nil when ctx is cancelled or
// the queue is closed.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("notification worker started")
	defer w.logger.Info("notification worker stopped")

	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrQueueClosed) {
				return nil
			}
			w.logger.Error("dequeue notification", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(dequeueBackoff):
			}
			continue
		}

		report, err := w.dispatcher.Deliver(ctx, job)
		if err != nil {
			w.logger.Error("deliver notification", "job_id", job.ID, "task_id", job.TaskID, "error", err)
			continue
		}
		w.logger.Debug("notification processed",
			"job_id", job.ID,
			"task_id", job.TaskID,
			"event", job.Event,
			"sent", report.Sent,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
	}
}
