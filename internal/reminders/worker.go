package reminders

import (
	"context"
	"time"

	"github.com/wolfman30/referral-scheduler/internal/notify"
	"github.com/wolfman30/referral-scheduler/internal/observability/metrics"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

// Worker sends due reminders.
type Worker struct {
	queue    *Queue
	notifier notify.Notifier
	logger   *logging.Logger
	metrics  *metrics.SchedulerMetrics
	now      func() time.Time
	interval time.Duration
	commit   func(ctx context.Context) error
}

// NewWorker creates a reminder worker.
func NewWorker(queue *Queue, notifier notify.Notifier, logger *logging.Logger, m *metrics.SchedulerMetrics) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:    queue,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
		interval: time.Minute,
	}
}

// WithClock overrides the time used to decide what is due.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	if now != nil {
		w.now = now
	}
	return w
}

// WithInterval sets the Run polling interval.
func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

// WithCommit registers a hook run after a pass that changed any reminder.
func (w *Worker) WithCommit(fn func(ctx context.Context) error) *Worker {
	w.commit = fn
	return w
}

// ProcessDue sends every reminder that is due. It returns the number sent;
// individual failures are logged and retried on a later pass.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	due := w.queue.ListDue(w.now())
	defer func() { w.metrics.SetRemindersPending(w.queue.Pending()) }()
	if len(due) == 0 {
		return 0, nil
	}

	w.logger.Info("reminder worker: processing due reminders", "count", len(due))
	sent := 0
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		if w.processOne(ctx, &due[i]) {
			sent++
		}
	}

	if w.commit != nil {
		if err := w.commit(ctx); err != nil {
			w.logger.Error("reminder worker: commit failed", "error", err)
			return sent, err
		}
	}
	return sent, nil
}

func (w *Worker) processOne(ctx context.Context, due *Reminder) bool {
	r, ok := w.queue.Claim(due.ID)
	if !ok {
		return false
	}
	if err := w.notifier.Send(ctx, r.Message); err != nil {
		final, markErr := w.queue.MarkFailed(r.ID, err)
		if markErr != nil {
			w.logger.Error("reminder worker: mark failed", "id", r.ID, "error", markErr)
		}
		w.logger.Error("reminder worker: send failed", "id", r.ID, "appointment_id", r.AppointmentID, "error", err, "final", final)
		return false
	}
	if err := w.queue.MarkSent(r.ID); err != nil {
		w.logger.Error("reminder worker: mark sent", "id", r.ID, "error", err)
		return false
	}
	w.logger.Info("reminder worker: reminder sent", "id", r.ID, "appointment_id", r.AppointmentID, "method", r.Method)
	return true
}

// Run processes due reminders on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	if _, err := w.ProcessDue(ctx); err != nil {
		w.logger.Error("reminder worker: pass failed", "error", err)
	}
}
