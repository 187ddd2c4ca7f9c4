// Package reminder delivers scheduled payment-due nudges. CREATE_REMINDER
// and friends only persist a [domain.Reminder] row through the business
// engine's store; this package is the asynchronous layer that actually
// sends one at its scheduled time, via a delayed job queue with a periodic
// sweep as a backstop against missed timers.
//
// Grounded on the teacher's pkg/scheduler, which pairs a primary dispatch
// path with a robfig/cron sweep of anything the primary path might have
// missed (there: workflow schedules; here: reminders). asynq is not a
// teacher dependency — no pack repo uses a Redis-backed delayed-job queue —
// but it is the standard choice for exactly this shape of problem and
// pairs naturally with the queue.addr Redis instance config.go already
// describes.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/shopvoice/shopvoice/internal/domain"
)

// taskType is the asynq task type name for a single reminder delivery.
const taskType = "reminder:send"

// Store is the persistence surface the scheduler needs.
type Store interface {
	DueReminders(ctx context.Context, now time.Time) ([]domain.Reminder, error)
	ReminderByID(ctx context.Context, id uuid.UUID) (domain.Reminder, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	MarkReminderFailed(ctx context.Context, id uuid.UUID, attemptAt time.Time, status domain.ReminderStatus) error
	CustomerByID(ctx context.Context, id uuid.UUID) (domain.Customer, error)
}

// Mailer delivers a reminder by e-mail.
type Mailer interface {
	SendReminderEmail(ctx context.Context, to string, r domain.Reminder) error
}

// WhatsAppSender delivers a reminder by WhatsApp. Interface stub only — no
// concrete adapter is in scope.
type WhatsAppSender interface {
	Send(ctx context.Context, to, message string) error
}

// payload is the JSON body of a reminder:send asynq task.
type payload struct {
	ReminderID uuid.UUID `json:"reminderId"`
}

// Scheduler enqueues and delivers reminders.
type Scheduler struct {
	store    Store
	mailer   Mailer
	whatsapp WhatsAppSender
	now      func() time.Time
	client   *asynq.Client
	inspector *asynq.Inspector

	maxAttempts int
	queueName   string

	cron      *cron.Cron
	sweepCron string
}

// Option configures a [Scheduler] at construction time.
type Option func(*Scheduler)

// WithMailer sets the e-mail delivery adapter.
func WithMailer(m Mailer) Option { return func(s *Scheduler) { s.mailer = m } }

// WithWhatsApp sets the WhatsApp delivery adapter.
func WithWhatsApp(w WhatsAppSender) Option { return func(s *Scheduler) { s.whatsapp = w } }

// WithClock overrides the scheduler's time source, for deterministic tests.
func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

// WithMaxAttempts bounds delivery retries before a reminder is marked failed.
func WithMaxAttempts(n int) Option { return func(s *Scheduler) { s.maxAttempts = n } }

// WithSweepCron overrides the backstop sweep's cron expression (default
// every five minutes).
func WithSweepCron(expr string) Option { return func(s *Scheduler) { s.sweepCron = expr } }

// New builds a [Scheduler] against a Redis instance at addr.
func New(addr string, store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		now:         time.Now,
		maxAttempts: 3,
		queueName:   "reminders",
		sweepCron:   "*/5 * * * *",
		client:      asynq.NewClient(asynq.RedisClientOpt{Addr: addr}),
		inspector:   asynq.NewInspector(asynq.RedisClientOpt{Addr: addr}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue schedules r for delivery at its ScheduledTime. The task id is
// r.JobID(), so re-enqueueing the same reminder (e.g. from the sweep after
// the primary enqueue already landed) is a no-op rather than a duplicate
// send.
func (s *Scheduler) Enqueue(ctx context.Context, r domain.Reminder) error {
	body, err := json.Marshal(payload{ReminderID: r.ID})
	if err != nil {
		return fmt.Errorf("marshal reminder payload: %w", err)
	}
	task := asynq.NewTask(taskType, body)
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.TaskID(r.JobID()),
		asynq.ProcessAt(r.ScheduledTime),
		asynq.MaxRetry(s.maxAttempts),
		asynq.Queue(s.queueName),
	)
	if err != nil && err != asynq.ErrTaskIDConflict {
		return fmt.Errorf("enqueue reminder %s: %w", r.ID, err)
	}
	return nil
}

// Cancel removes a not-yet-processed reminder task from the queue. Safe to
// call even if the task has already run or was never enqueued.
func (s *Scheduler) Cancel(ctx context.Context, r domain.Reminder) error {
	err := s.inspector.DeleteTask(s.queueName, r.JobID())
	if err != nil && err != asynq.ErrTaskNotFound {
		return fmt.Errorf("cancel reminder task %s: %w", r.ID, err)
	}
	return nil
}

// Close releases the scheduler's Redis connections.
func (s *Scheduler) Close() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	if err := s.client.Close(); err != nil {
		return err
	}
	return s.inspector.Close()
}

// StartSweep registers the periodic backstop sweep and starts the cron
// runner. Call once during startup, after New.
func (s *Scheduler) StartSweep(ctx context.Context) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.sweepCron, func() { s.sweep(ctx) })
	if err != nil {
		return fmt.Errorf("register reminder sweep cron %q: %w", s.sweepCron, err)
	}
	s.cron.Start()
	return nil
}

// sweep re-enqueues every reminder whose scheduled time has passed but
// which is still pending — the case a missed in-process timer (e.g. a
// server restart between enqueue and the original ProcessAt) would
// otherwise leave stranded.
func (s *Scheduler) sweep(ctx context.Context) {
	due, err := s.store.DueReminders(ctx, s.now())
	if err != nil {
		slog.Error("reminder sweep: listing due reminders failed", "err", err)
		return
	}
	for _, r := range due {
		if err := s.Enqueue(ctx, r); err != nil {
			slog.Error("reminder sweep: re-enqueue failed", "reminder_id", r.ID, "err", err)
		}
	}
	if len(due) > 0 {
		slog.Info("reminder sweep: re-enqueued due reminders", "count", len(due))
	}
}
