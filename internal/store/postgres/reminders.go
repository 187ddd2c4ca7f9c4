package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/money"
)

// CreateReminder inserts a pending reminder. The reminder scheduler enqueues
// it under the deterministic [domain.Reminder.JobID] job id so a duplicate
// enqueue is naturally idempotent.
func (s *Store) CreateReminder(ctx context.Context, r domain.Reminder) (domain.Reminder, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.Status = domain.ReminderPending

	channels := make([]string, len(r.Channels))
	for i, c := range r.Channels {
		channels[i] = string(c)
	}

	const q = `
		INSERT INTO reminders (id, customer_id, amount, scheduled_time, channels, message, status, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)`
	_, err := s.pool.Exec(ctx, q, r.ID, r.CustomerID, r.Amount.Paise(), r.ScheduledTime, channels, r.Message, r.Status)
	if err != nil {
		return domain.Reminder{}, apperr.Wrap(apperr.Database, "CREATE_REMINDER", err)
	}
	return r, nil
}

// CancelReminder marks a pending reminder cancelled. Cancelling a reminder
// that has already been sent or cancelled is a no-op.
func (s *Store) CancelReminder(ctx context.Context, id uuid.UUID) error {
	const q = `
		UPDATE reminders SET status = $2
		WHERE id = $1 AND status = $3`
	_, err := s.pool.Exec(ctx, q, id, domain.ReminderCancelled, domain.ReminderPending)
	if err != nil {
		return apperr.Wrap(apperr.Database, "CANCEL_REMINDER", err)
	}
	return nil
}

// MarkReminderSent records a successful delivery.
func (s *Store) MarkReminderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	const q = `UPDATE reminders SET status = $2, sent_at = $3 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id, domain.ReminderSent, sentAt)
	if err != nil {
		return apperr.Wrap(apperr.Database, "MARK_REMINDER_SENT", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "REMINDER_NOT_FOUND", id.String())
	}
	return nil
}

// MarkReminderFailed records a failed delivery attempt and bumps the retry
// count. It is not idempotent: every call increments retry_count by one.
func (s *Store) MarkReminderFailed(ctx context.Context, id uuid.UUID, attemptAt time.Time, status domain.ReminderStatus) error {
	const q = `
		UPDATE reminders
		SET status = $2, last_attempt = $3, retry_count = retry_count + 1
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id, status, attemptAt)
	if err != nil {
		return apperr.Wrap(apperr.Database, "MARK_REMINDER_FAILED", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "REMINDER_NOT_FOUND", id.String())
	}
	return nil
}

// ReminderByID fetches a single reminder.
func (s *Store) ReminderByID(ctx context.Context, id uuid.UUID) (domain.Reminder, error) {
	const q = `
		SELECT id, customer_id, amount, scheduled_time, channels, message, status,
		       retry_count, last_attempt, sent_at
		FROM reminders WHERE id = $1`
	row := s.pool.QueryRow(ctx, q, id)
	r, err := scanReminder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reminder{}, apperr.New(apperr.NotFound, "REMINDER_NOT_FOUND", id.String())
	}
	if err != nil {
		return domain.Reminder{}, apperr.Wrap(apperr.Database, "REMINDER_LOOKUP", err)
	}
	return r, nil
}

// RemindersForCustomer lists every non-cancelled reminder for a customer,
// soonest first.
func (s *Store) RemindersForCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Reminder, error) {
	const q = `
		SELECT id, customer_id, amount, scheduled_time, channels, message, status,
		       retry_count, last_attempt, sent_at
		FROM reminders
		WHERE customer_id = $1 AND status <> $2
		ORDER BY scheduled_time`
	rows, err := s.pool.Query(ctx, q, customerID, domain.ReminderCancelled)
	if err != nil {
		return nil, apperr.Wrap(apperr.Database, "REMINDERS_FOR_CUSTOMER", err)
	}
	defer rows.Close()

	var out []domain.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Database, "REMINDERS_FOR_CUSTOMER", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DueReminders returns every pending reminder scheduled at or before now.
// The reminder scheduler's cron sweep calls this as a backstop against
// missed in-process delayed-job timers (e.g. after a restart).
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]domain.Reminder, error) {
	const q = `
		SELECT id, customer_id, amount, scheduled_time, channels, message, status,
		       retry_count, last_attempt, sent_at
		FROM reminders
		WHERE status = $1 AND scheduled_time <= $2
		ORDER BY scheduled_time`
	rows, err := s.pool.Query(ctx, q, domain.ReminderPending, now)
	if err != nil {
		return nil, apperr.Wrap(apperr.Database, "DUE_REMINDERS", err)
	}
	defer rows.Close()

	var out []domain.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Database, "DUE_REMINDERS", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReminder(row rowScanner) (domain.Reminder, error) {
	var r domain.Reminder
	var paise int64
	var channels []string
	var lastAttempt, sentAt *time.Time
	err := row.Scan(&r.ID, &r.CustomerID, &paise, &r.ScheduledTime, &channels,
		&r.Message, &r.Status, &r.RetryCount, &lastAttempt, &sentAt)
	if err != nil {
		return domain.Reminder{}, err
	}
	r.Amount = money.FromPaise(paise)
	r.Channels = make([]domain.ReminderChannel, len(channels))
	for i, c := range channels {
		r.Channels[i] = domain.ReminderChannel(c)
	}
	if lastAttempt != nil {
		r.LastAttempt = *lastAttempt
	}
	if sentAt != nil {
		r.SentAt = *sentAt
	}
	return r, nil
}
