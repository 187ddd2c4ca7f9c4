package reminder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/shopvoice/shopvoice/internal/domain"
)

// NewServeMux builds the asynq handler that delivers a single reminder task.
func (s *Scheduler) NewServeMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(taskType, s.handleDeliver)
	return mux
}

// handleDeliver processes one reminder:send task. Returning an error tells
// asynq to retry the task up to its MaxRetry count; once exhausted, asynq
// moves it to the dead queue and the reminder is left marked failed from
// the final attempt below.
func (s *Scheduler) handleDeliver(ctx context.Context, t *asynq.Task) error {
	var p payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal reminder payload: %w", err)
	}

	r, err := s.store.ReminderByID(ctx, p.ReminderID)
	if err != nil {
		return fmt.Errorf("load reminder %s: %w", p.ReminderID, err)
	}
	// A failed status is left by an earlier attempt of this same task, so
	// an asynq retry still delivers it; sent and cancelled reminders are
	// skipped.
	if r.Status != domain.ReminderPending && r.Status != domain.ReminderFailed {
		return nil
	}

	customer, err := s.store.CustomerByID(ctx, r.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer %s: %w", r.CustomerID, err)
	}

	deliverErr := s.deliver(ctx, r, customer)
	now := s.now()
	if deliverErr != nil {
		if markErr := s.store.MarkReminderFailed(ctx, r.ID, now, domain.ReminderFailed); markErr != nil {
			return fmt.Errorf("deliver reminder %s: %w (and mark-failed also failed: %v)", r.ID, deliverErr, markErr)
		}
		return fmt.Errorf("deliver reminder %s: %w", r.ID, deliverErr)
	}
	return s.store.MarkReminderSent(ctx, r.ID, now)
}

// deliver sends r through every channel it names, returning the first
// error encountered.
func (s *Scheduler) deliver(ctx context.Context, r domain.Reminder, customer domain.Customer) error {
	if len(r.Channels) == 0 {
		return fmt.Errorf("reminder %s names no delivery channel", r.ID)
	}
	for _, ch := range r.Channels {
		switch ch {
		case domain.ChannelEmail:
			if s.mailer == nil {
				return fmt.Errorf("no mailer configured for reminder %s", r.ID)
			}
			if customer.Email == "" {
				return fmt.Errorf("customer %s has no e-mail on file", customer.ID)
			}
			if err := s.mailer.SendReminderEmail(ctx, customer.Email, r); err != nil {
				return err
			}
		case domain.ChannelWhatsApp:
			if s.whatsapp == nil {
				return fmt.Errorf("no WhatsApp adapter configured for reminder %s", r.ID)
			}
			if customer.Phone == "" {
				return fmt.Errorf("customer %s has no phone on file", customer.ID)
			}
			if err := s.whatsapp.Send(ctx, customer.Phone, r.Message); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown reminder channel %q", ch)
		}
	}
	return nil
}

// RunServer blocks serving reminder delivery tasks against the Redis
// instance at addr until ctx is cancelled.
func RunServer(ctx context.Context, addr string, concurrency int, s *Scheduler) error {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: addr},
		asynq.Config{Concurrency: concurrency, Queues: map[string]int{s.queueName: 1}},
	)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(s.NewServeMux()) }()
	select {
	case <-ctx.Done():
		srv.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
