package engine

import (
	"context"
	"fmt"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/intent"
)

func parseChannels(entities map[string]any) []domain.ReminderChannel {
	raw, _ := entities["channels"].([]any)
	channels := make([]domain.ReminderChannel, 0, len(raw))
	for _, r := range raw {
		s, _ := r.(string)
		switch s {
		case string(domain.ChannelEmail), string(domain.ChannelWhatsApp):
			channels = append(channels, domain.ReminderChannel(s))
		}
	}
	if len(channels) == 0 {
		channels = []domain.ReminderChannel{domain.ChannelWhatsApp}
	}
	return channels
}

func (e *Engine) handleCreateReminder(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}
	amount, hasAmount := entityAmount(in.Entities)
	if !hasAmount {
		amount = customer.Balance
	}

	when := parseReminderTime(entityString(in.Entities, "time"), e.now(), sess.Location)
	message := entityString(in.Entities, "message")
	if message == "" {
		message = fmt.Sprintf("Reminder: %s ka %s baaki hai", customer.Name, amount.String())
	}

	r := domain.Reminder{
		CustomerID:    customer.ID,
		Amount:        amount,
		ScheduledTime: when,
		Channels:      parseChannels(in.Entities),
		Message:       message,
		Status:        domain.ReminderPending,
	}
	created, err := e.store.CreateReminder(ctx, r)
	if err != nil {
		return fail(asAppErr(err))
	}
	return ok(fmt.Sprintf("Reminder set for %s on %s.", customer.Name, when.Format("2 Jan 15:04")),
		map[string]any{"reminderId": created.ID.String(), "scheduledTime": when})
}

func (e *Engine) handleModifyReminder(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	reminderIDStr := entityString(in.Entities, "reminderId")
	if reminderIDStr == "" {
		return fail(apperr.New(apperr.Validation, "REMINDER_ID_REQUIRED", "which reminder should be modified?"))
	}
	existing, err := e.reminderByIDString(ctx, reminderIDStr)
	if err != nil {
		return fail(asAppErr(err))
	}
	if err := e.store.CancelReminder(ctx, existing.ID); err != nil {
		return fail(asAppErr(err))
	}
	when := parseReminderTime(entityString(in.Entities, "time"), e.now(), sess.Location)
	amount := existing.Amount
	if a, hasAmount := entityAmount(in.Entities); hasAmount {
		amount = a
	}
	updated := domain.Reminder{
		CustomerID:    existing.CustomerID,
		Amount:        amount,
		ScheduledTime: when,
		Channels:      existing.Channels,
		Message:       existing.Message,
		Status:        domain.ReminderPending,
	}
	created, err := e.store.CreateReminder(ctx, updated)
	if err != nil {
		return fail(asAppErr(err))
	}
	return ok(fmt.Sprintf("Reminder moved to %s.", when.Format("2 Jan 15:04")), map[string]any{"reminderId": created.ID.String()})
}

func (e *Engine) handleCancelReminder(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	if entityBool(in.Entities, "cancelAll") {
		customer, err := e.resolveCustomer(ctx, sess, in)
		if err != nil {
			return fail(asAppErr(err))
		}
		reminders, err := e.store.RemindersForCustomer(ctx, customer.ID)
		if err != nil {
			return fail(asAppErr(err))
		}
		count := 0
		for _, r := range reminders {
			if r.Status == domain.ReminderPending {
				if err := e.store.CancelReminder(ctx, r.ID); err == nil {
					count++
				}
			}
		}
		return ok(fmt.Sprintf("Cancelled %d reminder(s) for %s.", count, customer.Name), map[string]any{"count": count})
	}

	reminderIDStr := entityString(in.Entities, "reminderId")
	if reminderIDStr == "" {
		return fail(apperr.New(apperr.Validation, "REMINDER_ID_REQUIRED", "which reminder should be cancelled?"))
	}
	existing, err := e.reminderByIDString(ctx, reminderIDStr)
	if err != nil {
		return fail(asAppErr(err))
	}
	if err := e.store.CancelReminder(ctx, existing.ID); err != nil {
		return fail(asAppErr(err))
	}
	return ok("Reminder cancelled.", map[string]any{"reminderId": existing.ID.String()})
}

func (e *Engine) handleListReminders(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}
	reminders, err := e.store.RemindersForCustomer(ctx, customer.ID)
	if err != nil {
		return fail(asAppErr(err))
	}
	rows := make([]map[string]any, 0, len(reminders))
	for _, r := range reminders {
		rows = append(rows, map[string]any{
			"reminderId":    r.ID.String(),
			"scheduledTime": r.ScheduledTime,
			"status":        string(r.Status),
			"amount":        r.Amount.Rupees(),
		})
	}
	return ok(fmt.Sprintf("%d reminder(s) for %s.", len(reminders), customer.Name), map[string]any{"reminders": rows})
}

func (e *Engine) reminderByIDString(ctx context.Context, id string) (domain.Reminder, error) {
	parsed, err := parseUUID(id)
	if err != nil {
		return domain.Reminder{}, apperr.New(apperr.Validation, "INVALID_REMINDER_ID", id)
	}
	return e.store.ReminderByID(ctx, parsed)
}
