package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/intent"
)

// handleProvideEmail attaches an address to the session, or — if one
// invoice is pending a send — immediately sends that invoice to it.
func (e *Engine) handleProvideEmail(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	email := entityString(in.Entities, "email")
	if email == "" {
		return fail(apperr.New(apperr.Validation, "EMAIL_REQUIRED", "an e-mail address is required"))
	}
	sess.SetEmail(email)

	if invoiceID, has := sess.PendingSendInvoice(); has {
		inv, err := e.store.InvoiceByID(ctx, invoiceID)
		if err != nil {
			return fail(asAppErr(err))
		}
		if e.mailer == nil {
			return fail(apperr.New(apperr.ExternalService, "MAILER_UNAVAILABLE", "no e-mail adapter configured"))
		}
		if err := e.mailer.SendInvoiceEmail(ctx, email, inv); err != nil {
			return fail(apperr.Wrap(apperr.ExternalService, "SEND_FAILED", err))
		}
		return ok(fmt.Sprintf("Invoice sent to %s.", email), map[string]any{"invoiceId": invoiceID.String(), "email": email})
	}
	return ok(fmt.Sprintf("E-mail %s saved for this session.", email), map[string]any{"email": email})
}

// handleSendInvoice dispatches invoice delivery through the channel
// named in entities.channel ("email" or "whatsapp"), immediately or, if
// entities.time is present, via a scheduled reminder row.
func (e *Engine) handleSendInvoice(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	invoiceIDStr := entityString(in.Entities, "invoiceId")
	invoiceID := invoiceIDFromSessionOrEntity(sess, invoiceIDStr)
	if invoiceID == uuid.Nil {
		return fail(apperr.New(apperr.NotFound, "NO_INVOICE_TO_SEND", "no invoice is pending a send"))
	}

	inv, err := e.store.InvoiceByID(ctx, invoiceID)
	if err != nil {
		return fail(asAppErr(err))
	}

	channel := entityString(in.Entities, "channel")
	if channel == "" {
		channel = "email"
	}

	if scheduled := entityString(in.Entities, "time"); scheduled != "" {
		when := parseReminderTime(scheduled, e.now(), sess.Location)
		customer, err := e.store.CustomerByID(ctx, inv.CustomerID)
		if err != nil {
			return fail(asAppErr(err))
		}
		r := domain.Reminder{
			CustomerID:    customer.ID,
			Amount:        inv.Total,
			ScheduledTime: when,
			Channels:      []domain.ReminderChannel{domain.ReminderChannel(channel)},
			Message:       fmt.Sprintf("Invoice for %s", customer.Name),
			Status:        domain.ReminderPending,
		}
		created, err := e.store.CreateReminder(ctx, r)
		if err != nil {
			return fail(asAppErr(err))
		}
		return ok(fmt.Sprintf("Invoice will be sent to %s at %s.", channel, when.Format(time.RFC3339)),
			map[string]any{"reminderId": created.ID.String()})
	}

	switch channel {
	case "whatsapp":
		if e.whatsapp == nil {
			return fail(apperr.New(apperr.ExternalService, "WHATSAPP_UNAVAILABLE", "no WhatsApp adapter configured"))
		}
		customer, err := e.store.CustomerByID(ctx, inv.CustomerID)
		if err != nil {
			return fail(asAppErr(err))
		}
		if err := e.whatsapp.Send(ctx, customer.Phone, fmt.Sprintf("Invoice total %s", inv.Total.String())); err != nil {
			return fail(apperr.Wrap(apperr.ExternalService, "SEND_FAILED", err))
		}
		return ok("Invoice sent via WhatsApp.", map[string]any{"invoiceId": invoiceID.String()})
	default:
		email := sess.Email()
		if email == "" {
			return fail(apperr.New(apperr.Validation, "EMAIL_REQUIRED", "no e-mail address on file for this session yet"))
		}
		if e.mailer == nil {
			return fail(apperr.New(apperr.ExternalService, "MAILER_UNAVAILABLE", "no e-mail adapter configured"))
		}
		if err := e.mailer.SendInvoiceEmail(ctx, email, inv); err != nil {
			return fail(apperr.Wrap(apperr.ExternalService, "SEND_FAILED", err))
		}
		return ok(fmt.Sprintf("Invoice sent to %s.", email), map[string]any{"invoiceId": invoiceID.String(), "email": email})
	}
}

func invoiceIDFromSessionOrEntity(sess *Session, invoiceIDStr string) uuid.UUID {
	if invoiceIDStr != "" {
		if parsed, err := parseUUID(invoiceIDStr); err == nil {
			return parsed
		}
	}
	if pending, has := sess.PendingSendInvoice(); has {
		return pending
	}
	return uuid.Nil
}
