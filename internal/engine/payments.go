package engine

import (
	"context"
	"fmt"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/intent"
)

func (e *Engine) handleRecordPayment(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}
	amount, ok2 := entityAmount(in.Entities)
	if !ok2 || !amount.IsPositive() {
		return fail(apperr.New(apperr.Validation, "AMOUNT_REQUIRED", "a positive amount is required"))
	}
	mode := domain.PaymentMode(entityString(in.Entities, "paymentMode"))
	switch mode {
	case domain.PaymentCash, domain.PaymentUPI, domain.PaymentCard, domain.PaymentOther:
	default:
		return fail(apperr.New(apperr.Validation, "PAYMENT_MODE_REQUIRED", "paymentMode must be cash, upi, card, or other"))
	}

	entry, err := e.store.RecordPayment(ctx, customer.ID, amount, mode, fmt.Sprintf("Payment received via %s", mode))
	if err != nil {
		return fail(asAppErr(err))
	}
	newBalance := customer.Balance.Sub(amount)
	return ok(fmt.Sprintf("Payment of %s recorded for %s. New balance %s.", amount.String(), customer.Name, newBalance.String()),
		map[string]any{"ledgerEntryId": entry.ID.String(), "customer": customer.Name, "amount": amount.Rupees(), "balance": newBalance.Rupees()})
}

func (e *Engine) handleAddCredit(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}
	amount, ok2 := entityAmount(in.Entities)
	if !ok2 || !amount.IsPositive() {
		return fail(apperr.New(apperr.Validation, "AMOUNT_REQUIRED", "a positive amount is required"))
	}
	description := entityString(in.Entities, "description")
	if description == "" {
		description = entityString(in.Entities, "product")
	}
	if description == "" {
		return fail(apperr.New(apperr.Validation, "DESCRIPTION_REQUIRED", "a description is required to add credit"))
	}

	entry, err := e.store.AddCredit(ctx, customer.ID, amount, description)
	if err != nil {
		return fail(asAppErr(err))
	}
	newBalance := customer.Balance.Add(amount)
	return ok(fmt.Sprintf("Added %s to %s's account. New balance %s.", amount.String(), customer.Name, newBalance.String()),
		map[string]any{"ledgerEntryId": entry.ID.String(), "customer": customer.Name, "amount": amount.Rupees(), "balance": newBalance.Rupees()})
}
