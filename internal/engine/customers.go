package engine

import (
	"context"
	"fmt"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/intent"
	"github.com/shopvoice/shopvoice/internal/session"
)

func (e *Engine) handleCreateCustomer(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	name := entityString(in.Entities, "customer")
	if name == "" {
		name = entityString(in.Entities, "name")
	}
	if name == "" {
		return fail(apperr.New(apperr.Validation, "NAME_REQUIRED", "a customer name is required"))
	}

	c := domain.Customer{
		Name:  name,
		Phone: entityString(in.Entities, "phone"),
		Email: entityString(in.Entities, "email"),
	}
	created, err := e.store.CreateCustomer(ctx, c)
	if err != nil {
		return fail(asAppErr(err))
	}
	sess.Memory.SetActiveCustomer(session.CustomerRef{ID: created.ID, Name: created.Name})
	return ok(fmt.Sprintf("Customer %s created.", created.Name), map[string]any{"customerId": created.ID.String()})
}

func (e *Engine) handleUpdateCustomer(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}
	if v := entityString(in.Entities, "nickname"); v != "" {
		customer.Nickname = v
	}
	if v := entityString(in.Entities, "landmark"); v != "" {
		customer.Landmark = v
	}
	if v := entityString(in.Entities, "email"); v != "" {
		customer.Email = v
	}
	if v := entityString(in.Entities, "gstin"); v != "" {
		customer.GSTIN = v
	}
	if err := e.store.UpdateCustomer(ctx, customer); err != nil {
		return fail(asAppErr(err))
	}
	return ok(fmt.Sprintf("%s's details updated.", customer.Name), map[string]any{"customerId": customer.ID.String()})
}

func (e *Engine) handleUpdateCustomerPhone(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}
	phone := entityString(in.Entities, "phone")
	if phone == "" {
		return fail(apperr.New(apperr.Validation, "PHONE_REQUIRED", "a phone number is required"))
	}
	if err := e.store.UpdateCustomerPhone(ctx, customer.ID, phone); err != nil {
		return fail(asAppErr(err))
	}
	return ok(fmt.Sprintf("%s's phone updated.", customer.Name), map[string]any{"customerId": customer.ID.String(), "phone": phone})
}
