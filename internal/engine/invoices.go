package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/intent"
	"github.com/shopvoice/shopvoice/internal/money"
)

// lineItemInput is one entry of entities.items as extracted by the
// intent layer.
type lineItemInput struct {
	product  string
	quantity int
	unit     domain.Unit
}

func parseLineItems(entities map[string]any) []lineItemInput {
	raw, _ := entities["items"].([]any)
	items := make([]lineItemInput, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		item := lineItemInput{product: entityString(m, "product")}
		switch q := m["quantity"].(type) {
		case float64:
			item.quantity = int(q)
		case int:
			item.quantity = q
		}
		if u := entityString(m, "unit"); u != "" {
			item.unit = domain.Unit(u)
		} else {
			item.unit = domain.UnitPiece
		}
		if item.product != "" && item.quantity > 0 {
			items = append(items, item)
		}
	}
	return items
}

func (e *Engine) handleCreateInvoice(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}

	items := parseLineItems(in.Entities)
	if len(items) == 0 {
		return fail(apperr.New(apperr.Validation, "NO_LINE_ITEMS", "no line items in the invoice"))
	}

	lines := make([]domain.LineItem, 0, len(items))
	var total money.Amount
	for _, item := range items {
		product, err := e.store.ProductByName(ctx, item.product)
		if err != nil {
			if apperr.KindOf(err) != apperr.NotFound {
				return fail(asAppErr(err))
			}
			product, err = e.store.EnsureProduct(ctx, item.product, item.unit)
			if err != nil {
				return fail(asAppErr(err))
			}
		}
		lineTotal := money.FromPaise(product.Price.Paise() * int64(item.quantity))
		lines = append(lines, domain.LineItem{
			ProductID: product.ID,
			Quantity:  item.quantity,
			UnitPrice: product.Price,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}

	autoSend := entityBool(in.Entities, "autoSend")
	gst := sess.GSTDefault()
	if _, has := in.Entities["gst"]; has {
		gst = entityBool(in.Entities, "gst")
	}
	inv := domain.Invoice{
		CustomerID: customer.ID,
		Total:      total,
		Status:     domain.InvoiceDraft,
		GST:        gst,
		Items:      lines,
	}
	created, err := e.store.CreateDraftInvoice(ctx, inv)
	if err != nil {
		return fail(asAppErr(err))
	}

	if autoSend {
		if err := e.store.ConfirmInvoice(ctx, created.ID); err != nil {
			return fail(asAppErr(err))
		}
		created.Status = domain.InvoiceConfirmed
		sess.setPendingSendInvoice(created.ID)
		return ok(fmt.Sprintf("Invoice confirmed for %s, total %s.", customer.Name, created.Total.String()),
			map[string]any{"invoiceId": created.ID.String(), "total": created.Total.Rupees()})
	}

	sess.addDraft(created)
	return ok(fmt.Sprintf("Draft invoice for %s, total %s. Confirm karein?", customer.Name, created.Total.String()),
		map[string]any{"invoiceId": created.ID.String(), "total": created.Total.Rupees(), "status": string(created.Status)})
}

func (e *Engine) handleConfirmInvoice(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	name := entityString(in.Entities, "customer")

	if name == "" {
		if inv, ok := sess.soleDraft(); ok {
			if err := e.store.ConfirmInvoice(ctx, inv.ID); err != nil {
				return fail(asAppErr(err))
			}
			sess.removeDraft(inv.ID)
			sess.setPendingSendInvoice(inv.ID)
			return ok("Invoice confirmed.", map[string]any{"invoiceId": inv.ID.String()})
		}
		if sess.draftCount() > 1 {
			return fail(apperr.New(apperr.Conflict, "MULTIPLE_PENDING_INVOICES", "more than one draft invoice is pending; say the customer's name"))
		}
		return fail(apperr.New(apperr.NotFound, "NO_PENDING_INVOICE", "no draft invoice is pending"))
	}

	customer, err := e.resolveCustomer(ctx, sess, in)
	if err != nil {
		return fail(asAppErr(err))
	}
	drafts := sess.draftsForCustomer(customer.ID)
	if len(drafts) == 0 {
		return fail(apperr.New(apperr.NotFound, "NO_PENDING_INVOICE", "no draft invoice pending for "+customer.Name))
	}
	inv := drafts[0]
	if err := e.store.ConfirmInvoice(ctx, inv.ID); err != nil {
		return fail(asAppErr(err))
	}
	sess.removeDraft(inv.ID)
	sess.setPendingSendInvoice(inv.ID)
	return ok(fmt.Sprintf("Invoice confirmed for %s.", customer.Name), map[string]any{"invoiceId": inv.ID.String()})
}

func (e *Engine) handleCancelInvoice(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	if entityBool(in.Entities, "cancelAll") {
		customer, err := e.resolveCustomer(ctx, sess, in)
		if err != nil {
			return fail(asAppErr(err))
		}
		count, err := e.store.CancelAllDraftInvoices(ctx, customer.ID)
		if err != nil {
			return fail(asAppErr(err))
		}
		return ok(fmt.Sprintf("Cancelled %d invoice(s) for %s.", count, customer.Name), map[string]any{"count": count})
	}

	invoiceIDStr := entityString(in.Entities, "invoiceId")
	var invoiceID uuid.UUID
	var err error
	if invoiceIDStr != "" {
		invoiceID, err = uuid.Parse(invoiceIDStr)
		if err != nil {
			return fail(apperr.New(apperr.Validation, "INVALID_INVOICE_ID", invoiceIDStr))
		}
	} else {
		customer, err := e.resolveCustomer(ctx, sess, in)
		if err != nil {
			return fail(asAppErr(err))
		}
		drafts := sess.draftsForCustomer(customer.ID)
		if len(drafts) == 0 {
			return fail(apperr.New(apperr.NotFound, "NO_PENDING_INVOICE", "no invoice to cancel for "+customer.Name))
		}
		invoiceID = drafts[0].ID
	}

	if err := e.store.CancelInvoice(ctx, invoiceID); err != nil {
		return fail(asAppErr(err))
	}
	sess.removeDraft(invoiceID)
	return ok("Invoice cancelled.", map[string]any{"invoiceId": invoiceID.String()})
}

// asAppErr coerces any error into an *apperr.Error, wrapping unknown
// errors so [ExecutionResult.Err] is always populated on failure.
func asAppErr(err error) *apperr.Error {
	if ae, ok := err.(*apperr.Error); ok {
		return ae
	}
	return apperr.Wrap(apperr.Unknown, "INTERNAL", err)
}
