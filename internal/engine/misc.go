package engine

import (
	"context"
	"fmt"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/intent"
)

// handleCheckStock is a read-only lookup of a product's current stock.
func (e *Engine) handleCheckStock(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	name := entityString(in.Entities, "product")
	if name == "" {
		return fail(apperr.New(apperr.Validation, "PRODUCT_REQUIRED", "no product named"))
	}
	product, err := e.store.ProductByName(ctx, name)
	if err != nil {
		return fail(asAppErr(err))
	}
	return ok(fmt.Sprintf("%s: %d in stock.", product.Name, product.Stock),
		map[string]any{"productId": product.ID.String(), "name": product.Name, "stock": product.Stock})
}

// handleShowPendingInvoice lists this session's pending draft invoices,
// optionally narrowed to a named customer.
func (e *Engine) handleShowPendingInvoice(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	if name := entityString(in.Entities, "customer"); name != "" {
		customer, err := e.resolveCustomer(ctx, sess, in)
		if err != nil {
			return fail(asAppErr(err))
		}
		drafts := sess.draftsForCustomer(customer.ID)
		return pendingInvoiceResult(drafts)
	}
	return pendingInvoiceResult(sess.allDrafts())
}

func pendingInvoiceResult(drafts []domain.Invoice) ExecutionResult {
	if len(drafts) == 0 {
		return ok("No draft invoices are pending.", map[string]any{"invoices": []map[string]any{}})
	}
	rows := make([]map[string]any, 0, len(drafts))
	for _, d := range drafts {
		rows = append(rows, map[string]any{"invoiceId": d.ID.String(), "total": d.Total.Rupees()})
	}
	return ok(fmt.Sprintf("%d draft invoice(s) pending.", len(drafts)), map[string]any{"invoices": rows})
}

// handleToggleGST flips this session's default GST inclusion for future
// CREATE_INVOICE calls that do not specify the gst entity explicitly.
func (e *Engine) handleToggleGST(ctx context.Context, sess *Session, in intent.Intent) ExecutionResult {
	enabled := sess.ToggleGST()
	status := "off"
	if enabled {
		status = "on"
	}
	return ok(fmt.Sprintf("GST is now %s for new invoices.", status), map[string]any{"gst": enabled})
}
