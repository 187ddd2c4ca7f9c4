package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/money"
)

// CreateDraftInvoice inserts a DRAFT invoice with its line items, reserves
// stock for each line, and records a DEBIT ledger entry plus the matching
// customer balance increase — all within one transaction, so a confirmation
// timeout or cancel can be undone atomically by [Store.CancelInvoice].
func (s *Store) CreateDraftInvoice(ctx context.Context, inv domain.Invoice) (domain.Invoice, error) {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.Status = domain.InvoiceDraft

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Invoice{}, apperr.Wrap(apperr.Database, "CREATE_DRAFT_INVOICE", err)
	}
	defer tx.Rollback(ctx)

	const insInvoice = `
		INSERT INTO invoices (id, customer_id, total, status, gst, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`
	err = tx.QueryRow(ctx, insInvoice, inv.ID, inv.CustomerID, inv.Total.Paise(), inv.Status, inv.GST).
		Scan(&inv.CreatedAt)
	if err != nil {
		return domain.Invoice{}, apperr.Wrap(apperr.Database, "CREATE_DRAFT_INVOICE", err)
	}

	const insItem = `
		INSERT INTO invoice_line_items (invoice_id, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5)`
	for _, item := range inv.Items {
		if _, err := tx.Exec(ctx, insItem, inv.ID, item.ProductID, item.Quantity, item.UnitPrice.Paise(), item.LineTotal.Paise()); err != nil {
			return domain.Invoice{}, apperr.Wrap(apperr.Database, "CREATE_DRAFT_INVOICE", err)
		}
		if err := adjustProductStockTx(ctx, tx, item.ProductID, -item.Quantity); err != nil {
			return domain.Invoice{}, err
		}
	}

	ledgerID := uuid.New()
	const insLedger = `
		INSERT INTO ledger_entries (id, customer_id, type, amount, payment_mode, description, created_at)
		VALUES ($1, $2, $3, $4, '', $5, now())`
	desc := fmt.Sprintf("invoice %s", inv.ID)
	if _, err := tx.Exec(ctx, insLedger, ledgerID, inv.CustomerID, domain.LedgerDebit, inv.Total.Paise(), desc); err != nil {
		return domain.Invoice{}, apperr.Wrap(apperr.Database, "CREATE_DRAFT_INVOICE", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE customers SET balance = balance + $2 WHERE id = $1`, inv.CustomerID, inv.Total.Paise()); err != nil {
		return domain.Invoice{}, apperr.Wrap(apperr.Database, "CREATE_DRAFT_INVOICE", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Invoice{}, apperr.Wrap(apperr.Database, "CREATE_DRAFT_INVOICE", err)
	}
	return inv, nil
}

// ConfirmInvoice promotes a DRAFT invoice to CONFIRMED. It is a no-op
// status change only: stock and balance were already applied at draft time.
func (s *Store) ConfirmInvoice(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE invoices SET status = $2 WHERE id = $1 AND status = $3`
	tag, err := s.pool.Exec(ctx, q, id, domain.InvoiceConfirmed, domain.InvoiceDraft)
	if err != nil {
		return apperr.Wrap(apperr.Database, "CONFIRM_INVOICE", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.Conflict, "INVOICE_NOT_DRAFT", id.String())
	}
	return nil
}

// CancelInvoice reverses a DRAFT or CONFIRMED invoice: restores stock,
// records a compensating CREDIT ledger entry, decrements the customer
// balance, and marks the invoice CANCELLED. Cancelling an already
// cancelled invoice is a no-op (idempotent).
func (s *Store) CancelInvoice(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.Database, "CANCEL_INVOICE", err)
	}
	defer tx.Rollback(ctx)

	var inv domain.Invoice
	var paise int64
	err = tx.QueryRow(ctx, `SELECT id, customer_id, total, status FROM invoices WHERE id = $1`, id).
		Scan(&inv.ID, &inv.CustomerID, &paise, &inv.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.New(apperr.NotFound, "INVOICE_NOT_FOUND", id.String())
	}
	if err != nil {
		return apperr.Wrap(apperr.Database, "CANCEL_INVOICE", err)
	}
	inv.Total = money.FromPaise(paise)

	if inv.Status == domain.InvoiceCancelled {
		return tx.Commit(ctx)
	}

	rows, err := tx.Query(ctx, `SELECT product_id, quantity FROM invoice_line_items WHERE invoice_id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Database, "CANCEL_INVOICE", err)
	}
	type line struct {
		productID uuid.UUID
		qty       int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.qty); err != nil {
			rows.Close()
			return apperr.Wrap(apperr.Database, "CANCEL_INVOICE", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apperr.Wrap(apperr.Database, "CANCEL_INVOICE", err)
	}

	for _, l := range lines {
		if err := adjustProductStockTx(ctx, tx, l.productID, l.qty); err != nil {
			return err
		}
	}

	ledgerID := uuid.New()
	desc := fmt.Sprintf("cancellation of invoice %s", id)
	const insLedger = `
		INSERT INTO ledger_entries (id, customer_id, type, amount, payment_mode, description, created_at)
		VALUES ($1, $2, $3, $4, '', $5, now())`
	if _, err := tx.Exec(ctx, insLedger, ledgerID, inv.CustomerID, domain.LedgerCredit, inv.Total.Paise(), desc); err != nil {
		return apperr.Wrap(apperr.Database, "CANCEL_INVOICE", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE customers SET balance = balance - $2 WHERE id = $1`, inv.CustomerID, inv.Total.Paise()); err != nil {
		return apperr.Wrap(apperr.Database, "CANCEL_INVOICE", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE invoices SET status = $2 WHERE id = $1`, id, domain.InvoiceCancelled); err != nil {
		return apperr.Wrap(apperr.Database, "CANCEL_INVOICE", err)
	}

	return tx.Commit(ctx)
}

// CancelAllDraftInvoices cancels every DRAFT invoice for a customer, for the
// "cancel all" variant of CANCEL_INVOICE.
func (s *Store) CancelAllDraftInvoices(ctx context.Context, customerID uuid.UUID) (int, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM invoices WHERE customer_id = $1 AND status = $2`,
		customerID, domain.InvoiceDraft)
	if err != nil {
		return 0, apperr.Wrap(apperr.Database, "CANCEL_ALL_DRAFT_INVOICES", err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, apperr.Wrap(apperr.Database, "CANCEL_ALL_DRAFT_INVOICES", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperr.Wrap(apperr.Database, "CANCEL_ALL_DRAFT_INVOICES", err)
	}

	for _, id := range ids {
		if err := s.CancelInvoice(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// InvoiceByID fetches an invoice with its line items.
func (s *Store) InvoiceByID(ctx context.Context, id uuid.UUID) (domain.Invoice, error) {
	var inv domain.Invoice
	var paise int64
	err := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, total, status, gst, created_at FROM invoices WHERE id = $1`, id).
		Scan(&inv.ID, &inv.CustomerID, &paise, &inv.Status, &inv.GST, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Invoice{}, apperr.New(apperr.NotFound, "INVOICE_NOT_FOUND", id.String())
	}
	if err != nil {
		return domain.Invoice{}, apperr.Wrap(apperr.Database, "INVOICE_LOOKUP", err)
	}
	inv.Total = money.FromPaise(paise)

	rows, err := s.pool.Query(ctx, `
		SELECT product_id, quantity, unit_price, line_total
		FROM invoice_line_items WHERE invoice_id = $1`, id)
	if err != nil {
		return domain.Invoice{}, apperr.Wrap(apperr.Database, "INVOICE_LOOKUP", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.LineItem
		var unitPaise, totalPaise int64
		if err := rows.Scan(&item.ProductID, &item.Quantity, &unitPaise, &totalPaise); err != nil {
			return domain.Invoice{}, apperr.Wrap(apperr.Database, "INVOICE_LOOKUP", err)
		}
		item.UnitPrice = money.FromPaise(unitPaise)
		item.LineTotal = money.FromPaise(totalPaise)
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}
