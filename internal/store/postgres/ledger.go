package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/money"
)

// RecordPayment records a CREDIT ledger entry for a payment received from a
// customer and decrements their balance by the same amount. paymentMode is
// required; an empty mode is a validation error at the engine layer, not
// enforced again here.
func (s *Store) RecordPayment(ctx context.Context, customerID uuid.UUID, amount money.Amount, mode domain.PaymentMode, description string) (domain.LedgerEntry, error) {
	entry := domain.LedgerEntry{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Type:        domain.LedgerCredit,
		Amount:      amount,
		PaymentMode: mode,
		Description: description,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.LedgerEntry{}, apperr.Wrap(apperr.Database, "RECORD_PAYMENT", err)
	}
	defer tx.Rollback(ctx)

	const insLedger = `
		INSERT INTO ledger_entries (id, customer_id, type, amount, payment_mode, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at`
	err = tx.QueryRow(ctx, insLedger, entry.ID, entry.CustomerID, entry.Type, entry.Amount.Paise(), entry.PaymentMode, entry.Description).
		Scan(&entry.CreatedAt)
	if err != nil {
		return domain.LedgerEntry{}, apperr.Wrap(apperr.Database, "RECORD_PAYMENT", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE customers SET balance = balance - $2 WHERE id = $1`, customerID, amount.Paise())
	if err != nil {
		return domain.LedgerEntry{}, apperr.Wrap(apperr.Database, "RECORD_PAYMENT", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.LedgerEntry{}, apperr.New(apperr.NotFound, "CUSTOMER_NOT_FOUND", customerID.String())
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.LedgerEntry{}, apperr.Wrap(apperr.Database, "RECORD_PAYMENT", err)
	}
	return entry, nil
}

// AddCredit records a DEBIT ledger entry (goods/services given on credit,
// outside of an invoice) and increments the customer balance. description
// is required by the engine contract so every ad-hoc credit carries a
// reason.
func (s *Store) AddCredit(ctx context.Context, customerID uuid.UUID, amount money.Amount, description string) (domain.LedgerEntry, error) {
	if description == "" {
		return domain.LedgerEntry{}, apperr.New(apperr.Validation, "DESCRIPTION_REQUIRED", "add credit requires a description")
	}

	entry := domain.LedgerEntry{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Type:        domain.LedgerDebit,
		Amount:      amount,
		Description: description,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.LedgerEntry{}, apperr.Wrap(apperr.Database, "ADD_CREDIT", err)
	}
	defer tx.Rollback(ctx)

	const insLedger = `
		INSERT INTO ledger_entries (id, customer_id, type, amount, payment_mode, description, created_at)
		VALUES ($1, $2, $3, $4, '', $5, now())
		RETURNING created_at`
	err = tx.QueryRow(ctx, insLedger, entry.ID, entry.CustomerID, entry.Type, entry.Amount.Paise(), entry.Description).
		Scan(&entry.CreatedAt)
	if err != nil {
		return domain.LedgerEntry{}, apperr.Wrap(apperr.Database, "ADD_CREDIT", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE customers SET balance = balance + $2 WHERE id = $1`, customerID, amount.Paise())
	if err != nil {
		return domain.LedgerEntry{}, apperr.Wrap(apperr.Database, "ADD_CREDIT", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.LedgerEntry{}, apperr.New(apperr.NotFound, "CUSTOMER_NOT_FOUND", customerID.String())
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.LedgerEntry{}, apperr.Wrap(apperr.Database, "ADD_CREDIT", err)
	}
	return entry, nil
}

// LedgerHistory returns a customer's ledger entries, most recent first,
// capped at limit rows.
func (s *Store) LedgerHistory(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		SELECT id, customer_id, type, amount, payment_mode, description, created_at
		FROM ledger_entries WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, q, customerID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Database, "LEDGER_HISTORY", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var paise int64
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.Type, &paise, &e.PaymentMode, &e.Description, &e.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Database, "LEDGER_HISTORY", err)
		}
		e.Amount = money.FromPaise(paise)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DailySummary is the aggregated DAILY_SUMMARY report: invoice count and
// total, payments received, and credit given, for a single calendar day.
type DailySummary struct {
	InvoiceCount  int
	InvoiceTotal  money.Amount
	PaymentsTotal money.Amount
	CreditGiven   money.Amount
	NewCustomers  int
}

// DailySummaryRange aggregates activity between start (inclusive) and end
// (exclusive), the window the business engine computes from the shop's
// configured timezone for the DAILY_SUMMARY intent.
func (s *Store) DailySummaryRange(ctx context.Context, start, end time.Time) (DailySummary, error) {
	var out DailySummary
	var invoicePaise int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM invoices WHERE created_at >= $1 AND created_at < $2 AND status <> $3`,
		start, end, domain.InvoiceCancelled).
		Scan(&out.InvoiceCount, &invoicePaise)
	if err != nil {
		return DailySummary{}, apperr.Wrap(apperr.Database, "DAILY_SUMMARY", err)
	}
	out.InvoiceTotal = money.FromPaise(invoicePaise)

	var paymentsPaise int64
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		WHERE created_at >= $1 AND created_at < $2 AND type = $3 AND payment_mode <> ''`,
		start, end, domain.LedgerCredit).
		Scan(&paymentsPaise)
	if err != nil {
		return DailySummary{}, apperr.Wrap(apperr.Database, "DAILY_SUMMARY", err)
	}
	out.PaymentsTotal = money.FromPaise(paymentsPaise)

	var creditPaise int64
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		WHERE created_at >= $1 AND created_at < $2 AND type = $3 AND payment_mode = ''`,
		start, end, domain.LedgerDebit).
		Scan(&creditPaise)
	if err != nil {
		return DailySummary{}, apperr.Wrap(apperr.Database, "DAILY_SUMMARY", err)
	}
	out.CreditGiven = money.FromPaise(creditPaise)

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM customers WHERE created_at >= $1 AND created_at < $2`,
		start, end).
		Scan(&out.NewCustomers)
	if err != nil {
		return DailySummary{}, apperr.Wrap(apperr.Database, "DAILY_SUMMARY", err)
	}

	return out, nil
}
