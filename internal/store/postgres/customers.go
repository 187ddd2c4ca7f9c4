package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/money"
)

// CreateCustomer inserts a new customer row. Returns [apperr.Conflict] with
// code DUPLICATE_FOUND (wrapping the existing customer's id in Message) if
// phone is non-empty and already in use.
func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Phone != "" {
		existing, err := s.CustomerByPhone(ctx, c.Phone)
		if err == nil {
			return domain.Customer{}, apperr.New(apperr.Conflict, "DUPLICATE_FOUND", existing.ID.String())
		}
		var ae *apperr.Error
		if !errors.As(err, &ae) || ae.Kind != apperr.NotFound {
			return domain.Customer{}, err
		}
	}

	const q = `
		INSERT INTO customers (id, name, nickname, landmark, phone, email, gstin, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at`
	err := s.pool.QueryRow(ctx, q, c.ID, c.Name, c.Nickname, c.Landmark, c.Phone, c.Email, c.GSTIN, c.Balance.Paise()).
		Scan(&c.CreatedAt)
	if err != nil {
		return domain.Customer{}, apperr.Wrap(apperr.Database, "CREATE_CUSTOMER", err)
	}
	return c, nil
}

// UpdateCustomer applies a full-row update of the mutable fields.
func (s *Store) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	const q = `
		UPDATE customers
		SET name = $2, nickname = $3, landmark = $4, email = $5, gstin = $6
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, c.ID, c.Name, c.Nickname, c.Landmark, c.Email, c.GSTIN)
	if err != nil {
		return apperr.Wrap(apperr.Database, "UPDATE_CUSTOMER", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "CUSTOMER_NOT_FOUND", c.ID.String())
	}
	return nil
}

// UpdateCustomerPhone changes a customer's phone number, failing with
// [apperr.Conflict]/DUPLICATE_FOUND if another customer already has it.
func (s *Store) UpdateCustomerPhone(ctx context.Context, id uuid.UUID, phone string) error {
	if phone != "" {
		existing, err := s.CustomerByPhone(ctx, phone)
		if err == nil && existing.ID != id {
			return apperr.New(apperr.Conflict, "DUPLICATE_FOUND", existing.ID.String())
		}
	}
	tag, err := s.pool.Exec(ctx, `UPDATE customers SET phone = $2 WHERE id = $1`, id, phone)
	if err != nil {
		return apperr.Wrap(apperr.Database, "UPDATE_CUSTOMER_PHONE", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "CUSTOMER_NOT_FOUND", id.String())
	}
	return nil
}

// CustomerByID fetches a single customer by id.
func (s *Store) CustomerByID(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	return s.scanOneCustomer(ctx, `
		SELECT id, name, nickname, landmark, phone, email, gstin, balance, created_at
		FROM customers WHERE id = $1`, id)
}

// CustomerByPhone fetches a single customer by exact phone match.
func (s *Store) CustomerByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	return s.scanOneCustomer(ctx, `
		SELECT id, name, nickname, landmark, phone, email, gstin, balance, created_at
		FROM customers WHERE phone = $1`, phone)
}

func (s *Store) scanOneCustomer(ctx context.Context, q string, arg any) (domain.Customer, error) {
	row := s.pool.QueryRow(ctx, q, arg)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Customer{}, apperr.New(apperr.NotFound, "CUSTOMER_NOT_FOUND", fmt.Sprint(arg))
	}
	if err != nil {
		return domain.Customer{}, apperr.Wrap(apperr.Database, "CUSTOMER_LOOKUP", err)
	}
	return c, nil
}

// SearchCustomers returns candidates matching query against name, phone
// substring, or email, ordered by an exact-match-first heuristic. The
// business engine layers the fuzzy-name matcher on top of this result set.
func (s *Store) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	const q = `
		SELECT id, name, nickname, landmark, phone, email, gstin, balance, created_at
		FROM customers
		WHERE lower(name) = lower($1)
		   OR phone LIKE '%' || $1 || '%'
		   OR lower(email) = lower($1)
		   OR lower(name) LIKE lower($1) || '%'
		ORDER BY (lower(name) = lower($1)) DESC
		LIMIT 10`
	rows, err := s.pool.Query(ctx, q, strings.TrimSpace(query))
	if err != nil {
		return nil, apperr.Wrap(apperr.Database, "SEARCH_CUSTOMERS", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Database, "SEARCH_CUSTOMERS", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCustomerBalances returns every customer ordered by name, for the
// LIST_CUSTOMER_BALANCES intent.
func (s *Store) ListCustomerBalances(ctx context.Context) ([]domain.Customer, error) {
	const q = `
		SELECT id, name, nickname, landmark, phone, email, gstin, balance, created_at
		FROM customers ORDER BY name`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, apperr.Wrap(apperr.Database, "LIST_CUSTOMER_BALANCES", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Database, "LIST_CUSTOMER_BALANCES", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TotalPendingAmount sums the balance of every customer with a positive
// (amount-owed) balance.
func (s *Store) TotalPendingAmount(ctx context.Context) (money.Amount, error) {
	const q = `SELECT COALESCE(SUM(balance), 0) FROM customers WHERE balance > 0`
	var paise int64
	if err := s.pool.QueryRow(ctx, q).Scan(&paise); err != nil {
		return money.Zero, apperr.Wrap(apperr.Database, "TOTAL_PENDING_AMOUNT", err)
	}
	return money.FromPaise(paise), nil
}

// DeleteCustomerData permanently removes a customer and every row that
// references it, within a single transaction. Called only after the
// DELETE_CUSTOMER_DATA OTP has been verified by the caller.
func (s *Store) DeleteCustomerData(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.Database, "DELETE_CUSTOMER_DATA", err)
	}
	defer tx.Rollback(ctx)

	stmts := []string{
		`DELETE FROM invoice_line_items WHERE invoice_id IN (SELECT id FROM invoices WHERE customer_id = $1)`,
		`DELETE FROM invoices WHERE customer_id = $1`,
		`DELETE FROM ledger_entries WHERE customer_id = $1`,
		`DELETE FROM reminders WHERE customer_id = $1`,
		`DELETE FROM customers WHERE id = $1`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return apperr.Wrap(apperr.Database, "DELETE_CUSTOMER_DATA", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.Database, "DELETE_CUSTOMER_DATA", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	var paise int64
	err := row.Scan(&c.ID, &c.Name, &c.Nickname, &c.Landmark, &c.Phone, &c.Email, &c.GSTIN, &paise, &c.CreatedAt)
	if err != nil {
		return domain.Customer{}, err
	}
	c.Balance = money.FromPaise(paise)
	return c, nil
}
