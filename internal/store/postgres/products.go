package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopvoice/shopvoice/internal/apperr"
	"github.com/shopvoice/shopvoice/internal/domain"
	"github.com/shopvoice/shopvoice/internal/money"
)

// ProductByName looks up a product by case-insensitive exact name match.
func (s *Store) ProductByName(ctx context.Context, name string) (domain.Product, error) {
	const q = `
		SELECT id, name, unit, price, stock, is_new
		FROM products WHERE lower(name) = lower($1)`
	row := s.pool.QueryRow(ctx, q, strings.TrimSpace(name))
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, apperr.New(apperr.NotFound, "PRODUCT_NOT_FOUND", name)
	}
	if err != nil {
		return domain.Product{}, apperr.Wrap(apperr.Database, "PRODUCT_LOOKUP", err)
	}
	return p, nil
}

// ProductByID fetches a single product by id.
func (s *Store) ProductByID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	const q = `SELECT id, name, unit, price, stock, is_new FROM products WHERE id = $1`
	row := s.pool.QueryRow(ctx, q, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, apperr.New(apperr.NotFound, "PRODUCT_NOT_FOUND", id.String())
	}
	if err != nil {
		return domain.Product{}, apperr.Wrap(apperr.Database, "PRODUCT_LOOKUP", err)
	}
	return p, nil
}

// EnsureProduct returns the product named name, creating it at price zero
// with IsNew set and zero stock if it does not already exist, matching the
// invoice-creation auto-create-unknown-product contract.
func (s *Store) EnsureProduct(ctx context.Context, name string, unit domain.Unit) (domain.Product, error) {
	p, err := s.ProductByName(ctx, name)
	if err == nil {
		return p, nil
	}
	if apperr.KindOf(err) != apperr.NotFound {
		return domain.Product{}, err
	}

	p = domain.Product{
		ID:    uuid.New(),
		Name:  strings.TrimSpace(name),
		Unit:  unit,
		Price: money.Zero,
		Stock: 0,
		IsNew: true,
	}
	const ins = `
		INSERT INTO products (id, name, unit, price, stock, is_new)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, ins, p.ID, p.Name, p.Unit, p.Price.Paise(), p.Stock, p.IsNew); err != nil {
		return domain.Product{}, apperr.Wrap(apperr.Database, "ENSURE_PRODUCT", err)
	}
	return p, nil
}

// UpdateProductPrice sets a product's unit price.
func (s *Store) UpdateProductPrice(ctx context.Context, id uuid.UUID, price money.Amount) error {
	tag, err := s.pool.Exec(ctx, `UPDATE products SET price = $2 WHERE id = $1`, id, price.Paise())
	if err != nil {
		return apperr.Wrap(apperr.Database, "UPDATE_PRODUCT_PRICE", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "PRODUCT_NOT_FOUND", id.String())
	}
	return nil
}

// adjustProductStockTx applies a signed delta to a product's stock count,
// within an existing transaction (used by invoice create/cancel).
func adjustProductStockTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) error {
	tag, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return apperr.Wrap(apperr.Database, "ADJUST_PRODUCT_STOCK", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "PRODUCT_NOT_FOUND", id.String())
	}
	return nil
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var paise int64
	err := row.Scan(&p.ID, &p.Name, &p.Unit, &paise, &p.Stock, &p.IsNew)
	if err != nil {
		return domain.Product{}, err
	}
	p.Price = money.FromPaise(paise)
	return p, nil
}
