// Package postgres provides the PostgreSQL-backed implementation of the
// shop voice-command server's Transactional Data Services: customers,
// products, invoices, ledger entries, and reminders.
//
// A single [pgxpool.Pool] backs all operations. [Migrate] applies idempotent
// DDL at startup when configured to do so — grounded on the teacher's
// pkg/memory/postgres package, whose Store/pgxpool.Pool construction and
// Migrate-on-startup DDL-in-Go-constants pattern is reused directly here,
// retargeted from the session/semantic-memory schema to the
// customer/invoice/ledger/reminder schema.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlCustomers = `
CREATE TABLE IF NOT EXISTS customers (
    id          UUID         PRIMARY KEY,
    name        TEXT         NOT NULL,
    nickname    TEXT         NOT NULL DEFAULT '',
    landmark    TEXT         NOT NULL DEFAULT '',
    phone       TEXT         NOT NULL DEFAULT '',
    email       TEXT         NOT NULL DEFAULT '',
    gstin       TEXT         NOT NULL DEFAULT '',
    balance     BIGINT       NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_customers_name ON customers (lower(name));
CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_phone ON customers (phone) WHERE phone <> '';
CREATE INDEX IF NOT EXISTS idx_customers_email ON customers (lower(email)) WHERE email <> '';
`

const ddlProducts = `
CREATE TABLE IF NOT EXISTS products (
    id          UUID         PRIMARY KEY,
    name        TEXT         NOT NULL,
    unit        TEXT         NOT NULL DEFAULT 'piece',
    price       BIGINT       NOT NULL DEFAULT 0,
    stock       INTEGER      NOT NULL DEFAULT 0,
    is_new      BOOLEAN      NOT NULL DEFAULT false
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_products_name ON products (lower(name));
`

const ddlInvoices = `
CREATE TABLE IF NOT EXISTS invoices (
    id          UUID         PRIMARY KEY,
    customer_id UUID         NOT NULL REFERENCES customers (id),
    total       BIGINT       NOT NULL DEFAULT 0,
    status      TEXT         NOT NULL DEFAULT 'DRAFT',
    gst         BOOLEAN      NOT NULL DEFAULT false,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_invoices_customer_created
    ON invoices (customer_id, created_at);

CREATE TABLE IF NOT EXISTS invoice_line_items (
    id           BIGSERIAL   PRIMARY KEY,
    invoice_id   UUID        NOT NULL REFERENCES invoices (id),
    product_id   UUID        NOT NULL REFERENCES products (id),
    quantity     INTEGER     NOT NULL,
    unit_price   BIGINT      NOT NULL,
    line_total   BIGINT      NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_line_items_invoice ON invoice_line_items (invoice_id);
`

const ddlLedger = `
CREATE TABLE IF NOT EXISTS ledger_entries (
    id           UUID        PRIMARY KEY,
    customer_id  UUID        NOT NULL REFERENCES customers (id),
    type         TEXT        NOT NULL,
    amount       BIGINT      NOT NULL,
    payment_mode TEXT        NOT NULL DEFAULT '',
    description  TEXT        NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ledger_customer_created
    ON ledger_entries (customer_id, created_at);
`

const ddlReminders = `
CREATE TABLE IF NOT EXISTS reminders (
    id             UUID        PRIMARY KEY,
    customer_id    UUID        NOT NULL REFERENCES customers (id),
    amount         BIGINT      NOT NULL,
    scheduled_time TIMESTAMPTZ NOT NULL,
    channels       TEXT[]      NOT NULL DEFAULT '{}',
    message        TEXT        NOT NULL DEFAULT '',
    status         TEXT        NOT NULL DEFAULT 'pending',
    retry_count    INTEGER     NOT NULL DEFAULT 0,
    last_attempt   TIMESTAMPTZ,
    sent_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_reminders_customer_scheduled
    ON reminders (customer_id, scheduled_time);

CREATE INDEX IF NOT EXISTS idx_reminders_status_scheduled
    ON reminders (status, scheduled_time);
`

// Migrate applies all DDL idempotently. Safe to call on every process start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlCustomers, ddlProducts, ddlInvoices, ddlLedger, ddlReminders} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres store: migrate: %w", err)
		}
	}
	return nil
}
