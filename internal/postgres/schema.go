package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate bootstraps the schema. Idempotent, runs on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	phone      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
	id                     UUID PRIMARY KEY,
	order_number           TEXT NOT NULL UNIQUE,
	customer_id            UUID NOT NULL REFERENCES customers(id),
	customer_name          TEXT NOT NULL,
	customer_email         TEXT NOT NULL,
	customer_phone         TEXT,
	status                 TEXT NOT NULL,
	priority               TEXT NOT NULL,
	payment_method         TEXT NOT NULL,
	payment_status         TEXT NOT NULL,
	total_amount           NUMERIC(12,2) NOT NULL,
	currency               TEXT NOT NULL DEFAULT 'USD',
	ship_street            TEXT NOT NULL,
	ship_city              TEXT NOT NULL,
	ship_state             TEXT NOT NULL,
	ship_zip               TEXT NOT NULL,
	ship_country           TEXT NOT NULL,
	bill_street            TEXT,
	bill_city              TEXT,
	bill_state             TEXT,
	bill_zip               TEXT,
	bill_country           TEXT,
	order_date             TIMESTAMPTZ NOT NULL,
	expected_delivery_date TIMESTAMPTZ,
	actual_delivery_date   TIMESTAMPTZ,
	notes                  TEXT,
	tracking_number        TEXT,
	assigned_to            TEXT,
	created_at             TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_status         ON orders (status);
CREATE INDEX IF NOT EXISTS idx_orders_priority       ON orders (priority);
CREATE INDEX IF NOT EXISTS idx_orders_order_date     ON orders (order_date DESC);
CREATE INDEX IF NOT EXISTS idx_orders_customer_id    ON orders (customer_id);
CREATE INDEX IF NOT EXISTS idx_orders_customer_email ON orders (customer_email);

CREATE TABLE IF NOT EXISTS order_items (
	id           BIGSERIAL PRIMARY KEY,
	order_id     UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	position     INT NOT NULL,
	product_id   TEXT NOT NULL,
	product_name TEXT NOT NULL,
	quantity     INT NOT NULL CHECK (quantity >= 1),
	unit_price   NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
	total_price  NUMERIC(12,2) NOT NULL CHECK (total_price >= 0)
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id);

CREATE TABLE IF NOT EXISTS order_status_history (
	id         BIGSERIAL PRIMARY KEY,
	order_id   UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	status     TEXT NOT NULL,
	changed_by TEXT,
	changed_at TIMESTAMPTZ NOT NULL,
	notes      TEXT
);

CREATE INDEX IF NOT EXISTS idx_history_order_id ON order_status_history (order_id);

CREATE TABLE IF NOT EXISTS order_attachments (
	id            BIGSERIAL PRIMARY KEY,
	order_id      UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	filename      TEXT NOT NULL,
	original_name TEXT NOT NULL,
	mimetype      TEXT,
	size          BIGINT,
	upload_date   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_attachments_order_id ON order_attachments (order_id);

CREATE TABLE IF NOT EXISTS order_sequences (
	day TEXT PRIMARY KEY,
	seq INT NOT NULL
);
`
