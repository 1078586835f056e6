// Package customers is the minimal directory the order store leans on:
// look up a customer by email, or lazily create one the first time an order
// arrives for an unknown address. Nothing here ever updates an existing
// record, so order snapshots stay the single source of historical truth.
package customers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository struct {
	DB *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{DB: db}
}

// FindOrCreateByEmail returns the id for the given email, inserting a new
// record when none exists. The upsert is a single statement, so two orders
// racing on the same new email both resolve to one customer row.
func (r *Repository) FindOrCreateByEmail(ctx context.Context, name, email, phone string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var id string
	err := r.DB.QueryRow(ctx, `
		INSERT INTO customers (id, name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id`,
		uuid.NewString(), name, email, phone,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, err
}
