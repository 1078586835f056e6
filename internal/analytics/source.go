package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Syed00000/order-Management/internal/orders"
)

// Source reads order facts straight from the order tables. Read-only: it
// issues SELECTs and nothing else. Recent orders are loaded through the
// order repository so they come back fully hydrated.
type Source struct {
	DB   *pgxpool.Pool
	repo *orders.Repository
}

func NewSource(db *pgxpool.Pool, repo *orders.Repository) *Source {
	return &Source{DB: db, repo: repo}
}

const selectFacts = `
	SELECT id, customer_id, customer_name, customer_email, order_date,
	       total_amount, status, priority, payment_status, payment_method
	FROM orders`

func (s *Source) Facts(ctx context.Context) ([]OrderFact, error) {
	rows, err := s.DB.Query(ctx, selectFacts)
	if err != nil {
		return nil, err
	}
	return scanFacts(rows)
}

func (s *Source) FactsBetween(ctx context.Context, from, to time.Time) ([]OrderFact, error) {
	rows, err := s.DB.Query(ctx, selectFacts+` WHERE order_date >= $1 AND order_date < $2`, from, to)
	if err != nil {
		return nil, err
	}
	return scanFacts(rows)
}

func scanFacts(rows pgx.Rows) ([]OrderFact, error) {
	defer rows.Close()
	var out []OrderFact
	for rows.Next() {
		var f OrderFact
		if err := rows.Scan(&f.OrderID, &f.CustomerID, &f.CustomerName, &f.CustomerEmail,
			&f.OrderDate, &f.TotalAmount, &f.Status, &f.Priority, &f.PaymentStatus, &f.PaymentMethod,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Source) RecentOrders(ctx context.Context, limit int) ([]orders.Order, error) {
	q := orders.ListQuery{SortBy: "orderDate", SortOrder: "desc", Page: 1, PageSize: limit}
	recent, _, err := s.repo.ListOrders(ctx, q)
	return recent, err
}

func (s *Source) CustomerCount(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, err
}
