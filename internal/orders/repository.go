package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createAttempts = 3
	retryBackoff   = 25 * time.Millisecond
)

// Repository owns all SQL against the order tables. Status changes and their
// history rows always commit in one transaction, so a reader can never see a
// status without its matching ledger entry.
type Repository struct {
	DB    *pgxpool.Pool
	alloc *Allocator
	clock Clock
}

func NewRepository(db *pgxpool.Pool, alloc *Allocator, clock Clock) *Repository {
	return &Repository{DB: db, alloc: alloc, clock: clock}
}

// ListQuery narrows and pages ListOrders. Zero values mean "no filter".
type ListQuery struct {
	Status        Status
	Priority      Priority
	CustomerEmail string // case-insensitive substring
	OrderNumber   string // case-insensitive substring
	SortBy        string
	SortOrder     string // asc | desc
	Page          int
	PageSize      int
}

// Patch is the explicit whitelist of mutable order fields. Anything the
// boundary did not map onto it never reaches the store.
type Patch struct {
	Status               *Status
	Priority             *Priority
	PaymentStatus        *PaymentStatus
	PaymentMethod        *PaymentMethod
	TrackingNumber       *string
	ExpectedDeliveryDate *time.Time
	ActualDeliveryDate   *time.Time
	Notes                *string
	AssignedTo           *string
}

var sortColumns = map[string]string{
	"orderDate":    "order_date",
	"orderNumber":  "order_number",
	"totalAmount":  "total_amount",
	"status":       "status",
	"priority":     "priority",
	"customerName": "customer_name",
	"createdAt":    "created_at",
}

// CreateOrder allocates the order number and persists the order, its items,
// attachments and first history entry in a single transaction. Transient
// write conflicts (serialization failures, a lost duplicate-number race) are
// retried a bounded number of times with backoff; the allocator recomputes
// the day on every attempt.
func (r *Repository) CreateOrder(ctx context.Context, o *Order) error {
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return storageErr("create order", ctx.Err())
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
		err := r.createOnce(ctx, o)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}
	return storageErr("create order", lastErr)
}

func (r *Repository) createOnce(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	number, err := r.alloc.Next(ctx, tx)
	if err != nil {
		return err
	}
	o.OrderNumber = number

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, customer_id, customer_name, customer_email, customer_phone,
			status, priority, payment_method, payment_status, total_amount, currency,
			ship_street, ship_city, ship_state, ship_zip, ship_country,
			bill_street, bill_city, bill_state, bill_zip, bill_country,
			order_date, expected_delivery_date, actual_delivery_date,
			notes, tracking_number, assigned_to, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
		          $18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30)`,
		o.ID, o.OrderNumber, o.CustomerID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.Status, o.Priority, o.PaymentMethod, o.PaymentStatus, o.TotalAmount, o.Currency,
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State,
		o.ShippingAddress.ZipCode, o.ShippingAddress.Country,
		billField(o.BillingAddress, func(a *Address) string { return a.Street }),
		billField(o.BillingAddress, func(a *Address) string { return a.City }),
		billField(o.BillingAddress, func(a *Address) string { return a.State }),
		billField(o.BillingAddress, func(a *Address) string { return a.ZipCode }),
		billField(o.BillingAddress, func(a *Address) string { return a.Country }),
		o.OrderDate, o.ExpectedDeliveryDate, o.ActualDeliveryDate,
		o.Notes, o.TrackingNumber, o.AssignedTo, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return storageErr("insert order", err)
	}

	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, position, product_id, product_name, quantity, unit_price, total_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.TotalPrice,
		); err != nil {
			return storageErr("insert order item", err)
		}
	}

	for _, a := range o.Attachments {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_attachments (order_id, filename, original_name, mimetype, size, upload_date)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, a.Filename, a.OriginalName, a.Mimetype, a.Size, a.UploadDate,
		); err != nil {
			return storageErr("insert attachment", err)
		}
	}

	for _, h := range o.StatusHistory {
		if err := insertHistory(ctx, tx, o.ID, h); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit create", err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, selectOrder+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get order", err)
	}
	if err := r.loadChildren(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repository) ListOrders(ctx context.Context, q ListQuery) ([]Order, int, error) {
	where, args := buildFilter(q)

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, storageErr("count orders", err)
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "order_date"
	}
	dir := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		dir = "ASC"
	}
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	args = append(args, size, (page-1)*size)
	sql := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		selectOrder, where, col, dir, len(args)-1, len(args))

	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, storageErr("list orders", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, storageErr("scan order", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr("list orders", err)
	}
	for i := range out {
		if err := r.loadChildren(ctx, &out[i]); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// UpdateOrder applies the patch and, when it changes the status, appends the
// matching history row in the same transaction. The second return value is
// the status before the patch.
func (r *Repository) UpdateOrder(ctx context.Context, id string, p Patch) (*Order, Status, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, "", storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", storageErr("lock order", err)
	}

	now := r.clock.Now()
	sets := []string{"updated_at = $2"}
	args := []any{id, now}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Priority != nil {
		add("priority", *p.Priority)
	}
	if p.PaymentStatus != nil {
		add("payment_status", *p.PaymentStatus)
	}
	if p.PaymentMethod != nil {
		add("payment_method", *p.PaymentMethod)
	}
	if p.TrackingNumber != nil {
		add("tracking_number", *p.TrackingNumber)
	}
	if p.ExpectedDeliveryDate != nil {
		add("expected_delivery_date", *p.ExpectedDeliveryDate)
	}
	if p.ActualDeliveryDate != nil {
		add("actual_delivery_date", *p.ActualDeliveryDate)
	}
	if p.Notes != nil {
		add("notes", *p.Notes)
	}
	if p.AssignedTo != nil {
		add("assigned_to", *p.AssignedTo)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...); err != nil {
		return nil, "", storageErr("update order", err)
	}

	if p.Status != nil && *p.Status != current {
		h := HistoryEntry{
			Status:    *p.Status,
			ChangedAt: now,
			Notes:     fmt.Sprintf("Status changed from %s to %s", current, *p.Status),
		}
		if err := insertHistory(ctx, tx, id, h); err != nil {
			return nil, "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", storageErr("commit update", err)
	}
	o, err := r.GetOrder(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return o, current, nil
}

// SetStatus is the narrow audited path: status column and ledger row in one
// transaction, nothing else touched, no full-document validation. Returns the
// previous status.
func (r *Repository) SetStatus(ctx context.Context, id string, status Status, actor, notes string) (Status, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", storageErr("lock order", err)
	}

	now := r.clock.Now()
	if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, now); err != nil {
		return "", storageErr("set status", err)
	}
	h := HistoryEntry{Status: status, ChangedBy: actor, ChangedAt: now, Notes: notes}
	if err := insertHistory(ctx, tx, id, h); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", storageErr("commit status", err)
	}
	return current, nil
}

// DeleteOrder removes the order (items, history and attachment rows cascade)
// and returns the deleted record so the caller can discard blobs and publish.
func (r *Repository) DeleteOrder(ctx context.Context, id string) (*Order, error) {
	o, err := r.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, storageErr("delete order", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return o, nil
}

const selectOrder = `
	SELECT id, order_number, customer_id, customer_name, customer_email, customer_phone,
	       status, priority, payment_method, payment_status, total_amount, currency,
	       ship_street, ship_city, ship_state, ship_zip, ship_country,
	       bill_street, bill_city, bill_state, bill_zip, bill_country,
	       order_date, expected_delivery_date, actual_delivery_date,
	       notes, tracking_number, assigned_to, created_at, updated_at
	FROM orders`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o                                                  Order
		phone, notes, tracking, assigned                   *string
		billStreet, billCity, billState, billZip, billCtry *string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.CustomerEmail, &phone,
		&o.Status, &o.Priority, &o.PaymentMethod, &o.PaymentStatus, &o.TotalAmount, &o.Currency,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
		&billStreet, &billCity, &billState, &billZip, &billCtry,
		&o.OrderDate, &o.ExpectedDeliveryDate, &o.ActualDeliveryDate,
		&notes, &tracking, &assigned, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.CustomerPhone = deref(phone)
	o.Notes = deref(notes)
	o.TrackingNumber = deref(tracking)
	o.AssignedTo = deref(assigned)
	if billStreet != nil || billCity != nil || billState != nil || billZip != nil || billCtry != nil {
		o.BillingAddress = &Address{
			Street: deref(billStreet), City: deref(billCity), State: deref(billState),
			ZipCode: deref(billZip), Country: deref(billCtry),
		}
	}
	return &o, nil
}

func (r *Repository) loadChildren(ctx context.Context, o *Order) error {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, product_name, quantity, unit_price, total_price
		FROM order_items WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return storageErr("load items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return storageErr("scan item", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return storageErr("load items", err)
	}

	hrows, err := r.DB.Query(ctx, `
		SELECT status, changed_by, changed_at, notes
		FROM order_status_history WHERE order_id = $1 ORDER BY changed_at, id`, o.ID)
	if err != nil {
		return storageErr("load history", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var (
			h            HistoryEntry
			actor, notes *string
		)
		if err := hrows.Scan(&h.Status, &actor, &h.ChangedAt, &notes); err != nil {
			return storageErr("scan history", err)
		}
		h.ChangedBy = deref(actor)
		h.Notes = deref(notes)
		o.StatusHistory = append(o.StatusHistory, h)
	}
	if err := hrows.Err(); err != nil {
		return storageErr("load history", err)
	}

	arows, err := r.DB.Query(ctx, `
		SELECT filename, original_name, mimetype, size, upload_date
		FROM order_attachments WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return storageErr("load attachments", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a Attachment
		if err := arows.Scan(&a.Filename, &a.OriginalName, &a.Mimetype, &a.Size, &a.UploadDate); err != nil {
			return storageErr("scan attachment", err)
		}
		o.Attachments = append(o.Attachments, a)
	}
	return arows.Err()
}

// insertHistory only ever appends: the ledger has no update or delete path
// anywhere in the repository.
func insertHistory(ctx context.Context, tx pgx.Tx, orderID string, h HistoryEntry) error {
	var actor *string
	if h.ChangedBy != "" {
		actor = &h.ChangedBy
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_history (order_id, status, changed_by, changed_at, notes)
		VALUES ($1,$2,$3,$4,$5)`,
		orderID, h.Status, actor, h.ChangedAt, h.Notes,
	); err != nil {
		return storageErr("insert history", err)
	}
	return nil
}

func buildFilter(q ListQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.Status != "" {
		add("status = $%d", q.Status)
	}
	if q.Priority != "" {
		add("priority = $%d", q.Priority)
	}
	if q.CustomerEmail != "" {
		add("customer_email ILIKE $%d", "%"+q.CustomerEmail+"%")
	}
	if q.OrderNumber != "" {
		add("order_number ILIKE $%d", "%"+q.OrderNumber+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func retryable(err error) bool {
	var alloc *AllocationError
	if errors.As(err, &alloc) && errors.Is(alloc.Err, ErrSequenceExhausted) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization failure, deadlock
			return true
		case "23505": // duplicate order number lost a race
			return strings.Contains(pgErr.ConstraintName, "order_number")
		}
	}
	return false
}

func billField(a *Address, f func(*Address) string) *string {
	if a == nil {
		return nil
	}
	v := f(a)
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
