package orders

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxNotesLen     = 1000
	defaultCurrency = "USD"
	defaultCountry  = "USA"
	eventVersion    = 1
	maxListPageSize = 100
	createdNote     = "Order created"
	minCustomerName = 2
	maxCustomerName = 100
)

type repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, q ListQuery) ([]Order, int, error)
	UpdateOrder(ctx context.Context, id string, p Patch) (*Order, Status, error)
	SetStatus(ctx context.Context, id string, status Status, actor, notes string) (Status, error)
	DeleteOrder(ctx context.Context, id string) (*Order, error)
}

// customerDirectory resolves the weak customer relation; the store never
// mutates customers beyond this lazy create.
type customerDirectory interface {
	FindOrCreateByEmail(ctx context.Context, name, email, phone string) (string, error)
}

type attachmentStore interface {
	DeleteFiles(ctx context.Context, filenames []string) error
}

// EventSink receives lifecycle envelopes after a successful commit. The kafka
// producer adapts onto it; tests use a recording fake.
type EventSink interface {
	Emit(topic string, env Envelope)
}

type noopSink struct{}

func (noopSink) Emit(string, Envelope) {}

type Service struct {
	repo      repository
	customers customerDirectory
	files     attachmentStore
	events    EventSink
	clock     Clock
	log       *zap.Logger
	name      string
}

func NewService(repo repository, customers customerDirectory, files attachmentStore, events EventSink, clock Clock, log *zap.Logger, name string) *Service {
	if events == nil {
		events = noopSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		customers: customers,
		files:     files,
		events:    events,
		clock:     clock,
		log:       log,
		name:      name,
	}
}

type ItemInput struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateInput struct {
	CustomerName         string
	CustomerEmail        string
	CustomerPhone        string
	Items                []ItemInput
	ShippingAddress      Address
	BillingAddress       *Address
	PaymentMethod        PaymentMethod
	Priority             Priority
	Currency             string
	ExpectedDeliveryDate *time.Time
	Notes                string
	Attachments          []Attachment
}

// Create validates the draft, computes item totals server-side, resolves the
// customer, allocates the order number and persists everything atomically.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	total := decimal.Zero
	items := make([]Item, 0, len(in.Items))
	for _, it := range in.Items {
		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		items = append(items, Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  line,
		})
		total = total.Add(line)
	}

	customerID, err := s.customers.FindOrCreateByEmail(ctx, in.CustomerName, in.CustomerEmail, in.CustomerPhone)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:                   uuid.NewString(),
		CustomerID:           customerID,
		CustomerName:         in.CustomerName,
		CustomerEmail:        in.CustomerEmail,
		CustomerPhone:        in.CustomerPhone,
		Items:                items,
		Status:               StatusPending,
		Priority:             in.Priority,
		PaymentMethod:        in.PaymentMethod,
		PaymentStatus:        PaymentPending,
		TotalAmount:          total,
		Currency:             in.Currency,
		ShippingAddress:      in.ShippingAddress,
		BillingAddress:       in.BillingAddress,
		OrderDate:            now,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		Notes:                in.Notes,
		Attachments:          in.Attachments,
		StatusHistory: []HistoryEntry{
			{Status: StatusPending, ChangedAt: now, Notes: createdNote},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	s.emit(TopicOrderCreated, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		CustomerEmail: o.CustomerEmail,
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		Status:        o.Status,
	})
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

type ListResult struct {
	Orders     []Order `json:"orders"`
	TotalCount int     `json:"total_count"`
}

func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, validationf("invalid status filter %q", q.Status)
	}
	if q.Priority != "" && !q.Priority.Valid() {
		return nil, validationf("invalid priority filter %q", q.Priority)
	}
	if q.PageSize > maxListPageSize {
		q.PageSize = maxListPageSize
	}
	orders, total, err := s.repo.ListOrders(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ListResult{Orders: orders, TotalCount: total}, nil
}

// Update applies the whitelisted patch. A status change rides the same write
// as its history entry; client-supplied totals never exist in the patch type.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Order, error) {
	if err := validatePatch(p); err != nil {
		return nil, err
	}
	o, prev, err := s.repo.UpdateOrder(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if p.Status != nil && *p.Status != prev {
		s.emit(TopicOrderStatusChanged, EventOrderStatusChanged, o.ID, OrderStatusChangedPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			OldStatus:   prev,
			NewStatus:   o.Status,
		})
	}
	return o, nil
}

type StatusResult struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
}

// TransitionStatus is the unconditional audited path: it checks only that the
// target status is a known value, so a stale or partially invalid order can
// still move through the lifecycle.
func (s *Service) TransitionStatus(ctx context.Context, id string, status Status, actor, notes string) (*StatusResult, error) {
	if !status.Valid() {
		return nil, validationf("invalid status %q", status)
	}
	prev, err := s.repo.SetStatus(ctx, id, status, actor, notes)
	if err != nil {
		return nil, err
	}
	s.emit(TopicOrderStatusChanged, EventOrderStatusChanged, id, OrderStatusChangedPayload{
		OrderID:   id,
		OldStatus: prev,
		NewStatus: status,
		ChangedBy: actor,
	})
	return &StatusResult{OrderID: id, Status: status}, nil
}

// Delete removes the order, then asks the blob store to discard its files.
// A failed file delete is logged and not surfaced: the order is already gone.
func (s *Service) Delete(ctx context.Context, id string) error {
	o, err := s.repo.DeleteOrder(ctx, id)
	if err != nil {
		return err
	}
	if len(o.Attachments) > 0 && s.files != nil {
		names := make([]string, 0, len(o.Attachments))
		for _, a := range o.Attachments {
			names = append(names, a.Filename)
		}
		if err := s.files.DeleteFiles(ctx, names); err != nil {
			s.log.Warn("attachment cleanup failed",
				zap.String("order_id", id), zap.Error(err))
		}
	}
	s.emit(TopicOrderDeleted, EventOrderDeleted, id, OrderDeletedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
	})
	return nil
}

func (s *Service) emit(topic, eventType, orderID string, payload any) {
	s.events.Emit(topic, Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		OccurredAt:    s.clock.Now().UTC(),
		Producer:      s.name,
		CorrelationID: orderID,
		Payload:       mustJSON(payload),
	})
}

func validateCreate(in *CreateInput) error {
	var v ValidationError
	if n := len(in.CustomerName); n < minCustomerName || n > maxCustomerName {
		v.Fields = append(v.Fields, "customer name must be 2-100 characters")
	}
	if _, err := mail.ParseAddress(in.CustomerEmail); err != nil {
		v.Fields = append(v.Fields, "customer email is invalid")
	}
	if len(in.Items) == 0 {
		v.Fields = append(v.Fields, "at least one item is required")
	}
	for _, it := range in.Items {
		if it.ProductID == "" || it.ProductName == "" {
			v.Fields = append(v.Fields, "item product id and name are required")
		}
		if it.Quantity < 1 {
			v.Fields = append(v.Fields, "item quantity must be at least 1")
		}
		if it.UnitPrice.IsNegative() {
			v.Fields = append(v.Fields, "item unit price cannot be negative")
		}
	}
	a := &in.ShippingAddress
	if a.Country == "" {
		a.Country = defaultCountry
	}
	if a.Street == "" || a.City == "" || a.State == "" || a.ZipCode == "" {
		v.Fields = append(v.Fields, "shipping address street, city, state and zip are required")
	}
	if !in.PaymentMethod.Valid() {
		v.Fields = append(v.Fields, "payment method is invalid")
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		v.Fields = append(v.Fields, "priority is invalid")
	}
	if in.Currency == "" {
		in.Currency = defaultCurrency
	}
	if len(in.Notes) > maxNotesLen {
		v.Fields = append(v.Fields, "notes cannot exceed 1000 characters")
	}
	if len(v.Fields) > 0 {
		return &v
	}
	return nil
}

func validatePatch(p Patch) error {
	var v ValidationError
	if p.Status != nil && !p.Status.Valid() {
		v.Fields = append(v.Fields, "status is invalid")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		v.Fields = append(v.Fields, "priority is invalid")
	}
	if p.PaymentStatus != nil && !p.PaymentStatus.Valid() {
		v.Fields = append(v.Fields, "payment status is invalid")
	}
	if p.PaymentMethod != nil && !p.PaymentMethod.Valid() {
		v.Fields = append(v.Fields, "payment method is invalid")
	}
	if p.Notes != nil && len(*p.Notes) > maxNotesLen {
		v.Fields = append(v.Fields, "notes cannot exceed 1000 characters")
	}
	if len(v.Fields) > 0 {
		return &v
	}
	return nil
}
