package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`

	// Customer snapshot, copied at creation time. Deliberately not re-synced
	// when the customer record changes later, so old orders read the way they
	// were placed.
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone,omitempty"`

	Items []Item `json:"items"`

	Status        Status        `json:"status"`
	Priority      Priority      `json:"priority"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`

	ShippingAddress Address  `json:"shipping_address"`
	BillingAddress  *Address `json:"billing_address,omitempty"`

	OrderDate            time.Time  `json:"order_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time `json:"actual_delivery_date,omitempty"`

	Notes          string       `json:"notes,omitempty"`
	TrackingNumber string       `json:"tracking_number,omitempty"`
	AssignedTo     string       `json:"assigned_to,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`

	StatusHistory []HistoryEntry `json:"status_history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Attachment is metadata only; the bytes live in the blob store under
// Filename and are discarded best-effort when the order is deleted.
type Attachment struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	Mimetype     string    `json:"mimetype"`
	Size         int64     `json:"size"`
	UploadDate   time.Time `json:"upload_date"`
}

// HistoryEntry is one row of the append-only status ledger. Entries are never
// edited or removed; the last entry always matches Order.Status.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	ChangedBy string    `json:"changed_by,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
	Notes     string    `json:"notes,omitempty"`
}
