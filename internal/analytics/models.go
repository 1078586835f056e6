package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Syed00000/order-Management/internal/orders"
)

// OrderFact is the compact projection the engine aggregates over. One row
// per order, no items or history.
type OrderFact struct {
	OrderID       string
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	OrderDate     time.Time
	TotalAmount   decimal.Decimal
	Status        orders.Status
	Priority      orders.Priority
	PaymentStatus orders.PaymentStatus
	PaymentMethod orders.PaymentMethod
}

type Summary struct {
	Overview      Overview       `json:"overview"`
	Distributions Distributions  `json:"distributions"`
	RecentOrders  []orders.Order `json:"recent_orders"`
	TopCustomers  []CustomerStat `json:"top_customers"`
}

type Overview struct {
	TotalOrders      int             `json:"total_orders"`
	OrdersThisMonth  int             `json:"orders_this_month"`
	OrdersThisWeek   int             `json:"orders_this_week"`
	OrdersToday      int             `json:"orders_today"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	RevenueThisMonth decimal.Decimal `json:"revenue_this_month"`
	AvgOrderValue    decimal.Decimal `json:"avg_order_value"`
	TotalCustomers   int             `json:"total_customers"`
	ActiveCustomers  int             `json:"active_customers"`
}

type Distributions struct {
	Status        []CountBucket `json:"status"`
	Priority      []CountBucket `json:"priority"`
	PaymentMethod []CountBucket `json:"payment_method"`
}

// CountBucket is one group of a count-by-field distribution, sorted by count
// descending.
type CountBucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type CustomerStat struct {
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	OrderCount    int             `json:"order_count"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	FirstOrder    time.Time       `json:"first_order"`
	LastOrder     time.Time       `json:"last_order"`
}

type SeriesPoint struct {
	BucketLabel string          `json:"bucket_label"`
	TotalSales  decimal.Decimal `json:"total_sales"`
	OrderCount  int             `json:"order_count"`
}

type TrendPoint struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Completed int    `json:"completed"`
	Cancelled int    `json:"cancelled"`
}

type Insights struct {
	TopCustomers []CustomerStat `json:"top_customers"`
	Acquisition  Acquisition    `json:"acquisition"`
	Segments     []Segment      `json:"segments"`
}

// Acquisition splits customers active in the trailing 30 days by whether
// their first-ever order falls inside that window.
type Acquisition struct {
	NewCustomers       int `json:"new_customers"`
	ReturningCustomers int `json:"returning_customers"`
}

type Segment struct {
	Range     string          `json:"range"`
	Customers int             `json:"customers"`
	AvgSpent  decimal.Decimal `json:"avg_spent"`
}
