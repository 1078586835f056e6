package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Syed00000/order-Management/internal/orders"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeSource struct {
	facts     []OrderFact
	recent    []orders.Order
	customers int
}

func (s *fakeSource) Facts(context.Context) ([]OrderFact, error) { return s.facts, nil }

func (s *fakeSource) FactsBetween(_ context.Context, from, to time.Time) ([]OrderFact, error) {
	var out []OrderFact
	for _, f := range s.facts {
		if !f.OrderDate.Before(from) && f.OrderDate.Before(to) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeSource) RecentOrders(context.Context, int) ([]orders.Order, error) {
	return s.recent, nil
}

func (s *fakeSource) CustomerCount(context.Context) (int, error) { return s.customers, nil }

// Wednesday 2025-01-15 noon UTC.
var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(src *fakeSource) *Engine {
	return NewEngine(src, fixedClock{t: testNow})
}

func fact(customer string, daysAgo int, amount string, status orders.Status, pay orders.PaymentStatus) OrderFact {
	return OrderFact{
		OrderID:       customer + "-" + amount,
		CustomerID:    customer,
		CustomerName:  customer,
		CustomerEmail: customer + "@example.com",
		OrderDate:     testNow.AddDate(0, 0, -daysAgo),
		TotalAmount:   decimal.RequireFromString(amount),
		Status:        status,
		Priority:      orders.PriorityMedium,
		PaymentStatus: pay,
		PaymentMethod: orders.PayCreditCard,
	}
}

func TestDashboardSummaryEmptyStore(t *testing.T) {
	engine := newTestEngine(&fakeSource{})

	sum, err := engine.DashboardSummary(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sum.Overview.TotalOrders)
	assert.Zero(t, sum.Overview.OrdersToday)
	assert.Zero(t, sum.Overview.ActiveCustomers)
	assert.True(t, sum.Overview.TotalRevenue.IsZero())
	assert.True(t, sum.Overview.AvgOrderValue.IsZero())
	assert.Empty(t, sum.Distributions.Status)
	assert.Empty(t, sum.TopCustomers)
}

func TestDashboardSummaryWindowsAndRevenue(t *testing.T) {
	src := &fakeSource{
		customers: 3,
		facts: []OrderFact{
			fact("alice", 0, "100.00", orders.StatusPending, orders.PaymentPaid),    // today
			fact("alice", 2, "50.00", orders.StatusShipped, orders.PaymentPaid),     // this week (week starts Sun 12th)
			fact("bob", 10, "30.00", orders.StatusDelivered, orders.PaymentPaid),    // this month
			fact("bob", 40, "999.00", orders.StatusDelivered, orders.PaymentFailed), // unpaid, last year counts only
			fact("carol", 45, "20.00", orders.StatusCancelled, orders.PaymentPaid),  // outside month
		},
	}
	engine := newTestEngine(src)

	sum, err := engine.DashboardSummary(context.Background())
	require.NoError(t, err)

	ov := sum.Overview
	assert.Equal(t, 5, ov.TotalOrders)
	assert.Equal(t, 3, ov.OrdersThisMonth)
	assert.Equal(t, 2, ov.OrdersThisWeek)
	assert.Equal(t, 1, ov.OrdersToday)
	assert.True(t, ov.TotalRevenue.Equal(decimal.RequireFromString("200.00")), "paid only: %s", ov.TotalRevenue)
	assert.True(t, ov.RevenueThisMonth.Equal(decimal.RequireFromString("180.00")))
	assert.True(t, ov.AvgOrderValue.Equal(decimal.RequireFromString("50.00")), "avg over 4 paid: %s", ov.AvgOrderValue)
	assert.Equal(t, 3, ov.TotalCustomers)
	assert.Equal(t, 2, ov.ActiveCustomers, "alice and bob ordered within 30 days")
}

func TestDashboardDistributionsSorted(t *testing.T) {
	src := &fakeSource{facts: []OrderFact{
		fact("a", 1, "1.00", orders.StatusPending, orders.PaymentPending),
		fact("b", 1, "1.00", orders.StatusPending, orders.PaymentPending),
		fact("c", 1, "1.00", orders.StatusShipped, orders.PaymentPending),
	}}
	engine := newTestEngine(src)

	sum, err := engine.DashboardSummary(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.Distributions.Status, 2)
	assert.Equal(t, CountBucket{Key: "PENDING", Count: 2}, sum.Distributions.Status[0])
	assert.Equal(t, CountBucket{Key: "SHIPPED", Count: 1}, sum.Distributions.Status[1])
}

func TestDashboardTopCustomersByCount(t *testing.T) {
	src := &fakeSource{facts: []OrderFact{
		fact("alice", 1, "10.00", orders.StatusPending, orders.PaymentPaid),
		fact("alice", 2, "10.00", orders.StatusPending, orders.PaymentPending),
		fact("alice", 3, "10.00", orders.StatusPending, orders.PaymentPaid),
		fact("bob", 1, "500.00", orders.StatusPending, orders.PaymentPaid),
	}}
	engine := newTestEngine(src)

	sum, err := engine.DashboardSummary(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.TopCustomers, 2)
	top := sum.TopCustomers[0]
	assert.Equal(t, "alice", top.CustomerID, "count beats spend")
	assert.Equal(t, 3, top.OrderCount)
	assert.True(t, top.TotalSpent.Equal(decimal.RequireFromString("20.00")), "spend sums paid orders only")
}

func TestSalesSeriesWeekPaidOnly(t *testing.T) {
	src := &fakeSource{facts: []OrderFact{
		fact("a", 1, "10.00", orders.StatusShipped, orders.PaymentPaid),
		fact("a", 1, "5.00", orders.StatusShipped, orders.PaymentPaid),
		fact("b", 1, "99.00", orders.StatusShipped, orders.PaymentPending), // unpaid, excluded
		fact("b", 3, "7.00", orders.StatusShipped, orders.PaymentPaid),
		fact("c", 20, "50.00", orders.StatusShipped, orders.PaymentPaid), // outside window
	}}
	engine := newTestEngine(src)

	points, err := engine.SalesSeries(context.Background(), "week", 0)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, "Jan 12", points[0].BucketLabel)
	assert.True(t, points[0].TotalSales.Equal(decimal.RequireFromString("7.00")))
	assert.Equal(t, 1, points[0].OrderCount)
	assert.Equal(t, "Jan 14", points[1].BucketLabel)
	assert.True(t, points[1].TotalSales.Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, 2, points[1].OrderCount)
}

func TestSalesSeriesYearBucketsByMonth(t *testing.T) {
	jan := fact("a", 0, "10.00", orders.StatusShipped, orders.PaymentPaid)
	alsoJan := fact("a", 5, "20.00", orders.StatusShipped, orders.PaymentPaid)
	dec := fact("b", 0, "40.00", orders.StatusShipped, orders.PaymentPaid)
	dec.OrderDate = time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)

	src := &fakeSource{facts: []OrderFact{jan, alsoJan, dec}}
	engine := newTestEngine(src)

	points, err := engine.SalesSeries(context.Background(), "year", 2025)
	require.NoError(t, err)

	require.Len(t, points, 1, "2024 order falls outside the requested year")
	assert.Equal(t, "Jan 2025", points[0].BucketLabel)
	assert.True(t, points[0].TotalSales.Equal(decimal.RequireFromString("30.00")))
	assert.Equal(t, 2, points[0].OrderCount)
}

func TestSalesSeriesUnknownPeriod(t *testing.T) {
	engine := newTestEngine(&fakeSource{})
	_, err := engine.SalesSeries(context.Background(), "fortnight", 0)
	require.Error(t, err)
}

func TestOrderTrendsCountsAllPaymentStates(t *testing.T) {
	src := &fakeSource{facts: []OrderFact{
		fact("a", 1, "10.00", orders.StatusPending, orders.PaymentPending),
		fact("b", 1, "10.00", orders.StatusDelivered, orders.PaymentPaid),
		fact("c", 1, "10.00", orders.StatusCancelled, orders.PaymentFailed),
		fact("d", 1, "10.00", orders.StatusProcessing, orders.PaymentPaid),
		fact("e", 4, "10.00", orders.StatusPending, orders.PaymentPending),
	}}
	engine := newTestEngine(src)

	points, err := engine.OrderTrends(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, "Jan 11", points[0].Date)
	assert.Equal(t, TrendPoint{Date: "Jan 14", Total: 4, Pending: 1, Completed: 1, Cancelled: 1}, points[1])
}

func TestCustomerInsights(t *testing.T) {
	src := &fakeSource{facts: []OrderFact{
		// alice: first order long ago, active now -> returning
		fact("alice", 90, "100.00", orders.StatusDelivered, orders.PaymentPaid),
		fact("alice", 5, "150.00", orders.StatusDelivered, orders.PaymentPaid),
		// bob: first order inside the window -> new
		fact("bob", 3, "30.00", orders.StatusPending, orders.PaymentPaid),
		// carol: inactive for months, excluded from acquisition
		fact("carol", 200, "70.00", orders.StatusDelivered, orders.PaymentPaid),
	}}
	engine := newTestEngine(src)

	ins, err := engine.CustomerInsights(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, ins.TopCustomers)
	assert.Equal(t, "alice", ins.TopCustomers[0].CustomerID)
	assert.True(t, ins.TopCustomers[0].TotalSpent.Equal(decimal.RequireFromString("250.00")))
	assert.Equal(t, testNow.AddDate(0, 0, -90), ins.TopCustomers[0].FirstOrder)
	assert.Equal(t, testNow.AddDate(0, 0, -5), ins.TopCustomers[0].LastOrder)

	assert.Equal(t, 1, ins.Acquisition.NewCustomers)
	assert.Equal(t, 1, ins.Acquisition.ReturningCustomers)

	require.Len(t, ins.Segments, 5)
	one := ins.Segments[0]
	assert.Equal(t, "1", one.Range)
	assert.Equal(t, 2, one.Customers, "bob and carol have a single order")
	assert.True(t, one.AvgSpent.Equal(decimal.RequireFromString("50.00")))
	two := ins.Segments[1]
	assert.Equal(t, "2-4", two.Range)
	assert.Equal(t, 1, two.Customers)
	assert.True(t, two.AvgSpent.Equal(decimal.RequireFromString("250.00")))
	assert.Zero(t, ins.Segments[4].Customers)
	assert.True(t, ins.Segments[4].AvgSpent.IsZero(), "empty segment aggregates to zero")
}
