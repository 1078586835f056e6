package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Syed00000/order-Management/internal/orders"
)

const (
	recentOrderLimit = 5
	topByCount       = 5
	topBySpend       = 10
	activeWindowDays = 30
	dayLabel         = "Jan 02"
	monthLabel       = "Jan 2006"
	dayKey           = "2006-01-02"
	monthKey         = "2006-01"
)

type factSource interface {
	Facts(ctx context.Context) ([]OrderFact, error)
	FactsBetween(ctx context.Context, from, to time.Time) ([]OrderFact, error)
	RecentOrders(ctx context.Context, limit int) ([]orders.Order, error)
	CustomerCount(ctx context.Context) (int, error)
}

// Engine is the read-only aggregation layer. It never writes; all windows
// are calendar-aligned to the injected clock's zone, and an empty group
// always aggregates to zero.
type Engine struct {
	src   factSource
	clock orders.Clock
}

func NewEngine(src factSource, clock orders.Clock) *Engine {
	return &Engine{src: src, clock: clock}
}

func (e *Engine) DashboardSummary(ctx context.Context) (*Summary, error) {
	var (
		facts     []OrderFact
		recent    []orders.Order
		custCount int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		facts, err = e.src.Facts(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = e.src.RecentOrders(gctx, recentOrderLimit)
		return err
	})
	g.Go(func() (err error) {
		custCount, err = e.src.CustomerCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	monthStart := orders.StartOfMonth(now)
	weekStart := orders.StartOfWeek(now)
	dayStart := orders.StartOfDay(now)
	activeCutoff := now.AddDate(0, 0, -activeWindowDays)

	ov := Overview{
		TotalOrders:    len(facts),
		TotalCustomers: custCount,
	}
	paidCount := 0
	active := map[string]struct{}{}
	for _, f := range facts {
		if !f.OrderDate.Before(monthStart) {
			ov.OrdersThisMonth++
		}
		if !f.OrderDate.Before(weekStart) {
			ov.OrdersThisWeek++
		}
		if !f.OrderDate.Before(dayStart) {
			ov.OrdersToday++
		}
		if f.PaymentStatus == orders.PaymentPaid {
			paidCount++
			ov.TotalRevenue = ov.TotalRevenue.Add(f.TotalAmount)
			if !f.OrderDate.Before(monthStart) {
				ov.RevenueThisMonth = ov.RevenueThisMonth.Add(f.TotalAmount)
			}
		}
		if !f.OrderDate.Before(activeCutoff) {
			active[f.CustomerID] = struct{}{}
		}
	}
	if paidCount > 0 {
		ov.AvgOrderValue = ov.TotalRevenue.Div(decimal.NewFromInt(int64(paidCount))).Round(2)
	}
	ov.ActiveCustomers = len(active)

	return &Summary{
		Overview: ov,
		Distributions: Distributions{
			Status:        countBy(facts, func(f OrderFact) string { return string(f.Status) }),
			Priority:      countBy(facts, func(f OrderFact) string { return string(f.Priority) }),
			PaymentMethod: countBy(facts, func(f OrderFact) string { return string(f.PaymentMethod) }),
		},
		RecentOrders: recent,
		TopCustomers: topCustomersByCount(facts, topByCount),
	}, nil
}

// SalesSeries buckets PAID orders: by day for week/month windows, by month
// for the year window.
func (e *Engine) SalesSeries(ctx context.Context, period string, year int) ([]SeriesPoint, error) {
	now := e.clock.Now()
	loc := now.Location()
	if year == 0 {
		year = now.Year()
	}

	var (
		from, to time.Time
		key, lbl string
	)
	switch period {
	case "year":
		from = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		to = from.AddDate(1, 0, 0)
		key, lbl = monthKey, monthLabel
	case "week":
		to = now
		from = now.AddDate(0, 0, -7)
		key, lbl = dayKey, dayLabel
	case "month":
		from = time.Date(year, now.Month(), 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 1, 0)
		key, lbl = dayKey, dayLabel
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}

	facts, err := e.src.FactsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		sales decimal.Decimal
		count int
	}
	buckets := map[string]*bucket{}
	for _, f := range facts {
		if f.PaymentStatus != orders.PaymentPaid {
			continue
		}
		k := f.OrderDate.In(loc).Format(key)
		b := buckets[k]
		if b == nil {
			b = &bucket{}
			buckets[k] = b
		}
		b.sales = b.sales.Add(f.TotalAmount)
		b.count++
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]SeriesPoint, 0, len(keys))
	for _, k := range keys {
		t, err := time.ParseInLocation(key, k, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, SeriesPoint{
			BucketLabel: t.Format(lbl),
			TotalSales:  buckets[k].sales,
			OrderCount:  buckets[k].count,
		})
	}
	return out, nil
}

// OrderTrends counts all orders per day over the trailing window, regardless
// of payment status.
func (e *Engine) OrderTrends(ctx context.Context, windowDays int) ([]TrendPoint, error) {
	if windowDays <= 0 {
		windowDays = activeWindowDays
	}
	now := e.clock.Now()
	loc := now.Location()
	from := now.AddDate(0, 0, -windowDays)

	facts, err := e.src.FactsBetween(ctx, from, now)
	if err != nil {
		return nil, err
	}

	byDay := map[string]*TrendPoint{}
	for _, f := range facts {
		k := f.OrderDate.In(loc).Format(dayKey)
		p := byDay[k]
		if p == nil {
			p = &TrendPoint{}
			byDay[k] = p
		}
		p.Total++
		switch f.Status {
		case orders.StatusPending:
			p.Pending++
		case orders.StatusDelivered:
			p.Completed++
		case orders.StatusCancelled:
			p.Cancelled++
		}
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]TrendPoint, 0, len(keys))
	for _, k := range keys {
		t, err := time.ParseInLocation(dayKey, k, loc)
		if err != nil {
			return nil, err
		}
		p := *byDay[k]
		p.Date = t.Format(dayLabel)
		out = append(out, p)
	}
	return out, nil
}

func (e *Engine) CustomerInsights(ctx context.Context) (*Insights, error) {
	facts, err := e.src.Facts(ctx)
	if err != nil {
		return nil, err
	}

	type agg struct {
		stat       CustomerStat
		orderCount int // all orders, for segmentation
		firstOrder time.Time
		lastOrder  time.Time
		activeNow  bool
	}
	cutoff := e.clock.Now().AddDate(0, 0, -activeWindowDays)

	byCustomer := map[string]*agg{}
	for _, f := range facts {
		a := byCustomer[f.CustomerID]
		if a == nil {
			a = &agg{stat: CustomerStat{
				CustomerID:    f.CustomerID,
				CustomerName:  f.CustomerName,
				CustomerEmail: f.CustomerEmail,
			}}
			a.firstOrder = f.OrderDate
			a.lastOrder = f.OrderDate
			byCustomer[f.CustomerID] = a
		}
		a.orderCount++
		if f.OrderDate.Before(a.firstOrder) {
			a.firstOrder = f.OrderDate
		}
		if f.OrderDate.After(a.lastOrder) {
			a.lastOrder = f.OrderDate
		}
		if !f.OrderDate.Before(cutoff) {
			a.activeNow = true
		}
		if f.PaymentStatus == orders.PaymentPaid {
			a.stat.OrderCount++
			a.stat.TotalSpent = a.stat.TotalSpent.Add(f.TotalAmount)
			if a.stat.FirstOrder.IsZero() || f.OrderDate.Before(a.stat.FirstOrder) {
				a.stat.FirstOrder = f.OrderDate
			}
			if f.OrderDate.After(a.stat.LastOrder) {
				a.stat.LastOrder = f.OrderDate
			}
		}
	}

	var (
		top []CustomerStat
		acq Acquisition
	)
	segs := newSegments()
	for _, a := range byCustomer {
		if a.stat.OrderCount > 0 {
			top = append(top, a.stat)
		}
		if a.activeNow {
			if !a.firstOrder.Before(cutoff) {
				acq.NewCustomers++
			} else {
				acq.ReturningCustomers++
			}
		}
		segs.add(a.orderCount, a.stat.TotalSpent)
	}

	sort.Slice(top, func(i, j int) bool {
		if !top[i].TotalSpent.Equal(top[j].TotalSpent) {
			return top[i].TotalSpent.GreaterThan(top[j].TotalSpent)
		}
		return top[i].CustomerEmail < top[j].CustomerEmail
	})
	if len(top) > topBySpend {
		top = top[:topBySpend]
	}

	return &Insights{TopCustomers: top, Acquisition: acq, Segments: segs.finish()}, nil
}

func countBy(facts []OrderFact, key func(OrderFact) string) []CountBucket {
	counts := map[string]int{}
	for _, f := range facts {
		counts[key(f)]++
	}
	out := make([]CountBucket, 0, len(counts))
	for k, n := range counts {
		out = append(out, CountBucket{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func topCustomersByCount(facts []OrderFact, limit int) []CustomerStat {
	byCustomer := map[string]*CustomerStat{}
	for _, f := range facts {
		s := byCustomer[f.CustomerID]
		if s == nil {
			s = &CustomerStat{
				CustomerID:    f.CustomerID,
				CustomerName:  f.CustomerName,
				CustomerEmail: f.CustomerEmail,
				FirstOrder:    f.OrderDate,
				LastOrder:     f.OrderDate,
			}
			byCustomer[f.CustomerID] = s
		}
		s.OrderCount++
		if f.PaymentStatus == orders.PaymentPaid {
			s.TotalSpent = s.TotalSpent.Add(f.TotalAmount)
		}
		if f.OrderDate.Before(s.FirstOrder) {
			s.FirstOrder = f.OrderDate
		}
		if f.OrderDate.After(s.LastOrder) {
			s.LastOrder = f.OrderDate
		}
	}
	out := make([]CustomerStat, 0, len(byCustomer))
	for _, s := range byCustomer {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderCount != out[j].OrderCount {
			return out[i].OrderCount > out[j].OrderCount
		}
		return out[i].CustomerEmail < out[j].CustomerEmail
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Segmentation boundaries by lifetime order count: [1,2) [2,5) [5,10)
// [10,50) [50,inf).
var segmentBounds = []struct {
	label    string
	min, max int
}{
	{"1", 1, 2},
	{"2-4", 2, 5},
	{"5-9", 5, 10},
	{"10-49", 10, 50},
	{"50+", 50, 1 << 30},
}

type segments struct {
	customers []int
	spent     []decimal.Decimal
}

func newSegments() *segments {
	return &segments{
		customers: make([]int, len(segmentBounds)),
		spent:     make([]decimal.Decimal, len(segmentBounds)),
	}
}

func (s *segments) add(orderCount int, totalSpent decimal.Decimal) {
	for i, b := range segmentBounds {
		if orderCount >= b.min && orderCount < b.max {
			s.customers[i]++
			s.spent[i] = s.spent[i].Add(totalSpent)
			return
		}
	}
}

func (s *segments) finish() []Segment {
	out := make([]Segment, len(segmentBounds))
	for i, b := range segmentBounds {
		out[i] = Segment{Range: b.label, Customers: s.customers[i]}
		if s.customers[i] > 0 {
			out[i].AvgSpent = s.spent[i].Div(decimal.NewFromInt(int64(s.customers[i]))).Round(2)
		}
	}
	return out
}
