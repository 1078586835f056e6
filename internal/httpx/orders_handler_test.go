package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Syed00000/order-Management/internal/orders"
)

type fakeService struct {
	created *orders.CreateInput
	order   *orders.Order
	list    *orders.ListResult
	err     error
}

func (s *fakeService) Create(_ context.Context, in orders.CreateInput) (*orders.Order, error) {
	s.created = &in
	return s.order, s.err
}

func (s *fakeService) Get(context.Context, string) (*orders.Order, error) {
	return s.order, s.err
}

func (s *fakeService) List(context.Context, orders.ListQuery) (*orders.ListResult, error) {
	return s.list, s.err
}

func (s *fakeService) Update(context.Context, string, orders.Patch) (*orders.Order, error) {
	return s.order, s.err
}

func (s *fakeService) TransitionStatus(_ context.Context, _ string, status orders.Status, _, _ string) (*orders.StatusResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &orders.StatusResult{OrderID: "ord-1", Status: status}, nil
}

func (s *fakeService) Delete(context.Context, string) error { return s.err }

type fakeCache struct {
	store   map[string]string
	deleted []string
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string]string{}} }

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	return c.store[key], nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.store[key] = string(value)
	return nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys...)
	for _, k := range keys {
		delete(c.store, k)
	}
	return nil
}

func newTestRouter(svc *fakeService, c *fakeCache) *chi.Mux {
	r := chi.NewRouter()
	h := NewOrdersHandler(svc, c)
	h.Register(r)
	return r
}

func sampleOrder() *orders.Order {
	return &orders.Order{
		ID:            "ord-1",
		OrderNumber:   "ORD-20250115-0001",
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		Status:        orders.StatusPending,
		Priority:      orders.PriorityMedium,
		TotalAmount:   decimal.RequireFromString("20.00"),
		Currency:      "USD",
	}
}

const createBody = `{
	"customer_name": "Jane Doe",
	"customer_email": "jane@example.com",
	"items": [{"product_id": "p1", "product_name": "Widget", "quantity": 2, "unit_price": "10.00"}],
	"shipping_address": {"street": "1 Main St", "city": "Springfield", "state": "IL", "zip_code": "62704"},
	"payment_method": "CREDIT_CARD"
}`

func TestCreateOrderReturns201(t *testing.T) {
	svc := &fakeService{order: sampleOrder()}
	r := newTestRouter(svc, newFakeCache())

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "Jane Doe", svc.created.CustomerName)
	require.Len(t, svc.created.Items, 1)
	assert.Equal(t, 2, svc.created.Items[0].Quantity)

	var got orders.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ORD-20250115-0001", got.OrderNumber)
}

func TestCreateOrderRejectsBadPayload(t *testing.T) {
	cases := map[string]string{
		"malformed json": `{"customer_name":`,
		"missing email":  `{"customer_name": "Jane Doe", "items": [{"product_id": "p1", "product_name": "W", "quantity": 1}], "payment_method": "CREDIT_CARD"}`,
		"empty items":    `{"customer_name": "Jane Doe", "customer_email": "jane@example.com", "items": [], "payment_method": "CREDIT_CARD"}`,
		"short name":     `{"customer_name": "J", "customer_email": "jane@example.com", "items": [{"product_id": "p1", "product_name": "W", "quantity": 1}], "payment_method": "CREDIT_CARD"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeService{order: sampleOrder()}
			r := newTestRouter(svc, newFakeCache())

			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.created, "service must not be reached")
		})
	}
}

func TestCreateOrderMapsValidationError(t *testing.T) {
	svc := &fakeService{err: &orders.ValidationError{Fields: []string{"items[0].unitPrice"}}}
	r := newTestRouter(svc, newFakeCache())

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"items[0].unitPrice"}, body.Fields)
}

func TestGetOrderNotFound(t *testing.T) {
	svc := &fakeService{err: orders.ErrNotFound}
	r := newTestRouter(svc, newFakeCache())

	req := httptest.NewRequest(http.MethodGet, "/orders/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderServesFromCache(t *testing.T) {
	svc := &fakeService{err: orders.ErrNotFound}
	cache := newFakeCache()
	cache.store["order:ord-1"] = `{"id":"ord-1"}`
	r := newTestRouter(svc, cache)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"ord-1"}`, rec.Body.String())
}

func TestGetOrderPopulatesCache(t *testing.T) {
	svc := &fakeService{order: sampleOrder()}
	cache := newFakeCache()
	r := newTestRouter(svc, cache)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, cache.store, "order:ord-1")
}

func TestListOrdersPaginationShape(t *testing.T) {
	svc := &fakeService{list: &orders.ListResult{
		Orders:     []orders.Order{*sampleOrder()},
		TotalCount: 25,
	}}
	r := newTestRouter(svc, newFakeCache())

	req := httptest.NewRequest(http.MethodGet, "/orders?page=2&limit=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Orders     []orders.Order `json:"orders"`
		Pagination struct {
			CurrentPage int  `json:"current_page"`
			TotalPages  int  `json:"total_pages"`
			TotalOrders int  `json:"total_orders"`
			HasNext     bool `json:"has_next"`
			HasPrev     bool `json:"has_prev"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Orders, 1)
	assert.Equal(t, 2, body.Pagination.CurrentPage)
	assert.Equal(t, 3, body.Pagination.TotalPages)
	assert.Equal(t, 25, body.Pagination.TotalOrders)
	assert.True(t, body.Pagination.HasNext)
	assert.True(t, body.Pagination.HasPrev)
}

func TestUpdateStatusInvalidatesCache(t *testing.T) {
	svc := &fakeService{order: sampleOrder()}
	cache := newFakeCache()
	cache.store["order:ord-1"] = "stale"
	r := newTestRouter(svc, cache)

	req := httptest.NewRequest(http.MethodPut, "/orders/ord-1/status", strings.NewReader(`{"status": "SHIPPED"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, cache.store, "order:ord-1")
	assert.Contains(t, cache.deleted, "analytics:dashboard")

	var res orders.StatusResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, orders.StatusShipped, res.Status)
}

func TestUpdateOrderRejectsUnknownEnum(t *testing.T) {
	svc := &fakeService{order: sampleOrder()}
	r := newTestRouter(svc, newFakeCache())

	req := httptest.NewRequest(http.MethodPut, "/orders/ord-1", strings.NewReader(`{"status": "TELEPORTED"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteOrder(t *testing.T) {
	svc := &fakeService{}
	cache := newFakeCache()
	cache.store["order:ord-1"] = "stale"
	r := newTestRouter(svc, cache)

	req := httptest.NewRequest(http.MethodDelete, "/orders/ord-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, cache.store, "order:ord-1")
}

func TestOrdersByStatusRejectsUnknown(t *testing.T) {
	svc := &fakeService{list: &orders.ListResult{}}
	r := newTestRouter(svc, newFakeCache())

	req := httptest.NewRequest(http.MethodGet, "/orders/status/TELEPORTED", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
