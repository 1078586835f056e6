package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Syed00000/order-Management/internal/orders"
	"github.com/Syed00000/order-Management/internal/redisx"
)

type orderService interface {
	Create(ctx context.Context, in orders.CreateInput) (*orders.Order, error)
	Get(ctx context.Context, id string) (*orders.Order, error)
	List(ctx context.Context, q orders.ListQuery) (*orders.ListResult, error)
	Update(ctx context.Context, id string, p orders.Patch) (*orders.Order, error)
	TransitionStatus(ctx context.Context, id string, status orders.Status, actor, notes string) (*orders.StatusResult, error)
	Delete(ctx context.Context, id string) error
}

// Cache errors are treated as misses; the database stays the source of truth.
type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type OrdersHandler struct {
	Svc      orderService
	Cache    cache
	validate *validator.Validate
}

func NewOrdersHandler(svc orderService, c cache) *OrdersHandler {
	return &OrdersHandler{Svc: svc, Cache: c, validate: validator.New()}
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateOrder)
	r.Put("/orders/{id}/status", h.updateStatus)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Get("/orders/status/{status}", h.ordersByStatus)
}

type itemReq struct {
	ProductID   string          `json:"product_id" validate:"required"`
	ProductName string          `json:"product_name" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type addressReq struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type createOrderReq struct {
	CustomerName         string      `json:"customer_name" validate:"required,min=2,max=100"`
	CustomerEmail        string      `json:"customer_email" validate:"required,email"`
	CustomerPhone        string      `json:"customer_phone"`
	Items                []itemReq   `json:"items" validate:"required,min=1,dive"`
	ShippingAddress      addressReq  `json:"shipping_address"`
	BillingAddress       *addressReq `json:"billing_address"`
	PaymentMethod        string      `json:"payment_method" validate:"required"`
	Priority             string      `json:"priority"`
	Currency             string      `json:"currency"`
	ExpectedDeliveryDate *time.Time  `json:"expected_delivery_date"`
	Notes                string      `json:"notes" validate:"max=1000"`
}

type updateOrderReq struct {
	Status               *string    `json:"status" validate:"omitempty,oneof=PENDING CONFIRMED PROCESSING SHIPPED DELIVERED CANCELLED"`
	Priority             *string    `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	PaymentStatus        *string    `json:"payment_status" validate:"omitempty,oneof=PENDING PAID FAILED REFUNDED"`
	PaymentMethod        *string    `json:"payment_method" validate:"omitempty,oneof=CREDIT_CARD DEBIT_CARD PAYPAL BANK_TRANSFER CASH_ON_DELIVERY"`
	TrackingNumber       *string    `json:"tracking_number"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	ActualDeliveryDate   *time.Time `json:"actual_delivery_date"`
	Notes                *string    `json:"notes" validate:"omitempty,max=1000"`
	AssignedTo           *string    `json:"assigned_to"`
}

type statusReq struct {
	Status    string `json:"status" validate:"required"`
	ChangedBy string `json:"changed_by"`
	Notes     string `json:"notes"`
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := orders.CreateInput{
		CustomerName:         req.CustomerName,
		CustomerEmail:        req.CustomerEmail,
		CustomerPhone:        req.CustomerPhone,
		ShippingAddress:      toAddress(req.ShippingAddress),
		PaymentMethod:        orders.PaymentMethod(req.PaymentMethod),
		Priority:             orders.Priority(req.Priority),
		Currency:             req.Currency,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		Notes:                req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.ItemInput{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	if req.BillingAddress != nil {
		a := toAddress(*req.BillingAddress)
		in.BillingAddress = &a
	}

	o, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key := fmt.Sprintf(redisx.KeyOrder, id)

	if h.Cache != nil {
		if s, err := h.Cache.Get(r.Context(), key); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if h.Cache != nil {
		if b, err := json.Marshal(o); err == nil {
			_ = h.Cache.Set(r.Context(), key, b, redisx.TTLOrder)
		}
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	size := atoiDefault(q.Get("limit"), 10)

	res, err := h.Svc.List(r.Context(), orders.ListQuery{
		Status:        orders.Status(q.Get("status")),
		Priority:      orders.Priority(q.Get("priority")),
		CustomerEmail: q.Get("customer_email"),
		OrderNumber:   q.Get("order_number"),
		SortBy:        q.Get("sort_by"),
		SortOrder:     q.Get("sort_order"),
		Page:          page,
		PageSize:      size,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	totalPages := (res.TotalCount + size - 1) / size
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": res.Orders,
		"pagination": map[string]any{
			"current_page": page,
			"total_pages":  totalPages,
			"total_orders": res.TotalCount,
			"has_next":     page < totalPages,
			"has_prev":     page > 1,
		},
	})
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := orders.Patch{
		TrackingNumber:       req.TrackingNumber,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		ActualDeliveryDate:   req.ActualDeliveryDate,
		Notes:                req.Notes,
		AssignedTo:           req.AssignedTo,
	}
	if req.Status != nil {
		s := orders.Status(*req.Status)
		p.Status = &s
	}
	if req.Priority != nil {
		v := orders.Priority(*req.Priority)
		p.Priority = &v
	}
	if req.PaymentStatus != nil {
		v := orders.PaymentStatus(*req.PaymentStatus)
		p.PaymentStatus = &v
	}
	if req.PaymentMethod != nil {
		v := orders.PaymentMethod(*req.PaymentMethod)
		p.PaymentMethod = &v
	}

	o, err := h.Svc.Update(r.Context(), id, p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.invalidate(r.Context(), id)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Svc.TransitionStatus(r.Context(), id, orders.Status(req.Status), req.ChangedBy, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.invalidate(r.Context(), id)
	writeJSON(w, http.StatusOK, res)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.invalidate(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

func (h *OrdersHandler) ordersByStatus(w http.ResponseWriter, r *http.Request) {
	status := orders.Status(chi.URLParam(r, "status"))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	res, err := h.Svc.List(r.Context(), orders.ListQuery{
		Status:   status,
		SortBy:   "orderDate",
		Page:     1,
		PageSize: 100,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": res.Orders})
}

func (h *OrdersHandler) invalidate(ctx context.Context, orderID string) {
	if h.Cache == nil {
		return
	}
	_ = h.Cache.Del(ctx, fmt.Sprintf(redisx.KeyOrder, orderID), redisx.KeyDashboard)
}

func toAddress(a addressReq) orders.Address {
	return orders.Address{
		Street: a.Street, City: a.City, State: a.State,
		ZipCode: a.ZipCode, Country: a.Country,
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *orders.ValidationError
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation error",
			"fields": verr.Fields,
		})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
