package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Syed00000/order-Management/internal/analytics"
	"github.com/Syed00000/order-Management/internal/redisx"
)

type analyticsEngine interface {
	DashboardSummary(ctx context.Context) (*analytics.Summary, error)
	SalesSeries(ctx context.Context, period string, year int) ([]analytics.SeriesPoint, error)
	OrderTrends(ctx context.Context, windowDays int) ([]analytics.TrendPoint, error)
	CustomerInsights(ctx context.Context) (*analytics.Insights, error)
}

type AnalyticsHandler struct {
	Engine analyticsEngine
	Cache  cache
}

func NewAnalyticsHandler(engine analyticsEngine, c cache) *AnalyticsHandler {
	return &AnalyticsHandler{Engine: engine, Cache: c}
}

func (h *AnalyticsHandler) Register(r *chi.Mux) {
	r.Get("/analytics/dashboard", h.dashboard)
	r.Get("/analytics/sales-chart", h.salesChart)
	r.Get("/analytics/order-trends", h.orderTrends)
	r.Get("/analytics/customer-insights", h.customerInsights)
}

func (h *AnalyticsHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	if h.Cache != nil {
		if s, err := h.Cache.Get(r.Context(), redisx.KeyDashboard); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(s))
			return
		}
	}

	sum, err := h.Engine.DashboardSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.Cache != nil {
		if b, err := json.Marshal(sum); err == nil {
			_ = h.Cache.Set(r.Context(), redisx.KeyDashboard, b, redisx.TTLDashboard)
		}
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *AnalyticsHandler) salesChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := q.Get("period")
	if period == "" {
		period = "month"
	}
	year := atoiDefault(q.Get("year"), 0)

	points, err := h.Engine.SalesSeries(r.Context(), period, year)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chart_data": points,
		"period":     period,
	})
}

func (h *AnalyticsHandler) orderTrends(w http.ResponseWriter, r *http.Request) {
	days := atoiDefault(r.URL.Query().Get("days"), 30)
	points, err := h.Engine.OrderTrends(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trend_data": points})
}

func (h *AnalyticsHandler) customerInsights(w http.ResponseWriter, r *http.Request) {
	ins, err := h.Engine.CustomerInsights(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ins)
}
