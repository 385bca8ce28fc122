package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crave-grocer/api/internal/ledger"
	"github.com/crave-grocer/api/internal/service"
)

// HistoryReader defines the order-history method needed by customer handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type HistoryReader interface {
	History(ctx context.Context, customerName string) (*service.History, error)
}

// CustomerHandler handles customer order-history endpoints.
type CustomerHandler struct {
	orders HistoryReader
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(orders HistoryReader) *CustomerHandler {
	return &CustomerHandler{orders: orders}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
// Expected to be mounted at /customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{name}/orders", h.Orders)
}

// --- Response types ---

type customerOrdersResponse struct {
	Customer        string         `json:"customer"`
	OrderCount      int            `json:"order_count"`
	TotalSpent      int64          `json:"total_spent"`
	TotalSpentLabel string         `json:"total_spent_label"`
	Orders          []ledger.Order `json:"orders"`
}

// --- Handlers ---

// Orders handles GET /customers/{name}/orders.
// Names match case-insensitively; an unknown customer has no orders.
func (h *CustomerHandler) Orders(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	hist, err := h.orders.History(r.Context(), name)
	if err != nil {
		writeServiceError(w, "customer orders", err)
		return
	}
	if hist.OrderCount == 0 {
		writeJSON(w, http.StatusOK, map[string]int{"order_count": 0})
		return
	}

	writeJSON(w, http.StatusOK, customerOrdersResponse{
		Customer:        hist.Customer,
		OrderCount:      hist.OrderCount,
		TotalSpent:      hist.TotalSpent,
		TotalSpentLabel: service.FormatMoney(hist.TotalSpent),
		Orders:          hist.Orders,
	})
}
