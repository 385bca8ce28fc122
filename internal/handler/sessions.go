package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crave-grocer/api/internal/catalog"
	"github.com/crave-grocer/api/internal/ledger"
	"github.com/crave-grocer/api/internal/service"
	"github.com/crave-grocer/api/internal/session"
)

// SessionStore defines the session methods needed by session handlers.
// Satisfied by *session.Manager; narrow interface for testability.
type SessionStore interface {
	Create() *session.Session
	Get(id uuid.UUID) (*session.Session, error)
	Delete(id uuid.UUID)
}

// CatalogServicer defines the catalog queries needed by handlers.
// Satisfied by *service.CatalogService.
type CatalogServicer interface {
	ListProducts(qc *session.QueryContext, spec catalog.FilterSpec) []catalog.Product
	RecipeIngredients(name string) ([]catalog.Product, error)
}

// OrderServicer defines the order methods needed by handlers.
// Satisfied by *service.OrderService.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, customerName string, qc *session.QueryContext, reqs []service.LineItemRequest) (*ledger.Order, error)
	AddToCart(sess *session.Session, req service.LineItemRequest) (int, error)
	Checkout(ctx context.Context, sess *session.Session) (*ledger.Order, error)
	History(ctx context.Context, customerName string) (*service.History, error)
	Greet(ctx context.Context, customerName string) (*service.Greeting, error)
}

// SessionHandler serves the per-conversation tool calls.
type SessionHandler struct {
	sessions SessionStore
	catalog  CatalogServicer
	orders   OrderServicer
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionStore, catalog CatalogServicer, orders OrderServicer) *SessionHandler {
	return &SessionHandler{sessions: sessions, catalog: catalog, orders: orders}
}

// RegisterRoutes registers session endpoints on the given Chi router.
// Expected to be mounted at /sessions.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Route("/{sid}", func(r chi.Router) {
		r.Delete("/", h.Delete)
		r.Put("/customer", h.SetCustomer)
		r.Get("/products", h.ListProducts)
		r.Post("/orders", h.CreateOrder)
		r.Post("/cart/items", h.AddCartItem)
		r.Get("/cart", h.GetCart)
		r.Post("/cart/checkout", h.Checkout)
	})
}

// --- Request / Response types ---

type setCustomerRequest struct {
	Name string `json:"name"`
}

type greetingResponse struct {
	Customer         string `json:"customer"`
	IsReturning      bool   `json:"is_returning"`
	OrderCount       int    `json:"order_count"`
	LastOrderSummary string `json:"last_order_summary,omitempty"`
}

type productResponse struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Color    string `json:"color"`
	Category string `json:"category"`
}

type productListResponse struct {
	Count    int               `json:"count"`
	Products []productResponse `json:"products"`
}

// --- Handlers ---

// Create handles POST /sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID.String()})
}

// Delete handles DELETE /sessions/{sid}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}
	h.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// SetCustomer handles PUT /sessions/{sid}/customer.
func (h *SessionHandler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req setCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	g, err := h.orders.Greet(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, "greet customer", err)
		return
	}
	sess.SetCustomer(req.Name)

	writeJSON(w, http.StatusOK, greetingResponse{
		Customer:         g.Customer,
		IsReturning:      g.IsReturning,
		OrderCount:       g.OrderCount,
		LastOrderSummary: g.LastOrderSummary,
	})
}

// ListProducts handles GET /sessions/{sid}/products.
// Query params: category, color, max_price, search.
func (h *SessionHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	spec, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	products := h.catalog.ListProducts(sess.Query, spec)
	writeJSON(w, http.StatusOK, toProductList(products))
}

// session resolves {sid}, writing the error response on failure.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return nil, false
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		writeServiceError(w, "get session", err)
		return nil, false
	}
	return sess, true
}

// toProductList numbers products from 1, matching positional references.
func toProductList(products []catalog.Product) productListResponse {
	resp := productListResponse{Count: len(products), Products: make([]productResponse, len(products))}
	for i, p := range products {
		resp.Products[i] = productResponse{
			Position: i + 1,
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Color:    p.Color,
			Category: p.Category,
		}
	}
	return resp
}

var errInvalidMaxPrice = errors.New("invalid max_price")

func parseFilter(r *http.Request) (catalog.FilterSpec, error) {
	q := r.URL.Query()
	var spec catalog.FilterSpec

	optional := func(key string) *string {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return &v
		}
		return nil
	}
	spec.Category = optional("category")
	spec.Color = optional("color")
	spec.SearchText = optional("search")

	if s := strings.TrimSpace(q.Get("max_price")); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			return catalog.FilterSpec{}, errInvalidMaxPrice
		}
		spec.MaxPrice = &v
	}
	return spec, nil
}
