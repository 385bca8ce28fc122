package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/crave-grocer/api/internal/catalog"
	"github.com/crave-grocer/api/internal/ledger"
	"github.com/crave-grocer/api/internal/service"
)

// --- Request / Response types ---

// itemRequest is a loosely specified line item. When several references
// are present the precedence is product_id, product_name, position.
type itemRequest struct {
	ProductID   string `json:"product_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Position    *int   `json:"position,omitempty"`
	Quantity    *int   `json:"quantity,omitempty"`
}

type createOrderRequest struct {
	CustomerName string        `json:"customer_name"`
	Items        []itemRequest `json:"items"`
}

type orderResponse struct {
	OrderID   string            `json:"order_id"`
	Customer  string            `json:"customer"`
	Total     int64             `json:"total"`
	ItemCount int               `json:"item_count"`
	Items     []ledger.LineItem `json:"items"`
	Summary   string            `json:"summary"`
}

type cartResponse struct {
	Customer string        `json:"customer"`
	Items    []itemRequest `json:"items"`
}

// --- Handlers ---

// CreateOrder handles POST /sessions/{sid}/orders.
func (h *SessionHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if strings.TrimSpace(req.CustomerName) != "" {
		sess.SetCustomer(req.CustomerName)
	}

	reqs := make([]service.LineItemRequest, len(req.Items))
	for i, item := range req.Items {
		li, err := item.toService()
		if err != nil {
			writeValidationError(w, fmt.Sprintf("item[%d]", i), err)
			return
		}
		reqs[i] = li
	}

	order, err := h.orders.PlaceOrder(r.Context(), sess.Customer(), sess.Query, reqs)
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(sess.Customer(), order))
}

// AddCartItem handles POST /sessions/{sid}/cart/items.
func (h *SessionHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	li, err := req.toService()
	if err != nil {
		writeValidationError(w, "item", err)
		return
	}

	n, err := h.orders.AddToCart(sess, li)
	if err != nil {
		writeServiceError(w, "add to cart", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"item_count": n})
}

// GetCart handles GET /sessions/{sid}/cart.
func (h *SessionHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	cart := sess.Cart()
	resp := cartResponse{Customer: sess.Customer(), Items: make([]itemRequest, len(cart))}
	for i, c := range cart {
		resp.Items[i] = fromRef(c.Ref, c.Quantity)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Checkout handles POST /sessions/{sid}/cart/checkout.
func (h *SessionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Checkout(r.Context(), sess)
	if err != nil {
		writeServiceError(w, "checkout", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(sess.Customer(), order))
}

// --- Helpers ---

// toService converts a wire item. An omitted quantity becomes the zero value
// (default 1); an explicit quantity outside 1..MaxQuantity is rejected here,
// since the service cannot tell an explicit 0 apart from an omitted one.
func (it itemRequest) toService() (service.LineItemRequest, error) {
	// An item with no reference keeps the zero Ref and is rejected by the
	// resolver with its index.
	ref, _ := catalog.RefFrom(it.ProductID, it.ProductName, it.Position)
	req := service.LineItemRequest{Ref: ref}
	if it.Quantity != nil {
		if *it.Quantity < 1 || *it.Quantity > ledger.MaxQuantity {
			return req, fmt.Errorf("%w: got %d", service.ErrInvalidQuantity, *it.Quantity)
		}
		req.Quantity = *it.Quantity
	}
	return req, nil
}

func fromRef(ref catalog.Ref, quantity int) itemRequest {
	if quantity == 0 {
		quantity = 1
	}
	it := itemRequest{Quantity: &quantity}
	switch ref.Kind {
	case catalog.RefByID:
		it.ProductID = ref.ID
	case catalog.RefByName:
		it.ProductName = ref.Name
	case catalog.RefByPosition:
		pos := ref.Position
		it.Position = &pos
	}
	return it
}

func toOrderResponse(customer string, o *ledger.Order) orderResponse {
	return orderResponse{
		OrderID:   o.OrderID,
		Customer:  customer,
		Total:     o.Total,
		ItemCount: len(o.Items),
		Items:     o.Items,
		Summary:   fmt.Sprintf("Order %s: %s", o.OrderID, service.Summarize(*o)),
	}
}
