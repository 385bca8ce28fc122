package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crave-grocer/api/internal/catalog"
	"github.com/crave-grocer/api/internal/enum"
	"github.com/crave-grocer/api/internal/ledger"
	"github.com/crave-grocer/api/internal/metrics"
	"github.com/crave-grocer/api/internal/session"
	"github.com/crave-grocer/api/internal/ws"
)

const maxOrderIDRetries = 3

// IDGenerator allocates order ids.
type IDGenerator func() (string, error)

// NewOrderID returns "ORD-" followed by a UUIDv7, which sorts by creation
// time and does not collide across processes.
func NewOrderID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return "ORD-" + id.String(), nil
}

// Publisher receives committed-order events. Satisfied by *ws.Hub.
type Publisher interface {
	Publish(eventType string, payload any)
}

// OrderEvent is the payload of an order.committed event.
type OrderEvent struct {
	Customer string       `json:"customer"`
	Order    ledger.Order `json:"order"`
}

// Topic routes the event to the customer's own feed as well.
func (e OrderEvent) Topic() string {
	return ws.CustomerRoom(e.Customer)
}

// History is a customer's order history.
type History struct {
	Customer   string
	Orders     []ledger.Order
	OrderCount int
	TotalSpent int64
}

// Greeting describes a customer who just introduced themselves.
type Greeting struct {
	Customer         string
	IsReturning      bool
	OrderCount       int
	LastOrderSummary string
}

// OrderService places orders and reads order history.
type OrderService struct {
	resolver  *Resolver
	store     ledger.Store
	publisher Publisher
	newID     IDGenerator
	now       func() time.Time
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(idx *catalog.Index, store ledger.Store, publisher Publisher) *OrderService {
	return &OrderService{
		resolver:  NewResolver(idx),
		store:     store,
		publisher: publisher,
		newID:     NewOrderID,
		now:       time.Now,
	}
}

// PlaceOrder resolves reqs against the catalog and qc, then appends the
// order to the customer's ledger entry. Nothing is written unless every
// request resolves. Retries up to maxOrderIDRetries times when the ledger
// already holds the allocated id.
func (s *OrderService) PlaceOrder(ctx context.Context, customerName string, qc *session.QueryContext, reqs []LineItemRequest) (*ledger.Order, error) {
	customer := ledger.DisplayName(customerName)
	logState(customer, enum.OrderStateRequested, enum.OrderStateResolving)

	// --- Validate customer ---
	if customer == "" {
		return nil, s.reject(customer, validationError(ErrBlankCustomer, ""))
	}

	// --- Resolve items ---
	items, err := s.resolver.Resolve(qc, reqs)
	if err != nil {
		return nil, s.reject(customer, err)
	}
	logState(customer, enum.OrderStateResolving, enum.OrderStateResolved)

	var total int64
	for _, it := range items {
		var ok bool
		if total, ok = ledger.AddAmount(total, it.ItemTotal); !ok {
			return nil, s.reject(customer, validationError(ErrAmountTooLarge, ""))
		}
	}

	order := ledger.Order{
		Items:     items,
		Total:     total,
		Timestamp: s.now().UTC(),
	}

	// --- Persist ---
	for attempt := 0; attempt < maxOrderIDRetries; attempt++ {
		id, err := s.newID()
		if err != nil {
			return nil, s.reject(customer, persistenceError(fmt.Errorf("allocate order id: %w", err)))
		}
		order.OrderID = id

		_, err = s.store.Append(ctx, customer, order)
		if errors.Is(err, ledger.ErrDuplicateOrderID) {
			log.Printf("WARN: order id %s already in ledger, retrying (attempt %d)", id, attempt+1)
			continue
		}
		if err != nil {
			return nil, s.reject(customer, persistenceError(err))
		}

		logState(customer, enum.OrderStateResolved, enum.OrderStatePersisted)
		metrics.OrdersCommitted.Inc()
		metrics.OrderValue.Observe(float64(order.Total))
		if s.publisher != nil {
			s.publisher.Publish(enum.EventOrderCommitted, OrderEvent{Customer: customer, Order: order})
		}
		return &order, nil
	}

	return nil, s.reject(customer, persistenceError(fmt.Errorf("%w after %d attempts", ledger.ErrDuplicateOrderID, maxOrderIDRetries)))
}

// AddToCart validates req and appends it to the session's cart. Positional
// references are pinned to the product's id right away, since the listing
// they point into may change before checkout.
func (s *OrderService) AddToCart(sess *session.Session, req LineItemRequest) (int, error) {
	items, err := s.resolver.Resolve(sess.Query, []LineItemRequest{req})
	if err != nil {
		return 0, err
	}

	ref := req.Ref
	if ref.Kind == catalog.RefByPosition {
		ref = catalog.ByIDRef(items[0].ProductID)
	}
	return sess.AddToCart(session.CartItem{Ref: ref, Quantity: items[0].Quantity}), nil
}

// Checkout places the session's cart as one order under the session's
// customer. On success the ordered items leave the cart; items added while
// the order was being placed stay for the next checkout.
func (s *OrderService) Checkout(ctx context.Context, sess *session.Session) (*ledger.Order, error) {
	cart := sess.Cart()
	reqs := make([]LineItemRequest, len(cart))
	for i, c := range cart {
		reqs[i] = LineItemRequest{Ref: c.Ref, Quantity: c.Quantity}
	}

	order, err := s.PlaceOrder(ctx, sess.Customer(), sess.Query, reqs)
	if err != nil {
		return nil, err
	}
	sess.DropCart(len(cart))
	return order, nil
}

// History returns the customer's orders. An unknown customer has an empty
// history.
func (s *OrderService) History(ctx context.Context, customerName string) (*History, error) {
	entry, ok, err := s.store.Read(ctx, customerName)
	if err != nil {
		return nil, persistenceError(err)
	}
	if !ok {
		return &History{Customer: ledger.DisplayName(customerName), Orders: []ledger.Order{}}, nil
	}
	return &History{
		Customer:   entry.Customer,
		Orders:     entry.Orders,
		OrderCount: len(entry.Orders),
		TotalSpent: entry.TotalSpent(),
	}, nil
}

// Greet looks up a customer who has just given their name.
func (s *OrderService) Greet(ctx context.Context, customerName string) (*Greeting, error) {
	if ledger.CustomerKey(customerName) == "" {
		return nil, validationError(ErrBlankCustomer, "")
	}
	h, err := s.History(ctx, customerName)
	if err != nil {
		return nil, err
	}

	g := &Greeting{
		Customer:    h.Customer,
		IsReturning: h.OrderCount > 0,
		OrderCount:  h.OrderCount,
	}
	if h.OrderCount > 0 {
		g.LastOrderSummary = Summarize(h.Orders[h.OrderCount-1])
	}
	return g, nil
}

// Summarize renders an order as "2 items, total 12.50 on 2026-10-17".
func Summarize(o ledger.Order) string {
	noun := "items"
	if len(o.Items) == 1 {
		noun = "item"
	}
	return fmt.Sprintf("%d %s, total %s on %s", len(o.Items), noun, FormatMoney(o.Total), o.Timestamp.UTC().Format(time.DateOnly))
}

// FormatMoney renders an amount in the smallest currency unit with two
// decimal places.
func FormatMoney(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}

func (s *OrderService) reject(customer string, err error) error {
	kind := KindOf(err)
	if kind == "" {
		kind = enum.ErrorKindPersistence
	}
	metrics.OrdersRejected.WithLabelValues(kind).Inc()
	log.Printf("WARN: order for %q %s: %s: %v", customer, enum.OrderStateRejected, kind, err)
	return err
}

func logState(customer, from, to string) {
	log.Printf("INFO: order for %q: %s -> %s", customer, from, to)
}
