// Package ledger persists committed orders in a customer-keyed, append-only
// ledger. Customers are matched case-insensitively; the casing seen first is
// kept for display. Orders are never reordered, edited or removed.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

// Errors returned by ledger stores.
var (
	ErrDuplicateOrderID = errors.New("order id already exists in ledger")
	ErrInvalidOrder     = errors.New("invalid order")
	ErrBlankCustomer    = errors.New("customer name is required")
	ErrCorruptLedger    = errors.New("ledger content is unreadable")
	ErrClosed           = errors.New("ledger store is closed")
)

// LineItem is a resolved, priced order line.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	ItemTotal int64  `json:"item_total"`
}

// Order is an immutable committed order.
type Order struct {
	OrderID   string     `json:"order_id"`
	Items     []LineItem `json:"items"`
	Total     int64      `json:"total"`
	Timestamp time.Time  `json:"timestamp"`
}

// CustomerEntry is one customer's order history, in insertion order.
type CustomerEntry struct {
	Customer string  `json:"customer"`
	Orders   []Order `json:"orders"`
}

// Store is a durable append-only ledger. Implementations serialize the
// read-modify-write cycle of Append so that concurrent callers never lose
// an update, and either persist the whole order or nothing.
type Store interface {
	// Append adds order to the customer's history, creating the entry if
	// no existing customer matches case-insensitively. It returns the
	// updated entry.
	Append(ctx context.Context, customerName string, order Order) (CustomerEntry, error)

	// Read returns the customer's entry; ok is false when none matches.
	Read(ctx context.Context, customerName string) (entry CustomerEntry, ok bool, err error)

	// All returns every entry in first-seen order.
	All(ctx context.Context) ([]CustomerEntry, error)

	Close() error
}

// CustomerKey is the case-insensitive identity of a customer name.
func CustomerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DisplayName is the form of a name stored when an entry is created.
func DisplayName(name string) string {
	return strings.TrimSpace(name)
}

// MaxQuantity is the largest quantity a line item may carry. It fits every
// backend's quantity column.
const MaxQuantity = math.MaxInt32

// LineTotal returns price x quantity for a non-negative price and quantity.
// ok is false when the product does not fit in an int64.
func LineTotal(price int64, quantity int) (total int64, ok bool) {
	if price < 0 || quantity < 0 {
		return 0, false
	}
	if quantity > 0 && price > math.MaxInt64/int64(quantity) {
		return 0, false
	}
	return price * int64(quantity), true
}

// AddAmount adds two non-negative amounts; ok is false on overflow.
func AddAmount(a, b int64) (sum int64, ok bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// Validate checks the arithmetic and shape invariants of an order.
func Validate(o Order) error {
	if o.OrderID == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidOrder)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrInvalidOrder)
	}

	var sum int64
	for i, it := range o.Items {
		if it.Quantity < 1 || it.Quantity > MaxQuantity {
			return fmt.Errorf("%w: item[%d]: quantity must be between 1 and %d", ErrInvalidOrder, i, MaxQuantity)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: item[%d]: price must be >= 0", ErrInvalidOrder, i)
		}
		want, ok := LineTotal(it.Price, it.Quantity)
		if !ok {
			return fmt.Errorf("%w: item[%d]: %d x %d overflows", ErrInvalidOrder, i, it.Price, it.Quantity)
		}
		if it.ItemTotal != want {
			return fmt.Errorf("%w: item[%d]: item_total %d != %d x %d", ErrInvalidOrder, i, it.ItemTotal, it.Price, it.Quantity)
		}
		if sum, ok = AddAmount(sum, it.ItemTotal); !ok {
			return fmt.Errorf("%w: sum of items overflows", ErrInvalidOrder)
		}
	}
	if o.Total != sum {
		return fmt.Errorf("%w: total %d != sum of items %d", ErrInvalidOrder, o.Total, sum)
	}
	return nil
}

// TotalSpent sums the totals of every order in the entry.
func (e CustomerEntry) TotalSpent() int64 {
	var total int64
	for _, o := range e.Orders {
		total += o.Total
	}
	return total
}

// Lister is the read side of Store that Export needs.
type Lister interface {
	All(ctx context.Context) ([]CustomerEntry, error)
}

// Export writes the whole ledger of s as an indented JSON array.
func Export(ctx context.Context, s Lister, w io.Writer) error {
	entries, err := s.All(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// --- Helpers ---

func checkAppendArgs(customerName string, order Order) error {
	if CustomerKey(customerName) == "" {
		return ErrBlankCustomer
	}
	return Validate(order)
}

func cloneOrder(o Order) Order {
	o.Items = append([]LineItem(nil), o.Items...)
	return o
}

func cloneEntry(e CustomerEntry) CustomerEntry {
	out := CustomerEntry{Customer: e.Customer, Orders: make([]Order, len(e.Orders))}
	for i, o := range e.Orders {
		out.Orders[i] = cloneOrder(o)
	}
	return out
}

// OrderLine is one row of an order joined with one of its items, as read
// from the SQL backends ordered by order sequence and line number.
type OrderLine struct {
	Seq       int64
	OrderID   string
	Total     int64
	CreatedAt time.Time
	Item      LineItem
}

// groupLines folds consecutive rows of the same order into Orders.
func groupLines(lines []OrderLine) []Order {
	orders := make([]Order, 0)
	for _, l := range lines {
		n := len(orders)
		if n == 0 || orders[n-1].OrderID != l.OrderID {
			orders = append(orders, Order{
				OrderID:   l.OrderID,
				Total:     l.Total,
				Timestamp: l.CreatedAt.UTC(),
			})
			n++
		}
		orders[n-1].Items = append(orders[n-1].Items, l.Item)
	}
	return orders
}
