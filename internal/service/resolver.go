package service

import (
	"errors"
	"fmt"

	"github.com/crave-grocer/api/internal/catalog"
	"github.com/crave-grocer/api/internal/ledger"
	"github.com/crave-grocer/api/internal/session"
)

// LineItemRequest is one requested product-quantity pair. A zero Quantity
// means the caller omitted it and defaults to 1.
type LineItemRequest struct {
	Ref      catalog.Ref
	Quantity int
}

// Resolver turns loose line-item references into priced line items.
type Resolver struct {
	catalog *catalog.Index
}

// NewResolver creates a Resolver over idx.
func NewResolver(idx *catalog.Index) *Resolver {
	return &Resolver{catalog: idx}
}

// Resolve resolves every request or none. Prices are taken from the catalog
// at call time. qc may be nil when the session has no listing yet.
func (r *Resolver) Resolve(qc *session.QueryContext, reqs []LineItemRequest) ([]ledger.LineItem, error) {
	if len(reqs) == 0 {
		return nil, validationError(ErrEmptyItems, "")
	}

	items := make([]ledger.LineItem, 0, len(reqs))
	for i, req := range reqs {
		qty := req.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 || qty > ledger.MaxQuantity {
			return nil, validationError(fmt.Errorf("%w: got %d", ErrInvalidQuantity, qty), "item[%d]", i)
		}

		p, err := r.lookup(qc, req.Ref)
		if err != nil {
			return nil, r.wrapLookupError(i, req.Ref, err)
		}

		lineTotal, ok := ledger.LineTotal(p.Price, qty)
		if !ok {
			return nil, validationError(fmt.Errorf("%w: %d x %d", ErrAmountTooLarge, p.Price, qty), "item[%d]", i)
		}

		items = append(items, ledger.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  qty,
			ItemTotal: lineTotal,
		})
	}
	return items, nil
}

func (r *Resolver) lookup(qc *session.QueryContext, ref catalog.Ref) (catalog.Product, error) {
	switch ref.Kind {
	case catalog.RefByID:
		if p, ok := r.catalog.ByID(ref.ID); ok {
			return p, nil
		}
		return catalog.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, ref)
	case catalog.RefByName:
		if p, ok := r.catalog.ByName(ref.Name); ok {
			return p, nil
		}
		return catalog.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, ref)
	case catalog.RefByPosition:
		if qc == nil {
			return catalog.Product{}, ErrEmptyContext
		}
		return qc.ResolvePosition(ref.Position)
	default:
		return catalog.Product{}, ErrMissingReference
	}
}

func (r *Resolver) wrapLookupError(i int, ref catalog.Ref, err error) *Error {
	switch {
	case errors.Is(err, ErrProductNotFound):
		var hint string
		if ref.Kind == catalog.RefByName {
			hint = ref.Name
		} else {
			hint = ref.ID
		}
		return notFoundError(err, r.catalog.Suggest(hint).Names(), "item[%d]", i)
	case errors.Is(err, ErrPositionOutOfRange), errors.Is(err, ErrEmptyContext):
		return outOfRangeError(err, "item[%d]", i)
	default:
		return validationError(err, "item[%d]", i)
	}
}
