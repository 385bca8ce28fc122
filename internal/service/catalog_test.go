package service

import (
	"errors"
	"testing"

	"github.com/crave-grocer/api/internal/catalog"
	"github.com/crave-grocer/api/internal/enum"
	"github.com/crave-grocer/api/internal/session"
)

func TestListProducts_RecordsListing(t *testing.T) {
	svc := NewCatalogService(mugCatalog(t))
	qc := session.NewQueryContext()

	color := "BLUE"
	got := svc.ListProducts(qc, catalog.FilterSpec{Color: &color})
	if len(got) != 1 || got[0].ID != "p2" {
		t.Fatalf("ListProducts = %v, want [p2]", got)
	}

	p, err := qc.ResolvePosition(1)
	if err != nil {
		t.Fatalf("ResolvePosition: %v", err)
	}
	if p.ID != "p2" {
		t.Errorf("position 1 = %s, want p2", p.ID)
	}
}

func TestListProducts_EmptyResultReplacesListing(t *testing.T) {
	svc := NewCatalogService(mugCatalog(t))
	qc := session.NewQueryContext()

	svc.ListProducts(qc, catalog.FilterSpec{})
	var limit int64 = 1
	got := svc.ListProducts(qc, catalog.FilterSpec{MaxPrice: &limit})
	if got == nil || len(got) != 0 {
		t.Fatalf("ListProducts = %v, want empty non-nil", got)
	}
	if !qc.Recorded() || qc.Len() != 0 {
		t.Errorf("empty result not recorded: recorded=%v len=%d", qc.Recorded(), qc.Len())
	}
	if _, err := qc.ResolvePosition(1); !errors.Is(err, session.ErrPositionOutOfRange) {
		t.Errorf("ResolvePosition after empty listing: got %v, want ErrPositionOutOfRange", err)
	}
}

func TestRecipeIngredients_NotFound(t *testing.T) {
	idx, err := catalog.New(
		[]catalog.Product{{ID: "g1", Name: "Basmati Rice", Price: 899}},
		[]catalog.Recipe{{Name: "Biryani", Ingredients: []string{"g1"}}},
	)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	svc := NewCatalogService(idx)

	products, err := svc.RecipeIngredients("biryani")
	if err != nil || len(products) != 1 {
		t.Fatalf("RecipeIngredients(biryani) = %v, %v", products, err)
	}

	_, err = svc.RecipeIngredients("pad thai")
	if KindOf(err) != enum.ErrorKindNotFound {
		t.Fatalf("kind = %q, want %q", KindOf(err), enum.ErrorKindNotFound)
	}
	if !errors.Is(err, catalog.ErrRecipeNotFound) {
		t.Errorf("error should wrap ErrRecipeNotFound: %v", err)
	}
	var se *Error
	if errors.As(err, &se) && (len(se.Suggestions) != 1 || se.Suggestions[0] != "Biryani") {
		t.Errorf("suggestions = %v, want [Biryani]", se.Suggestions)
	}
}
