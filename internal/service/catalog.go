package service

import (
	"errors"

	"github.com/crave-grocer/api/internal/catalog"
	"github.com/crave-grocer/api/internal/metrics"
	"github.com/crave-grocer/api/internal/session"
)

// CatalogService answers product and recipe queries for a session.
type CatalogService struct {
	catalog *catalog.Index
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(idx *catalog.Index) *CatalogService {
	return &CatalogService{catalog: idx}
}

// ListProducts filters the catalog and records the result in qc so that
// later orders can refer to products by position. An empty result is
// recorded too.
func (s *CatalogService) ListProducts(qc *session.QueryContext, spec catalog.FilterSpec) []catalog.Product {
	results := s.catalog.Filter(spec)
	qc.Record(results)

	metrics.CatalogFilters.Inc()
	metrics.CatalogFilterResults.Observe(float64(len(results)))
	return results
}

// RecipeIngredients returns the catalog products a recipe needs.
func (s *CatalogService) RecipeIngredients(name string) ([]catalog.Product, error) {
	products, err := s.catalog.Ingredients(name)
	if errors.Is(err, catalog.ErrRecipeNotFound) {
		return nil, notFoundError(err, s.catalog.Recipes(), "")
	}
	return products, err
}
