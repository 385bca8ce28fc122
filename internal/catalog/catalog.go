// Package catalog holds the immutable per-session view of purchasable
// products and answers filter queries against it.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned while building or querying a catalog.
var (
	ErrDuplicateID    = errors.New("duplicate product id")
	ErrMissingID      = errors.New("product id is required")
	ErrNegativePrice  = errors.New("price must be >= 0")
	ErrRecipeNotFound = errors.New("recipe not found")
)

// Product is a single purchasable catalog entry. Price is in the smallest
// currency unit.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
}

// Recipe lists the products needed to cook a dish. Ingredients are product
// ids or product names.
type Recipe struct {
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
}

// FilterSpec holds optional predicates. A nil field imposes no constraint.
type FilterSpec struct {
	Category   *string
	Color      *string
	MaxPrice   *int64
	SearchText *string
}

// Index is an immutable, insertion-ordered product catalog. It is safe for
// concurrent use without synchronization.
type Index struct {
	products []Product
	byID     map[string]int
	recipes  []Recipe
	matcher  *Matcher
}

// New validates products and builds an Index. Product order is preserved.
func New(products []Product, recipes []Recipe) (*Index, error) {
	idx := &Index{
		products: make([]Product, len(products)),
		byID:     make(map[string]int, len(products)),
		recipes:  make([]Recipe, len(recipes)),
	}
	copy(idx.products, products)

	for i, p := range idx.products {
		if p.ID == "" {
			return nil, fmt.Errorf("product[%d]: %w", i, ErrMissingID)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("product[%d] %q: %w", i, p.ID, ErrNegativePrice)
		}
		if _, exists := idx.byID[p.ID]; exists {
			return nil, fmt.Errorf("product[%d] %q: %w", i, p.ID, ErrDuplicateID)
		}
		idx.byID[p.ID] = i
	}

	for i, r := range recipes {
		idx.recipes[i] = Recipe{
			Name:        r.Name,
			Ingredients: append([]string(nil), r.Ingredients...),
		}
	}

	idx.matcher = NewMatcher(idx.products)
	return idx, nil
}

// Len returns the number of products.
func (idx *Index) Len() int {
	return len(idx.products)
}

// Products returns a copy of all products in catalog order.
func (idx *Index) Products() []Product {
	out := make([]Product, len(idx.products))
	copy(out, idx.products)
	return out
}

// Filter returns the products matching every predicate in spec, in catalog
// order. No match yields an empty, non-nil slice.
func (idx *Index) Filter(spec FilterSpec) []Product {
	category := normalizedPredicate(spec.Category)
	color := normalizedPredicate(spec.Color)
	search := normalizedPredicate(spec.SearchText)

	result := make([]Product, 0)
	for _, p := range idx.products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if color != "" && !strings.EqualFold(p.Color, color) {
			continue
		}
		if spec.MaxPrice != nil && p.Price > *spec.MaxPrice {
			continue
		}
		if search != "" && !containsFold(p.Name, search) && !containsFold(p.Description, search) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// ByID returns the product with exactly this id.
func (idx *Index) ByID(id string) (Product, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return Product{}, false
	}
	return idx.products[i], true
}

// ByName returns the first product, in catalog order, whose name equals
// name case-insensitively.
func (idx *Index) ByName(name string) (Product, bool) {
	name = strings.TrimSpace(name)
	for _, p := range idx.products {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Product{}, false
}

// Suggest returns keyword-matched candidates for free text.
func (idx *Index) Suggest(text string) MatchResult {
	return idx.matcher.Match(text)
}

// Recipe looks up a recipe by case-insensitive name.
func (idx *Index) Recipe(name string) (Recipe, bool) {
	name = strings.TrimSpace(name)
	for _, r := range idx.recipes {
		if strings.EqualFold(r.Name, name) {
			return Recipe{Name: r.Name, Ingredients: append([]string(nil), r.Ingredients...)}, true
		}
	}
	return Recipe{}, false
}

// Recipes returns the names of all known recipes.
func (idx *Index) Recipes() []string {
	names := make([]string, len(idx.recipes))
	for i, r := range idx.recipes {
		names[i] = r.Name
	}
	return names
}

// Ingredients resolves a recipe's ingredients to catalog products, by id
// first and then by name. Ingredients missing from the catalog are skipped.
func (idx *Index) Ingredients(recipe string) ([]Product, error) {
	r, ok := idx.Recipe(recipe)
	if !ok {
		return nil, fmt.Errorf("%q: %w", recipe, ErrRecipeNotFound)
	}

	products := make([]Product, 0, len(r.Ingredients))
	seen := make(map[string]bool, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		p, ok := idx.ByID(ing)
		if !ok {
			p, ok = idx.ByName(ing)
		}
		if !ok || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		products = append(products, p)
	}
	return products, nil
}

// --- Helpers ---

func normalizedPredicate(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
