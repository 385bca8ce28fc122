package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/crave-grocer/api/internal/enum"
)

// ErrInvalidCatalog is returned when a catalog document cannot be decoded.
var ErrInvalidCatalog = errors.New("invalid catalog document")

// sectionedFile is the catalog layout with separate food and grocery
// sections plus recipes.
type sectionedFile struct {
	Products  []Product `json:"products"`
	Foods     []Product `json:"foods"`
	Groceries []Product `json:"groceries"`
	Recipes   []Recipe  `json:"recipes"`
}

// Load reads a catalog file from disk.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	idx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

// Parse decodes a catalog document. The document is either a JSON array of
// products or an object with "products", "foods", "groceries" and
// "recipes" keys. Section items without a category get the section name;
// items without an id get "<section>-<n>".
func Parse(data []byte) (*Index, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidCatalog)
	}

	if trimmed[0] == '[' {
		var products []Product
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
		}
		return New(products, nil)
	}

	var f sectionedFile
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	products := make([]Product, 0, len(f.Products)+len(f.Foods)+len(f.Groceries))
	products = append(products, f.Products...)
	products = append(products, withSection(f.Foods, enum.SectionFood)...)
	products = append(products, withSection(f.Groceries, enum.SectionGrocery)...)

	return New(products, f.Recipes)
}

func withSection(items []Product, section string) []Product {
	out := make([]Product, len(items))
	for i, p := range items {
		if p.Category == "" {
			p.Category = section
		}
		if p.ID == "" {
			p.ID = section + "-" + strconv.Itoa(i+1)
		}
		out[i] = p
	}
	return out
}
