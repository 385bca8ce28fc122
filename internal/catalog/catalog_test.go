package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// --- Test helpers ---

func strPtr(s string) *string { return &s }
func intPtr(v int64) *int64   { return &v }

func mugCatalog(t *testing.T) *Index {
	t.Helper()
	idx, err := New([]Product{
		{ID: "p1", Name: "Red Mug", Category: "Kitchen", Color: "red", Price: 200, Description: "Ceramic mug"},
		{ID: "p2", Name: "Blue Mug", Category: "Kitchen", Color: "blue", Price: 250, Description: "Enamel camping mug"},
		{ID: "p3", Name: "Blue Plate", Category: "Kitchen", Color: "Blue", Price: 400, Description: "Dinner plate"},
		{ID: "p4", Name: "Basmati Rice", Category: "grocery", Color: "", Price: 900, Description: "Long grain rice, 1kg"},
	}, []Recipe{
		{Name: "Rice Bowl", Ingredients: []string{"p4", "blue plate", "Saffron"}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx
}

func ids(products []Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

// =====================
// Construction
// =====================

func TestNew_DuplicateID(t *testing.T) {
	_, err := New([]Product{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}, nil)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestNew_NegativePrice(t *testing.T) {
	_, err := New([]Product{{ID: "a", Name: "A", Price: -1}}, nil)
	if !errors.Is(err, ErrNegativePrice) {
		t.Fatalf("expected ErrNegativePrice, got %v", err)
	}
}

func TestNew_MissingID(t *testing.T) {
	_, err := New([]Product{{Name: "A"}}, nil)
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestNew_CopiesInput(t *testing.T) {
	products := []Product{{ID: "a", Name: "A"}}
	idx, err := New(products, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	products[0].Name = "mutated"
	if p, _ := idx.ByID("a"); p.Name != "A" {
		t.Errorf("catalog changed after caller mutation: %q", p.Name)
	}
}

// =====================
// Filter
// =====================

func TestFilter(t *testing.T) {
	idx := mugCatalog(t)

	tests := []struct {
		name string
		spec FilterSpec
		want []string
	}{
		{"no predicates", FilterSpec{}, []string{"p1", "p2", "p3", "p4"}},
		{"color exact", FilterSpec{Color: strPtr("blue")}, []string{"p2", "p3"}},
		{"color case-insensitive", FilterSpec{Color: strPtr("BLUE")}, []string{"p2", "p3"}},
		{"category", FilterSpec{Category: strPtr("grocery")}, []string{"p4"}},
		{"max price inclusive", FilterSpec{MaxPrice: intPtr(250)}, []string{"p1", "p2"}},
		{"search name", FilterSpec{SearchText: strPtr("mug")}, []string{"p1", "p2"}},
		{"search description", FilterSpec{SearchText: strPtr("CAMPING")}, []string{"p2"}},
		{"combined AND", FilterSpec{Color: strPtr("blue"), MaxPrice: intPtr(300)}, []string{"p2"}},
		{"blank predicate ignored", FilterSpec{Color: strPtr("  ")}, []string{"p1", "p2", "p3", "p4"}},
		{"color is not substring", FilterSpec{Color: strPtr("blu")}, []string{}},
		{"no match", FilterSpec{Category: strPtr("garden")}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Filter(tt.spec)
			if got == nil {
				t.Fatal("Filter returned nil, want empty slice")
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("Filter() = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestFilter_Deterministic(t *testing.T) {
	idx := mugCatalog(t)
	spec := FilterSpec{SearchText: strPtr("m")}
	first := idx.Filter(spec)
	for i := 0; i < 10; i++ {
		if !reflect.DeepEqual(first, idx.Filter(spec)) {
			t.Fatal("Filter returned a different result for the same spec")
		}
	}
}

func TestFilter_ResultDoesNotAliasCatalog(t *testing.T) {
	idx := mugCatalog(t)
	got := idx.Filter(FilterSpec{})
	got[0].Price = 1
	if p, _ := idx.ByID("p1"); p.Price != 200 {
		t.Errorf("catalog price changed to %d", p.Price)
	}
}

// =====================
// Lookups
// =====================

func TestByName_CaseInsensitiveExact(t *testing.T) {
	idx := mugCatalog(t)
	p, ok := idx.ByName("  red MUG ")
	if !ok || p.ID != "p1" {
		t.Fatalf("ByName = %v, %v", p, ok)
	}
	if _, ok := idx.ByName("Red"); ok {
		t.Error("ByName matched a partial name")
	}
}

func TestIngredients(t *testing.T) {
	idx := mugCatalog(t)
	got, err := idx.Ingredients("rice bowl")
	if err != nil {
		t.Fatalf("Ingredients: %v", err)
	}
	if !reflect.DeepEqual(ids(got), []string{"p4", "p3"}) {
		t.Errorf("Ingredients = %v", ids(got))
	}

	if _, err := idx.Ingredients("soup"); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound, got %v", err)
	}
}

// =====================
// Loader
// =====================

func TestParse_FlatArray(t *testing.T) {
	idx, err := Parse([]byte(`[{"id":"p1","name":"Red Mug","price":200,"color":"red"}]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("Len = %d, want 1", idx.Len())
	}
}

func TestParse_Sectioned(t *testing.T) {
	doc := `{
		"foods": [{"name": "Paneer Wrap", "price": 180}],
		"groceries": [{"name": "Milk", "price": 60}, {"id": "egg", "name": "Eggs", "price": 90, "category": "dairy"}],
		"recipes": [{"name": "Omelette", "ingredients": ["egg", "Milk"]}]
	}`
	idx, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wrap, ok := idx.ByID("food-1")
	if !ok || wrap.Category != "food" {
		t.Errorf("food-1 = %+v, %v", wrap, ok)
	}
	milk, ok := idx.ByID("grocery-1")
	if !ok || milk.Category != "grocery" {
		t.Errorf("grocery-1 = %+v, %v", milk, ok)
	}
	eggs, _ := idx.ByID("egg")
	if eggs.Category != "dairy" {
		t.Errorf("explicit category overwritten: %q", eggs.Category)
	}

	ing, err := idx.Ingredients("omelette")
	if err != nil || len(ing) != 2 {
		t.Errorf("Ingredients = %v, %v", ids(ing), err)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, doc := range []string{"", "{", `"text"`} {
		if _, err := Parse([]byte(doc)); !errors.Is(err, ErrInvalidCatalog) {
			t.Errorf("Parse(%q): expected ErrInvalidCatalog, got %v", doc, err)
		}
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(`[{"id":"a","name":"A","price":1}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	idx, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := idx.ByID("a"); !ok {
		t.Error("product a missing")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
