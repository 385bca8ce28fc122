package catalog

import (
	"fmt"
	"strings"
)

// RefKind selects how a Ref identifies a product.
type RefKind int

const (
	RefByID RefKind = iota + 1
	RefByName
	RefByPosition
)

func (k RefKind) String() string {
	switch k {
	case RefByID:
		return "id"
	case RefByName:
		return "name"
	case RefByPosition:
		return "position"
	default:
		return "unknown"
	}
}

// Ref is a loose reference to a catalog entry: an exact id, a name, or a
// 1-based position in the session's last listing. Exactly one of the value
// fields is meaningful, selected by Kind.
type Ref struct {
	Kind     RefKind
	ID       string
	Name     string
	Position int
}

// ByIDRef references a product by exact id.
func ByIDRef(id string) Ref { return Ref{Kind: RefByID, ID: id} }

// ByNameRef references a product by case-insensitive name.
func ByNameRef(name string) Ref { return Ref{Kind: RefByName, Name: name} }

// ByPositionRef references the n-th product of the last listing.
func ByPositionRef(n int) Ref { return Ref{Kind: RefByPosition, Position: n} }

// RefFrom builds a Ref from optional wire fields. When several are set the
// precedence is id, then name, then position. ok is false when none is set.
func RefFrom(id, name string, position *int) (ref Ref, ok bool) {
	if id = strings.TrimSpace(id); id != "" {
		return ByIDRef(id), true
	}
	if name = strings.TrimSpace(name); name != "" {
		return ByNameRef(name), true
	}
	if position != nil {
		return ByPositionRef(*position), true
	}
	return Ref{}, false
}

func (r Ref) String() string {
	switch r.Kind {
	case RefByID:
		return fmt.Sprintf("id %q", r.ID)
	case RefByName:
		return fmt.Sprintf("name %q", r.Name)
	case RefByPosition:
		return fmt.Sprintf("position %d", r.Position)
	default:
		return "empty reference"
	}
}
