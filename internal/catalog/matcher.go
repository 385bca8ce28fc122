package catalog

import (
	"strconv"
	"strings"
	"unicode"
)

// MatchStatus represents the status of a match operation
type MatchStatus int

const (
	Matched MatchStatus = iota
	Ambiguous
	Unmatched
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "Matched"
	case Ambiguous:
		return "Ambiguous"
	case Unmatched:
		return "Unmatched"
	default:
		return "Unknown"
	}
}

// MatchResult contains the result of a matching operation
type MatchResult struct {
	Status     MatchStatus
	Product    *Product  // when Matched
	Candidates []Product // when Ambiguous
}

// Names returns the names of every product in the result.
func (r MatchResult) Names() []string {
	switch r.Status {
	case Matched:
		return []string{r.Product.Name}
	case Ambiguous:
		names := make([]string, len(r.Candidates))
		for i, c := range r.Candidates {
			names[i] = c.Name
		}
		return names
	}
	return nil
}

// Matcher performs keyword-based product matching. Colors present in the
// catalog are variant keywords: they weigh more and, when present in the
// input, every candidate must carry them.
type Matcher struct {
	products        []Product
	productKeywords [][]string // pre-tokenized keywords per product
	variants        map[string]bool
}

const (
	variantWeight = 5
	regularWeight = 1
)

// Words that never identify a product on their own.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true,
	"some": true, "please": true, "x": true, "pcs": true,
}

// NewMatcher creates a Matcher with pre-tokenized keywords taken from each
// product's name, category and color.
func NewMatcher(products []Product) *Matcher {
	m := &Matcher{
		products:        products,
		productKeywords: make([][]string, len(products)),
		variants:        make(map[string]bool),
	}

	for i, p := range products {
		seen := make(map[string]bool)
		var keywords []string
		for _, field := range []string{p.Name, p.Category, p.Color} {
			for _, tok := range tokenize(normalize(field)) {
				if stopWords[tok] || seen[tok] {
					continue
				}
				seen[tok] = true
				keywords = append(keywords, tok)
			}
		}
		m.productKeywords[i] = keywords

		for _, tok := range tokenize(normalize(p.Color)) {
			m.variants[tok] = true
		}
	}

	return m
}

// Match scores every product against the free text and returns the best
// scorers.
func (m *Matcher) Match(text string) MatchResult {
	tokens := tokenize(normalize(text))
	descTokens := dropQuantities(tokens)

	inputTokens := make(map[string]bool)
	for _, tok := range descTokens {
		if !stopWords[tok] {
			inputTokens[tok] = true
		}
	}

	inputVariants := make(map[string]bool)
	for tok := range inputTokens {
		if m.variants[tok] {
			inputVariants[tok] = true
		}
	}

	type scoredProduct struct {
		product Product
		score   int
	}

	var scored []scoredProduct

	for i, p := range m.products {
		keywords := m.productKeywords[i]

		// Hard filter: if input names a color, candidate MUST have it
		if len(inputVariants) > 0 && !containsAll(keywords, inputVariants) {
			continue
		}

		score := 0
		for _, kw := range keywords {
			if inputTokens[kw] {
				if m.variants[kw] {
					score += variantWeight
				} else {
					score += regularWeight
				}
			}
		}

		if score > 0 {
			scored = append(scored, scoredProduct{product: p, score: score})
		}
	}

	if len(scored) == 0 {
		return MatchResult{Status: Unmatched}
	}

	maxScore := 0
	for _, s := range scored {
		if s.score > maxScore {
			maxScore = s.score
		}
	}

	var topScorers []Product
	for _, s := range scored {
		if s.score == maxScore {
			topScorers = append(topScorers, s.product)
		}
	}

	if len(topScorers) == 1 {
		return MatchResult{
			Status:  Matched,
			Product: &topScorers[0],
		}
	}

	return MatchResult{
		Status:     Ambiguous,
		Candidates: topScorers,
	}
}

func containsAll(keywords []string, want map[string]bool) bool {
	for w := range want {
		found := false
		for _, kw := range keywords {
			if kw == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// normalize converts a string to lowercase and replaces non-alphanumeric chars with spaces
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

// dropQuantities removes tokens like "2", "3x" or "500g" from the input.
func dropQuantities(tokens []string) []string {
	rest := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if isQuantity(tok) {
			continue
		}
		rest = append(rest, tok)
	}
	return rest
}

// isQuantity reports whether tok is a number optionally followed by a unit.
func isQuantity(tok string) bool {
	digitEnd := 0
	for i, r := range tok {
		if unicode.IsDigit(r) || r == '.' {
			digitEnd = i + 1
		} else {
			break
		}
	}
	if digitEnd == 0 {
		return false
	}
	if _, err := strconv.ParseFloat(tok[:digitEnd], 64); err != nil {
		return false
	}
	for _, r := range tok[digitEnd:] {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
