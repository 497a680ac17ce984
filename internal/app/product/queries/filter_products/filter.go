// Package filter_products derives filtered views over loaded products.
// Filtering is pure and never reads the ledger.
package filter_products

import (
	"fmt"
	"strings"

	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
)

// MatchField selects which product field TextQuery is matched against.
type MatchField string

const (
	MatchInternalPO MatchField = "internal_po"
	MatchName       MatchField = "name"
)

// ParseMatchField parses a match field name. Empty selects MatchInternalPO.
func ParseMatchField(raw string) (MatchField, error) {
	switch MatchField(strings.ToLower(raw)) {
	case "", MatchInternalPO:
		return MatchInternalPO, nil
	case MatchName:
		return MatchName, nil
	default:
		return "", fmt.Errorf("%w: unknown match field %q", domain.ErrInvalidInput, raw)
	}
}

// Spec describes a filter. The zero Spec matches every product.
type Spec struct {
	TextQuery     string
	MatchField    MatchField
	Company       string
	UnitType      string
	CompletedOnly bool
}

// Filter returns the products matching spec, in input order.
func Filter(products []*domain.Product, spec Spec) []*domain.Product {
	query := strings.ToLower(spec.TextQuery)
	unitType := strings.ToLower(strings.TrimSpace(spec.UnitType))

	out := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if query != "" && !strings.Contains(strings.ToLower(matchValue(p, spec.MatchField)), query) {
			continue
		}
		if spec.Company != "" && p.CompanyName() != spec.Company {
			continue
		}
		if unitType != "" && !hasUnitType(p, unitType) {
			continue
		}
		if spec.CompletedOnly && !p.IsCompleted() {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchValue(p *domain.Product, field MatchField) string {
	if field == MatchName {
		return p.Name()
	}
	return p.InternalPO()
}

// hasUnitType accepts canonical or display unit names.
func hasUnitType(p *domain.Product, unitType string) bool {
	want := domain.UnitName(unitType)
	if parsed, err := domain.ParseUnitName(unitType); err == nil {
		want = parsed
	}
	for _, name := range p.UnitNames() {
		if strings.EqualFold(string(name), string(want)) {
			return true
		}
	}
	return false
}

// Companies returns the distinct company names in first-seen order.
func Companies(products []*domain.Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		if seen[p.CompanyName()] {
			continue
		}
		seen[p.CompanyName()] = true
		out = append(out, p.CompanyName())
	}
	return out
}
