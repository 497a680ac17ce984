package query

import (
	"fmt"
	"strings"
)

// Condition is a WHERE clause fragment.
type Condition interface {
	render(p *params, nested bool) string
}

type params struct {
	values map[string]interface{}
}

func newParams() *params {
	return &params{values: make(map[string]interface{})}
}

func (p *params) bind(v interface{}) string {
	name := fmt.Sprintf("p%d", len(p.values))
	p.values[name] = v
	return "@" + name
}

type compare struct {
	field string
	op    string
	value interface{}
}

func (c compare) render(p *params, _ bool) string {
	return fmt.Sprintf("%s %s %s", c.field, c.op, p.bind(c.value))
}

// Eq matches field = value.
func Eq(field string, value interface{}) Condition {
	return compare{field: field, op: "=", value: value}
}

// Lt matches field < value.
func Lt(field string, value interface{}) Condition {
	return compare{field: field, op: "<", value: value}
}

type group struct {
	op    string
	conds []Condition
}

func (g group) render(p *params, nested bool) string {
	if len(g.conds) == 1 {
		return g.conds[0].render(p, nested)
	}
	parts := make([]string, len(g.conds))
	for i, c := range g.conds {
		parts[i] = c.render(p, true)
	}
	out := strings.Join(parts, " "+g.op+" ")
	if nested {
		return "(" + out + ")"
	}
	return out
}

// And joins conditions with AND.
func And(conds ...Condition) Condition {
	return group{op: "AND", conds: conds}
}

// Or joins conditions with OR.
func Or(conds ...Condition) Condition {
	return group{op: "OR", conds: conds}
}
