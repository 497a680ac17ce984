// Package query builds parameterized Spanner SQL statements.
package query

import (
	"fmt"
	"strings"

	"cloud.google.com/go/spanner"
)

// Direction is an ORDER BY direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

type orderTerm struct {
	column string
	dir    Direction
}

type stmtKind int

const (
	kindSelect stmtKind = iota
	kindCount
	kindDelete
)

// Builder is an immutable statement builder: every method returns a copy,
// so a base builder can be shared between a page query and its count.
// Parameter names are generated in condition order (@p0, @p1, ...).
type Builder struct {
	table   string
	kind    stmtKind
	columns []string
	where   []Condition
	order   []orderTerm
	limit   int64
}

// From starts a SELECT on table.
func From(table string) *Builder {
	return &Builder{table: table}
}

// Select appends columns to the projection.
func (b *Builder) Select(columns ...string) *Builder {
	c := b.clone()
	c.columns = append(c.columns, columns...)
	return c
}

// Where adds a condition. Conditions are joined with AND.
func (b *Builder) Where(cond Condition) *Builder {
	c := b.clone()
	c.where = append(c.where, cond)
	return c
}

// OrderBy appends a sort key.
func (b *Builder) OrderBy(column string, dir Direction) *Builder {
	c := b.clone()
	c.order = append(c.order, orderTerm{column: column, dir: dir})
	return c
}

// Limit caps the number of rows; zero means no limit.
func (b *Builder) Limit(n int64) *Builder {
	c := b.clone()
	c.limit = n
	return c
}

// Count turns the builder into a COUNT(*) over the same table and conditions.
func (b *Builder) Count() *Builder {
	c := b.clone()
	c.kind = kindCount
	c.order = nil
	c.limit = 0
	return c
}

// Delete turns the builder into a DML DELETE over the same conditions.
// Spanner requires a WHERE clause, so Build emits WHERE true when none is set.
func (b *Builder) Delete() *Builder {
	c := b.clone()
	c.kind = kindDelete
	c.order = nil
	c.limit = 0
	return c
}

// Build renders the statement.
func (b *Builder) Build() spanner.Statement {
	p := newParams()
	var sql strings.Builder

	switch b.kind {
	case kindDelete:
		sql.WriteString("DELETE FROM ")
	case kindCount:
		sql.WriteString("SELECT COUNT(*) FROM ")
	default:
		sql.WriteString("SELECT ")
		if len(b.columns) == 0 {
			sql.WriteString("*")
		} else {
			sql.WriteString(strings.Join(b.columns, ", "))
		}
		sql.WriteString(" FROM ")
	}
	sql.WriteString(b.table)

	if len(b.where) > 0 {
		sql.WriteString(" WHERE ")
		sql.WriteString(And(b.where...).render(p, false))
	} else if b.kind == kindDelete {
		sql.WriteString(" WHERE true")
	}

	if len(b.order) > 0 {
		terms := make([]string, len(b.order))
		for i, t := range b.order {
			terms[i] = t.column + " ASC"
			if t.dir == Desc {
				terms[i] = t.column + " DESC"
			}
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(terms, ", "))
	}

	if b.limit > 0 {
		sql.WriteString(" LIMIT @limit")
		p.values["limit"] = b.limit
	}

	return spanner.Statement{SQL: sql.String(), Params: p.values}
}

func (b *Builder) clone() *Builder {
	c := *b
	c.columns = append([]string(nil), b.columns...)
	c.where = append([]Condition(nil), b.where...)
	c.order = append([]orderTerm(nil), b.order...)
	return &c
}

// String returns the rendered SQL and parameters for debugging.
func (b *Builder) String() string {
	stmt := b.Build()
	return fmt.Sprintf("SQL: %s\nParams: %v", stmt.SQL, stmt.Params)
}
