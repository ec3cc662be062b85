package dataverse

import (
	"net/url"
	"strings"
)

// Filter is a structured OData $filter expression. Building filters through
// Eq/EqGUID keeps single-quote escaping in one place instead of at every
// call site.
type Filter struct {
	expr string
}

// Eq matches a string column against a quoted, escaped literal.
func Eq(column, value string) Filter {
	return Filter{expr: column + " eq '" + escape(value) + "'"}
}

// EqGUID matches a lookup (_value) column against a GUID, unquoted.
func EqGUID(column, id string) Filter {
	return Filter{expr: column + " eq " + escape(id)}
}

// And combines two filters conjunctively.
func (f Filter) And(g Filter) Filter {
	if f.expr == "" {
		return g
	}
	if g.expr == "" {
		return f
	}
	return Filter{expr: f.expr + " and " + g.expr}
}

// Or combines two filters disjunctively.
func (f Filter) Or(g Filter) Filter {
	if f.expr == "" {
		return g
	}
	if g.expr == "" {
		return f
	}
	return Filter{expr: f.expr + " or " + g.expr}
}

// IsZero reports whether the filter has no conditions.
func (f Filter) IsZero() bool { return f.expr == "" }

// String returns the raw $filter expression.
func (f Filter) String() string { return f.expr }

// escape doubles single quotes per OData string-literal rules.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Query describes the $select/$filter portion of an entity-set read.
type Query struct {
	Select []string
	Filter Filter
	// Formatted requests display-value annotations for lookup columns.
	Formatted bool
}

// Encode renders the query string, without a leading "?".
func (q Query) Encode() string {
	v := url.Values{}
	if len(q.Select) > 0 {
		v.Set("$select", strings.Join(q.Select, ","))
	}
	if !q.Filter.IsZero() {
		v.Set("$filter", q.Filter.String())
	}
	return v.Encode()
}
