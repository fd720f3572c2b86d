// Package query turns list-endpoint query strings into a structured filter,
// a field projection, sort keys and pagination. It knows nothing about the
// storage backend: repositories compile the result into SQL or evaluate it
// in memory.
//
// Filters use bracket syntax for comparison operators:
//
//	?province=Bangkok&postalcode[gte]=10000&region[in]=north,east
//
// The parameter names select, sort, page and limit are reserved.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Op is a comparison operator.
type Op uint8

const (
	OpEq Op = iota
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
)

var opNames = map[string]Op{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
	"in":  OpIn,
}

func (o Op) String() string {
	switch o {
	case OpGt:
		return "gt"
	case OpGte:
		return "gte"
	case OpLt:
		return "lt"
	case OpLte:
		return "lte"
	case OpIn:
		return "in"
	default:
		return "eq"
	}
}

// Kind describes how a field's values are parsed and compared.
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindTime
)

// Field is a filterable, selectable and sortable attribute.
type Field struct {
	Name   string // name used in query strings and JSON
	Column string // storage column
	Kind   Kind
}

// Schema is the set of fields a resource exposes to the translator.
type Schema struct {
	fields      map[string]Field
	defaultSort []SortKey
}

// NewSchema builds a schema. defaultSort is a sort expression such as
// "-createdAt" and must only reference the given fields.
func NewSchema(defaultSort string, fields ...Field) Schema {
	s := Schema{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		s.fields[f.Name] = f
	}
	keys, err := s.parseSort(defaultSort)
	if err != nil {
		panic(fmt.Sprintf("query: invalid default sort %q: %v", defaultSort, err))
	}
	s.defaultSort = keys
	return s
}

// Lookup returns the field with the given name.
func (s Schema) Lookup(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Condition is a single tagged filter expression. Values holds exactly one
// element for every operator except OpIn.
type Condition struct {
	Field  Field
	Op     Op
	Values []string
}

// Args returns the condition values converted to the field's kind. Values
// are validated during parsing, so conversion cannot fail here.
func (c Condition) Args() []any {
	out := make([]any, 0, len(c.Values))
	for _, v := range c.Values {
		out = append(out, convert(c.Field.Kind, v))
	}
	return out
}

// Filter is a conjunction of conditions.
type Filter []Condition

// SortKey orders results by one field.
type SortKey struct {
	Field Field
	Desc  bool
}

// Query is the translated form of a list request.
type Query struct {
	Filter Filter
	Select []Field // empty means all fields
	Sort   []SortKey
	Page   int
	Limit  int
}

// Offset is the number of records skipped before the current page. Parse
// guarantees that Offset()+Limit does not overflow.
func (q Query) Offset() int { return (q.Page - 1) * q.Limit }

// Selected reports whether name is part of the projection.
func (q Query) Selected(name string) bool {
	if len(q.Select) == 0 {
		return true
	}
	for _, f := range q.Select {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Error reports a malformed query parameter.
type Error struct {
	Param  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid query parameter %q: %s", e.Param, e.Reason)
}

func parseValue(k Kind, v string) error {
	switch k {
	case KindNumber:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("%q is not a number", v)
		}
	case KindTime:
		if _, ok := parseTime(v); !ok {
			return fmt.Errorf("%q is not a RFC3339 timestamp or date", v)
		}
	}
	return nil
}

func convert(k Kind, v string) any {
	switch k {
	case KindNumber:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case KindTime:
		t, _ := parseTime(v)
		return t
	default:
		return v
	}
}

func parseTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
