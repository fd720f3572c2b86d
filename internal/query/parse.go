package query

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25
	// MaxLimit caps the page size. Larger limits are clamped to it.
	MaxLimit = 100
)

var reserved = map[string]bool{"select": true, "sort": true, "page": true, "limit": true}

// paramKey matches "field" and "field[op]".
var paramKey = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(?:\[([A-Za-z]+)\])?$`)

// Parse translates query parameters into a Query for the given schema. It
// returns *Error when a parameter names an unknown field or operator or
// carries a value that does not fit the field.
func (s Schema) Parse(values url.Values) (Query, error) {
	q := Query{
		Page:  positiveInt(values.Get("page"), DefaultPage),
		Limit: min(positiveInt(values.Get("limit"), DefaultLimit), MaxLimit),
	}
	// offset+limit must fit in an int.
	if q.Page-1 > (math.MaxInt-q.Limit)/q.Limit {
		return Query{}, &Error{Param: "page", Reason: "page is out of range"}
	}

	// Deterministic condition order keeps generated SQL stable.
	keys := make([]string, 0, len(values))
	for k := range values {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		cond, err := s.parseCondition(key, values[key])
		if err != nil {
			return Query{}, err
		}
		q.Filter = append(q.Filter, cond)
	}

	if raw := values.Get("select"); raw != "" {
		sel, err := s.parseSelect(raw)
		if err != nil {
			return Query{}, err
		}
		q.Select = sel
	}

	q.Sort = s.defaultSort
	if raw := values.Get("sort"); raw != "" {
		keys, err := s.parseSort(raw)
		if err != nil {
			return Query{}, err
		}
		q.Sort = keys
	}
	return q, nil
}

func (s Schema) parseCondition(key string, raw []string) (Condition, error) {
	m := paramKey.FindStringSubmatch(key)
	if m == nil {
		return Condition{}, &Error{Param: key, Reason: "malformed parameter name"}
	}
	field, ok := s.fields[m[1]]
	if !ok {
		return Condition{}, &Error{Param: key, Reason: "unknown field"}
	}
	op := OpEq
	if m[2] != "" {
		if op, ok = opNames[strings.ToLower(m[2])]; !ok {
			return Condition{}, &Error{Param: key, Reason: "unsupported operator " + m[2]}
		}
	}

	var vals []string
	for _, r := range raw {
		if op == OpIn {
			for _, part := range strings.Split(r, ",") {
				if part = strings.TrimSpace(part); part != "" {
					vals = append(vals, part)
				}
			}
			continue
		}
		vals = append(vals, r)
	}
	if len(vals) == 0 {
		return Condition{}, &Error{Param: key, Reason: "missing value"}
	}
	// A repeated plain parameter means "any of these values".
	if op == OpEq && len(vals) > 1 {
		op = OpIn
	}
	if op != OpEq && op != OpIn && len(vals) > 1 {
		return Condition{}, &Error{Param: key, Reason: "operator takes a single value"}
	}
	for _, v := range vals {
		if err := parseValue(field.Kind, v); err != nil {
			return Condition{}, &Error{Param: key, Reason: err.Error()}
		}
	}
	return Condition{Field: field, Op: op, Values: vals}, nil
}

func (s Schema) parseSelect(raw string) ([]Field, error) {
	var out []Field
	seen := map[string]bool{}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		f, ok := s.fields[name]
		if !ok {
			return nil, &Error{Param: "select", Reason: "unknown field " + name}
		}
		seen[name] = true
		out = append(out, f)
	}
	return out, nil
}

func (s Schema) parseSort(raw string) ([]SortKey, error) {
	var out []SortKey
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		desc := false
		switch name[0] {
		case '-':
			desc, name = true, name[1:]
		case '+':
			name = name[1:]
		}
		f, ok := s.fields[name]
		if !ok {
			return nil, &Error{Param: "sort", Reason: "unknown field " + name}
		}
		out = append(out, SortKey{Field: f, Desc: desc})
	}
	return out, nil
}

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}
