package store

import (
	"reflect"
	"time"
)

// Filter is a query predicate: field name → condition. A condition is
// either a literal (equality) or an operator map built with In, GTE, LTE,
// or Between. Operators combine with AND, as do fields.
type Filter map[string]any

// In matches documents whose field equals any of the given values.
func In(values ...any) map[string]any { return map[string]any{"$in": values} }

// GTE matches documents whose field is ≥ the given value.
func GTE(v any) map[string]any { return map[string]any{"$gte": v} }

// LTE matches documents whose field is ≤ the given value.
func LTE(v any) map[string]any { return map[string]any{"$lte": v} }

// Between matches documents whose field is within [lo, hi].
func Between(lo, hi any) map[string]any { return map[string]any{"$gte": lo, "$lte": hi} }

// Matches evaluates a filter against a document. Every backend applies
// the same predicate so query semantics do not depend on the store.
func Matches(doc Document, f Filter) bool {
	for field, cond := range f {
		val, ok := doc[field]
		if !matchCondition(val, ok, cond) {
			return false
		}
	}
	return true
}

func matchCondition(val any, present bool, cond any) bool {
	ops, isOps := operatorMap(cond)
	if !isOps {
		return present && equal(val, cond)
	}
	for op, operand := range ops {
		switch op {
		case "$in":
			if !present || !matchIn(val, operand) {
				return false
			}
		case "$gte":
			c, ok := compare(val, operand)
			if !present || !ok || c < 0 {
				return false
			}
		case "$lte":
			c, ok := compare(val, operand)
			if !present || !ok || c > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// operatorMap reports whether a condition is an operator map, i.e. a map
// whose keys all start with '$'.
func operatorMap(cond any) (map[string]any, bool) {
	m, ok := cond.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if len(k) == 0 || k[0] != '$' {
			return nil, false
		}
	}
	return m, true
}

func matchIn(val, operand any) bool {
	rv := reflect.ValueOf(operand)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return equal(val, operand)
	}
	for i := 0; i < rv.Len(); i++ {
		if equal(val, rv.Index(i).Interface()) {
			return true
		}
	}
	return false
}

// equal compares a document value with a filter value after normalizing
// numeric widths, named string types, and time encodings. DeepEqual
// covers composite values (maps, slices), which are not ==-comparable.
func equal(a, b any) bool {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Equal(tb)
		}
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// compare orders two values when they share a comparable domain
// (numbers, times, or strings). Returns (sign, ok).
func compare(a, b any) (int, bool) {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb), true
		}
	}
	na, nb := normalize(a), normalize(b)
	if fa, ok := na.(float64); ok {
		if fb, ok := nb.(float64); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
	}
	if sa, ok := na.(string); ok {
		if sb, ok := nb.(string); ok {
			switch {
			case sa < sb:
				return -1, true
			case sa > sb:
				return 1, true
			}
			return 0, true
		}
	}
	return 0, false
}

// asTime recognizes time.Time values and RFC3339 strings.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// normalize maps values onto the JSON domain: all integer and float
// widths → float64, named string types → string, bools unchanged.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}
