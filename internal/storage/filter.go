package storage

import (
	"sort"
	"strings"

	"github.com/maxiofs/collectionsync/internal/record"
)

// applyFilters returns the subset of records matching every filter.
func applyFilters(records []record.Record, filters []Filter) []record.Record {
	if len(filters) == 0 {
		return records
	}
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if matchesAll(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func matchesAll(r record.Record, filters []Filter) bool {
	for _, f := range filters {
		if !matches(r, f) {
			return false
		}
	}
	return true
}

func matches(r record.Record, f Filter) bool {
	actual, ok := dottedGet(r, f.Field)
	switch f.Operator {
	case OpEqual:
		return ok && equal(actual, f.Value)
	case OpNotEqual:
		return !ok || !equal(actual, f.Value)
	case OpIn:
		values, isSlice := f.Value.([]any)
		if !isSlice || !ok {
			return false
		}
		for _, v := range values {
			if equal(actual, v) {
				return true
			}
		}
		return false
	case OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual:
		if !ok {
			return false
		}
		return compare(actual, f.Value, f.Operator)
	default:
		return false
	}
}

// dottedGet resolves a dotted field path ("meta.tag") against nested
// map[string]any values.
func dottedGet(r record.Record, field string) (any, bool) {
	parts := strings.Split(field, ".")
	var cur any = map[string]any(r)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func equal(a, b any) bool {
	if af, aok := toFloatOK(a); aok {
		if bf, bok := toFloatOK(b); bok {
			return af == bf
		}
	}
	return a == b
}

func compare(a, b any, op Operator) bool {
	af, aok := toFloatOK(a)
	bf, bok := toFloatOK(b)
	if aok && bok {
		switch op {
		case OpGreaterThan:
			return af > bf
		case OpGreaterEqual:
			return af >= bf
		case OpLessThan:
			return af < bf
		case OpLessEqual:
			return af <= bf
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		switch op {
		case OpGreaterThan:
			return as > bs
		case OpGreaterEqual:
			return as >= bs
		case OpLessThan:
			return as < bs
		case OpLessEqual:
			return as <= bs
		}
	}
	return false
}

func toFloatOK(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// applyOrder sorts records by order.Field in place and returns the slice.
func applyOrder(records []record.Record, order *Order) []record.Record {
	if order == nil || order.Field == "" {
		return records
	}
	sort.SliceStable(records, func(i, j int) bool {
		vi, _ := dottedGet(records[i], order.Field)
		vj, _ := dottedGet(records[j], order.Field)
		less := lessThan(vi, vj)
		if order.Descending {
			return lessThan(vj, vi)
		}
		return less
	})
	return records
}

func lessThan(a, b any) bool {
	if af, aok := toFloatOK(a); aok {
		if bf, bok := toFloatOK(b); bok {
			return af < bf
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as < bs
	}
	return false
}
