package services

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"omnidesk/internal/models"
)

// Supported condition operators. Anything outside this set evaluates to a
// non-match rather than an error, so a bad rule cannot abort its siblings.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpIn          = "in"
)

// EvaluateConditions reports whether every condition matches the payload.
// An empty condition list matches any payload.
func EvaluateConditions(conds []models.Condition, payload map[string]interface{}) bool {
	for _, cond := range conds {
		if !matchCondition(cond, payload) {
			return false
		}
	}
	return true
}

// matchCondition evaluates a single condition. It never panics: missing
// fields, non-object intermediate path segments and unknown operators all
// degrade to a mismatch (not_equals being the one operator a missing field
// satisfies, since the actual value then differs from any expected one).
func matchCondition(cond models.Condition, payload map[string]interface{}) bool {
	actual, present := getNestedValue(payload, cond.Field)
	if !present {
		return cond.Operator == OpNotEquals
	}

	switch cond.Operator {
	case OpEquals:
		return valuesEqual(actual, cond.Value)
	case OpNotEquals:
		return !valuesEqual(actual, cond.Value)
	case OpContains:
		return strings.Contains(stringify(actual), stringify(cond.Value))
	case OpGreaterThan:
		a, aok := toNumber(actual)
		b, bok := toNumber(cond.Value)
		return aok && bok && a > b
	case OpLessThan:
		a, aok := toNumber(actual)
		b, bok := toNumber(cond.Value)
		return aok && bok && a < b
	case OpIn:
		return sequenceContains(cond.Value, actual)
	default:
		return false
	}
}

// getNestedValue resolves a dot-separated path against a JSON-like payload.
// Traversal stops as soon as a segment is absent or the current value is not
// an object; the second return value reports presence.
func getNestedValue(payload map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = payload
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// valuesEqual is strict equality without coercion: 5 and "5" differ, as do
// int64(5) and float64(5) when a payload mixes decoded and literal values.
func valuesEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// toNumber coerces a JSON-like scalar to float64 for ordering comparisons.
// Values that do not coerce make the comparison false.
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// sequenceContains reports whether expected is a sequence containing actual.
// A non-sequence expected value is a mismatch, not an error.
func sequenceContains(expected, actual interface{}) bool {
	rv := reflect.ValueOf(expected)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if valuesEqual(rv.Index(i).Interface(), actual) {
			return true
		}
	}
	return false
}
