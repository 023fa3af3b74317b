package services

import (
	"testing"

	"omnidesk/internal/models"
)

func TestEvaluateConditions_EmptyListMatchesAnything(t *testing.T) {
	payloads := []map[string]interface{}{
		nil,
		{},
		{"priority": "urgent"},
		{"customer": map[string]interface{}{"name": "Ada"}},
	}
	for _, payload := range payloads {
		if !EvaluateConditions(nil, payload) {
			t.Errorf("empty conditions should match payload %v", payload)
		}
		if !EvaluateConditions([]models.Condition{}, payload) {
			t.Errorf("empty condition slice should match payload %v", payload)
		}
	}
}

func TestEvaluateConditions_AndSemantics(t *testing.T) {
	payload := map[string]interface{}{"priority": "urgent", "channel": "whatsapp"}

	pass := models.Condition{Field: "priority", Operator: OpEquals, Value: "urgent"}
	fail := models.Condition{Field: "channel", Operator: OpEquals, Value: "email"}

	if !EvaluateConditions([]models.Condition{pass, pass}, payload) {
		t.Error("all-passing conditions should evaluate true")
	}
	if EvaluateConditions([]models.Condition{pass, fail}, payload) {
		t.Error("one failing condition should make the whole list false")
	}
	if EvaluateConditions([]models.Condition{fail, pass}, payload) {
		t.Error("order must not affect the AND result")
	}
}

func TestMatchCondition_Operators(t *testing.T) {
	tests := []struct {
		name    string
		cond    models.Condition
		payload map[string]interface{}
		want    bool
	}{
		{
			name:    "equals match",
			cond:    models.Condition{Field: "priority", Operator: OpEquals, Value: "urgent"},
			payload: map[string]interface{}{"priority": "urgent"},
			want:    true,
		},
		{
			name:    "equals mismatch",
			cond:    models.Condition{Field: "priority", Operator: OpEquals, Value: "urgent"},
			payload: map[string]interface{}{"priority": "low"},
			want:    false,
		},
		{
			name:    "equals no cross-type coercion",
			cond:    models.Condition{Field: "count", Operator: OpEquals, Value: "5"},
			payload: map[string]interface{}{"count": float64(5)},
			want:    false,
		},
		{
			name:    "not_equals mismatch is true",
			cond:    models.Condition{Field: "priority", Operator: OpNotEquals, Value: "urgent"},
			payload: map[string]interface{}{"priority": "low"},
			want:    true,
		},
		{
			name:    "not_equals match is false",
			cond:    models.Condition{Field: "priority", Operator: OpNotEquals, Value: "low"},
			payload: map[string]interface{}{"priority": "low"},
			want:    false,
		},
		{
			name:    "contains substring",
			cond:    models.Condition{Field: "f", Operator: OpContains, Value: "abc"},
			payload: map[string]interface{}{"f": "xxabcxx"},
			want:    true,
		},
		{
			name:    "contains no substring",
			cond:    models.Condition{Field: "f", Operator: OpContains, Value: "abc"},
			payload: map[string]interface{}{"f": "xyz"},
			want:    false,
		},
		{
			name:    "contains stringifies numbers",
			cond:    models.Condition{Field: "f", Operator: OpContains, Value: 23},
			payload: map[string]interface{}{"f": float64(1234)},
			want:    true,
		},
		{
			name:    "greater_than numeric",
			cond:    models.Condition{Field: "f", Operator: OpGreaterThan, Value: 3},
			payload: map[string]interface{}{"f": float64(5)},
			want:    true,
		},
		{
			name:    "greater_than numeric strings coerce",
			cond:    models.Condition{Field: "f", Operator: OpGreaterThan, Value: "3"},
			payload: map[string]interface{}{"f": "5"},
			want:    true,
		},
		{
			name:    "greater_than non-numeric value is false",
			cond:    models.Condition{Field: "f", Operator: OpGreaterThan, Value: "abc"},
			payload: map[string]interface{}{"f": "5"},
			want:    false,
		},
		{
			name:    "less_than numeric",
			cond:    models.Condition{Field: "f", Operator: OpLessThan, Value: 10},
			payload: map[string]interface{}{"f": float64(5)},
			want:    true,
		},
		{
			name:    "less_than non-numeric actual is false",
			cond:    models.Condition{Field: "f", Operator: OpLessThan, Value: 10},
			payload: map[string]interface{}{"f": "banana"},
			want:    false,
		},
		{
			name:    "in sequence contains value",
			cond:    models.Condition{Field: "f", Operator: OpIn, Value: []interface{}{float64(1), float64(2), float64(3)}},
			payload: map[string]interface{}{"f": float64(2)},
			want:    true,
		},
		{
			name:    "in sequence without value",
			cond:    models.Condition{Field: "f", Operator: OpIn, Value: []interface{}{float64(1), float64(3)}},
			payload: map[string]interface{}{"f": float64(2)},
			want:    false,
		},
		{
			name:    "in with non-sequence value is false",
			cond:    models.Condition{Field: "f", Operator: OpIn, Value: "not-a-list"},
			payload: map[string]interface{}{"f": "not-a-list"},
			want:    false,
		},
		{
			name:    "in with string elements",
			cond:    models.Condition{Field: "channel", Operator: OpIn, Value: []interface{}{"whatsapp", "instagram"}},
			payload: map[string]interface{}{"channel": "instagram"},
			want:    true,
		},
		{
			name:    "unknown operator fails closed",
			cond:    models.Condition{Field: "f", Operator: "regex_match", Value: ".*"},
			payload: map[string]interface{}{"f": "anything"},
			want:    false,
		},
		{
			name:    "empty operator fails closed",
			cond:    models.Condition{Field: "f", Operator: "", Value: "anything"},
			payload: map[string]interface{}{"f": "anything"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchCondition(tt.cond, tt.payload); got != tt.want {
				t.Errorf("matchCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestMatchCondition_NestedPaths(t *testing.T) {
	payload := map[string]interface{}{
		"customer": map[string]interface{}{
			"name": "Ada",
			"account": map[string]interface{}{
				"tier": "gold",
			},
		},
		"subject": "refund request",
	}

	tests := []struct {
		name string
		cond models.Condition
		want bool
	}{
		{
			name: "one level deep",
			cond: models.Condition{Field: "customer.name", Operator: OpEquals, Value: "Ada"},
			want: true,
		},
		{
			name: "two levels deep",
			cond: models.Condition{Field: "customer.account.tier", Operator: OpEquals, Value: "gold"},
			want: true,
		},
		{
			name: "missing leaf",
			cond: models.Condition{Field: "customer.email", Operator: OpEquals, Value: "a@b.c"},
			want: false,
		},
		{
			name: "missing root segment",
			cond: models.Condition{Field: "a.b", Operator: OpEquals, Value: "v"},
			want: false,
		},
		{
			name: "traversal into non-object stops",
			cond: models.Condition{Field: "subject.length", Operator: OpEquals, Value: float64(14)},
			want: false,
		},
		{
			name: "missing field satisfies not_equals",
			cond: models.Condition{Field: "customer.email", Operator: OpNotEquals, Value: "a@b.c"},
			want: true,
		},
		{
			name: "missing field fails greater_than",
			cond: models.Condition{Field: "customer.age", Operator: OpGreaterThan, Value: 1},
			want: false,
		},
		{
			name: "missing field fails in",
			cond: models.Condition{Field: "customer.tier", Operator: OpIn, Value: []interface{}{"gold"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchCondition(tt.cond, payload); got != tt.want {
				t.Errorf("matchCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestGetNestedValue(t *testing.T) {
	payload := map[string]interface{}{
		"a": map[string]interface{}{
			"b": map[string]interface{}{"c": float64(1)},
		},
		"null": nil,
	}

	if v, ok := getNestedValue(payload, "a.b.c"); !ok || v != float64(1) {
		t.Errorf("a.b.c = (%v, %v), want (1, true)", v, ok)
	}
	if _, ok := getNestedValue(payload, "a.b.c.d"); ok {
		t.Error("traversing through a number should report absent")
	}
	if _, ok := getNestedValue(payload, "a.x"); ok {
		t.Error("missing segment should report absent")
	}
	if v, ok := getNestedValue(payload, "null"); !ok || v != nil {
		t.Errorf("explicit null should be present with nil value, got (%v, %v)", v, ok)
	}
	if _, ok := getNestedValue(nil, "a"); ok {
		t.Error("nil payload should report absent")
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{float64(1.5), 1.5, true},
		{5, 5, true},
		{"42", 42, true},
		{" 42 ", 42, true},
		{"abc", 0, false},
		{"", 0, false},
		{true, 1, true},
		{false, 0, true},
		{nil, 0, false},
		{[]interface{}{1}, 0, false},
	}
	for _, tt := range tests {
		got, ok := toNumber(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("toNumber(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
