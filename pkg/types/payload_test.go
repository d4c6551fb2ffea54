package types

import "testing"

func TestValidatePayload_Plain(t *testing.T) {
	p := map[string]any{
		"name":          "Acme",
		"customer_rank": float64(1),
		"active":        true,
		"ref":           nil,
	}
	if err := ValidatePayload(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidatePayload_RejectsCallable(t *testing.T) {
	p := map[string]any{
		"name": "Acme",
		"cb":   func() {},
	}
	err := ValidatePayload(p)
	if err == nil {
		t.Fatal("expected error for func value")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.Field != "cb" {
		t.Errorf("expected field cb, got %q", ve.Field)
	}
}

func TestValidatePayload_RejectsNestedCallable(t *testing.T) {
	p := map[string]any{
		"meta": map[string]any{"hook": func() {}},
	}
	if err := ValidatePayload(p); err == nil {
		t.Fatal("expected error for nested func value")
	}
}

func TestValidatePayload_RejectsChannel(t *testing.T) {
	p := map[string]any{"ch": make(chan int)}
	if err := ValidatePayload(p); err == nil {
		t.Fatal("expected error for channel value")
	}
}

func TestValidatePayload_RelationCommands(t *testing.T) {
	valid := []struct {
		name string
		cmds []any
	}{
		{"create", []any{[]any{float64(0), float64(0), map[string]any{"name": "line"}}}},
		{"update", []any{[]any{float64(1), float64(4), map[string]any{"qty": float64(2)}}}},
		{"delete", []any{[]any{float64(2), float64(4)}}},
		{"unlink", []any{[]any{float64(3), float64(4)}}},
		{"link", []any{[]any{float64(4), float64(9)}}},
		{"link with padding", []any{[]any{float64(4), float64(9), float64(0)}}},
		{"clear", []any{[]any{float64(5)}}},
		{"replace", []any{[]any{float64(6), float64(0), []any{float64(1), float64(2)}}}},
		{"mixed", []any{[]any{float64(5)}, []any{float64(4), float64(7)}}},
	}
	for _, tt := range valid {
		t.Run("valid "+tt.name, func(t *testing.T) {
			if err := ValidatePayload(map[string]any{"line_ids": tt.cmds}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	invalid := []struct {
		name string
		cmds []any
	}{
		{"unknown code", []any{[]any{float64(7), float64(1)}}},
		{"negative code", []any{[]any{float64(-1), float64(1)}}},
		{"create without values", []any{[]any{float64(0), float64(0)}}},
		{"create with scalar operand", []any{[]any{float64(0), float64(0), "x"}}},
		{"update with non-integer id", []any{[]any{float64(1), "four", map[string]any{}}}},
		{"link without id", []any{[]any{float64(4)}}},
		{"link with float id", []any{[]any{float64(4), float64(1.5)}}},
		{"replace with scalar operand", []any{[]any{float64(6), float64(0), float64(3)}}},
		{"replace with non-integer ids", []any{[]any{float64(6), float64(0), []any{"a"}}}},
		{"callable in sub-values", []any{[]any{float64(0), float64(0), map[string]any{"cb": func() {}}}}},
	}
	for _, tt := range invalid {
		t.Run("invalid "+tt.name, func(t *testing.T) {
			if err := ValidatePayload(map[string]any{"line_ids": tt.cmds}); err == nil {
				t.Errorf("expected error for %v", tt.cmds)
			}
		})
	}
}

func TestValidatePayload_PlainListIsNotCommands(t *testing.T) {
	// A list of scalars is an ordinary value, not a command list.
	p := map[string]any{"tags": []any{"red", "green"}}
	if err := ValidatePayload(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidatePayload_NilPayload(t *testing.T) {
	if err := ValidatePayload(nil); err == nil {
		t.Fatal("expected error for nil payload")
	}
}
