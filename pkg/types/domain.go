// Package types defines the wire-safe value types, validators, and error
// taxonomy shared across the bridge.
package types

import "fmt"

// ──────────────────────────────────────────────────────────────────────────────
// Search domains
// ──────────────────────────────────────────────────────────────────────────────

// Operator is a comparison operator allowed in a search condition.
type Operator string

const (
	OpEq       Operator = "="
	OpNeq      Operator = "!="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpEqMaybe  Operator = "=?"
	OpLike     Operator = "like"
	OpEqLike   Operator = "=like"
	OpNotLike  Operator = "not like"
	OpILike    Operator = "ilike"
	OpEqILike  Operator = "=ilike"
	OpNotILike Operator = "not ilike"
	OpIn       Operator = "in"
	OpNotIn    Operator = "not in"
	OpChildOf  Operator = "child_of"
	OpParentOf Operator = "parent_of"
)

var allowedOperators = map[Operator]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpEqMaybe: true, OpLike: true, OpEqLike: true, OpNotLike: true,
	OpILike: true, OpEqILike: true, OpNotILike: true,
	OpIn: true, OpNotIn: true, OpChildOf: true, OpParentOf: true,
}

// Logical is a prefix boolean operator combining subsequent domain terms.
type Logical string

const (
	LogicalAnd Logical = "&"
	LogicalOr  Logical = "|"
	LogicalNot Logical = "!"
)

// Condition is a single (field, operator, value) search predicate.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// DomainElement is one element of a search domain: either a logical prefix
// operator or a condition, never both.
type DomainElement struct {
	Logical Logical
	Cond    *Condition
}

// Domain is an ordered prefix-notation search predicate.
type Domain []DomainElement

// Where builds a condition element.
func Where(field string, op Operator, value any) DomainElement {
	return DomainElement{Cond: &Condition{Field: field, Op: op, Value: value}}
}

// Op builds a logical prefix element.
func Op(l Logical) DomainElement {
	return DomainElement{Logical: l}
}

// Wire renders the domain in the backend's positional array form:
// logical operators as bare strings, conditions as 3-element arrays.
func (d Domain) Wire() []any {
	out := make([]any, 0, len(d))
	for _, el := range d {
		if el.Cond != nil {
			out = append(out, []any{el.Cond.Field, string(el.Cond.Op), el.Cond.Value})
		} else {
			out = append(out, string(el.Logical))
		}
	}
	return out
}

// ParseDomain converts a loosely-typed caller domain into a typed Domain,
// rejecting malformed input before it can reach the wire. Accepted elements
// are the logical operator strings and 3-element (field, operator, value)
// arrays with a non-empty string field and a known operator. Logical
// operators must have their full operand count; consecutive conditions are
// joined by an implicit AND, matching backend semantics.
func ParseDomain(raw []any) (Domain, error) {
	if len(raw) == 0 {
		return Domain{}, nil
	}

	d := make(Domain, 0, len(raw))
	// expected tracks how many terms the pending prefix operators still
	// require; it resets to 1 at each implicit top-level AND.
	expected := 1
	for i, el := range raw {
		switch v := el.(type) {
		case string:
			l := Logical(v)
			if l != LogicalAnd && l != LogicalOr && l != LogicalNot {
				return nil, &ValidationError{Field: fmt.Sprintf("domain[%d]", i), Reason: fmt.Sprintf("unknown logical operator %q", v)}
			}
			if expected == 0 {
				expected = 1
			}
			if l != LogicalNot {
				expected++
			}
			d = append(d, DomainElement{Logical: l})
		case []any:
			cond, err := parseCondition(i, v)
			if err != nil {
				return nil, err
			}
			if expected == 0 {
				expected = 1
			}
			expected--
			d = append(d, DomainElement{Cond: cond})
		default:
			return nil, &ValidationError{Field: fmt.Sprintf("domain[%d]", i), Reason: "element must be a logical operator string or a 3-element condition"}
		}
	}
	if expected != 0 {
		return nil, &ValidationError{Field: "domain", Reason: "logical operator is missing operands"}
	}
	return d, nil
}

func parseCondition(i int, v []any) (*Condition, error) {
	if len(v) != 3 {
		return nil, &ValidationError{Field: fmt.Sprintf("domain[%d]", i), Reason: fmt.Sprintf("condition must have 3 elements, got %d", len(v))}
	}
	field, ok := v[0].(string)
	if !ok || field == "" {
		return nil, &ValidationError{Field: fmt.Sprintf("domain[%d]", i), Reason: "condition field must be a non-empty string"}
	}
	opStr, ok := v[1].(string)
	if !ok || !allowedOperators[Operator(opStr)] {
		return nil, &ValidationError{Field: fmt.Sprintf("domain[%d]", i), Reason: fmt.Sprintf("unknown condition operator %v", v[1])}
	}
	return &Condition{Field: field, Op: Operator(opStr), Value: v[2]}, nil
}

// ValidateDomain reports whether a loosely-typed domain is well formed.
// It is total: any input produces a boolean, never a panic.
func ValidateDomain(raw []any) bool {
	_, err := ParseDomain(raw)
	return err == nil
}
