package types

import (
	"fmt"
	"reflect"
)

// ──────────────────────────────────────────────────────────────────────────────
// Record payloads
// ──────────────────────────────────────────────────────────────────────────────

// Relation-field edit command codes, as understood by the backend for
// one2many/many2many field writes.
const (
	CmdCreate  = 0 // (0, 0, values)     create a sub-record
	CmdUpdate  = 1 // (1, id, values)    update a linked sub-record
	CmdDelete  = 2 // (2, id)            delete a sub-record
	CmdUnlink  = 3 // (3, id)            drop the link, keep the record
	CmdLink    = 4 // (4, id)            link an existing record
	CmdClear   = 5 // (5,)               drop all links
	CmdReplace = 6 // (6, 0, ids)        replace all links with ids
)

// RecordPayload maps field names to values for create/update calls. Values
// may encode relation-field edit command lists.
type RecordPayload map[string]any

// ValidatePayload checks a record payload before dispatch. It rejects any
// value that cannot cross the wire (functions, channels) at any nesting
// depth, and verifies that relation-field command lists use only the defined
// command codes with the operand shape each code expects.
func ValidatePayload(p map[string]any) error {
	if p == nil {
		return &ValidationError{Field: "values", Reason: "required"}
	}
	for field, value := range p {
		if err := validateValue(field, value); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(field string, value any) error {
	if value == nil {
		return nil
	}
	switch rv := reflect.ValueOf(value); rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return &ValidationError{Field: field, Reason: fmt.Sprintf("value of kind %s is not wire-safe", rv.Kind())}
	}

	switch v := value.(type) {
	case map[string]any:
		for k, nested := range v {
			if err := validateValue(field+"."+k, nested); err != nil {
				return err
			}
		}
	case []any:
		if isCommandList(v) {
			return validateCommands(field, v)
		}
		for _, nested := range v {
			if err := validateValue(field, nested); err != nil {
				return err
			}
		}
	}
	return nil
}

// isCommandList reports whether every element is a list starting with an
// integer, the shape of a relation-field edit command list.
func isCommandList(v []any) bool {
	if len(v) == 0 {
		return false
	}
	for _, el := range v {
		cmd, ok := el.([]any)
		if !ok || len(cmd) == 0 {
			return false
		}
		if _, ok := asInt(cmd[0]); !ok {
			return false
		}
	}
	return true
}

func validateCommands(field string, cmds []any) error {
	for i, el := range cmds {
		cmd := el.([]any)
		code, _ := asInt(cmd[0])
		ref := fmt.Sprintf("%s[%d]", field, i)
		switch code {
		case CmdCreate:
			if len(cmd) != 3 {
				return &ValidationError{Field: ref, Reason: "create command expects (0, 0, values)"}
			}
			values, ok := cmd[2].(map[string]any)
			if !ok {
				return &ValidationError{Field: ref, Reason: "create command operand must be a values map"}
			}
			if err := ValidatePayload(values); err != nil {
				return err
			}
		case CmdUpdate:
			if len(cmd) != 3 {
				return &ValidationError{Field: ref, Reason: "update command expects (1, id, values)"}
			}
			if _, ok := asInt(cmd[1]); !ok {
				return &ValidationError{Field: ref, Reason: "update command id must be an integer"}
			}
			values, ok := cmd[2].(map[string]any)
			if !ok {
				return &ValidationError{Field: ref, Reason: "update command operand must be a values map"}
			}
			if err := ValidatePayload(values); err != nil {
				return err
			}
		case CmdDelete, CmdUnlink, CmdLink:
			if len(cmd) < 2 {
				return &ValidationError{Field: ref, Reason: fmt.Sprintf("command %d expects an id operand", code)}
			}
			if _, ok := asInt(cmd[1]); !ok {
				return &ValidationError{Field: ref, Reason: fmt.Sprintf("command %d id must be an integer", code)}
			}
		case CmdClear:
			// No meaningful operand; trailing zeros are tolerated.
		case CmdReplace:
			if len(cmd) != 3 {
				return &ValidationError{Field: ref, Reason: "replace command expects (6, 0, ids)"}
			}
			ids, ok := cmd[2].([]any)
			if !ok {
				return &ValidationError{Field: ref, Reason: "replace command operand must be an id list"}
			}
			for _, id := range ids {
				if _, ok := asInt(id); !ok {
					return &ValidationError{Field: ref, Reason: "replace command ids must be integers"}
				}
			}
		default:
			return &ValidationError{Field: ref, Reason: fmt.Sprintf("unknown relation command code %d", code)}
		}
	}
	return nil
}

// asInt accepts the integer encodings that survive JSON decoding.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
