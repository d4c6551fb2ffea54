package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// ──────────────────────────────────────────────────────────────────────────────
// Validation error (returned during local input checking)
// ──────────────────────────────────────────────────────────────────────────────

type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// ──────────────────────────────────────────────────────────────────────────────
// Error taxonomy
// ──────────────────────────────────────────────────────────────────────────────

// Kind is one of the closed set of normalized error categories. Every failure
// surfaced by the bridge carries exactly one Kind.
type Kind string

const (
	KindConnection     Kind = "connection_error"
	KindAuthentication Kind = "authentication_error"
	KindPermission     Kind = "permission_error"
	KindValidation     Kind = "validation_error"
	KindNotFound       Kind = "not_found"
	KindRateLimited    Kind = "rate_limited"
	KindTimeout        Kind = "timeout"
	KindUnknown        Kind = "unknown"
)

// Retryable reports whether calls failing with this kind are retried by the
// default policy. Validation, permission, auth and not-found failures are
// deterministic and never retried.
func (k Kind) Retryable() bool {
	return k == KindConnection || k == KindTimeout
}

// Envelope is the only error shape ever returned to a caller. Kind is drawn
// from the closed taxonomy; Details carries structured diagnostics such as the
// attempted model/method, retry attempt counts, or the raw backend class name.
type Envelope struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Envelope) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// With sets a details entry and returns the envelope for chaining.
func (e *Envelope) With(key string, value any) *Envelope {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus maps the kind to the status code used by the HTTP surface.
func (e *Envelope) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindConnection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes the envelope as JSON to the response writer.
func (e *Envelope) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(e)
}

// ──────────────────────────────────────────────────────────────────────────────
// Common error constructors
// ──────────────────────────────────────────────────────────────────────────────

func ErrConnection(msg string) *Envelope {
	return &Envelope{Kind: KindConnection, Message: msg}
}

func ErrAuthentication(msg string) *Envelope {
	return &Envelope{Kind: KindAuthentication, Message: msg}
}

func ErrPermission(msg string) *Envelope {
	return &Envelope{Kind: KindPermission, Message: msg}
}

func ErrInvalid(msg string) *Envelope {
	return &Envelope{Kind: KindValidation, Message: msg}
}

func ErrNotFound(msg string) *Envelope {
	return &Envelope{Kind: KindNotFound, Message: msg}
}

func ErrRateLimited() *Envelope {
	return &Envelope{Kind: KindRateLimited, Message: "too many requests"}
}

func ErrTimeout(msg string) *Envelope {
	return &Envelope{Kind: KindTimeout, Message: msg}
}

func ErrUnknown(msg string) *Envelope {
	return &Envelope{Kind: KindUnknown, Message: msg}
}

// AsEnvelope coerces an arbitrary error into an envelope. Non-envelope errors
// become KindUnknown so callers always observe exactly one shape.
func AsEnvelope(err error) *Envelope {
	var env *Envelope
	if errors.As(err, &env) {
		return env
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ErrInvalid(ve.Error()).With("field", ve.Field)
	}
	return ErrUnknown(err.Error())
}

// ──────────────────────────────────────────────────────────────────────────────
// Backend fault classification
// ──────────────────────────────────────────────────────────────────────────────

// Fault is a backend-reported error in its native wire shape, prior to
// classification.
type Fault struct {
	Message string    `json:"message"`
	Data    FaultData `json:"data"`
}

// FaultData is the structured part of a fault: the backend exception class
// name and its debug traceback text.
type FaultData struct {
	Name  string `json:"name"`
	Debug string `json:"debug"`
}

// modelRE matches a parenthesized dotted model name, e.g. "(sale.order)",
// as it appears in backend access-control debug text.
var modelRE = regexp.MustCompile(`\(([a-zA-Z0-9_]+(?:\.[a-zA-Z0-9_]+)+)\)`)

// classRules maps backend exception-class substrings to taxonomy kinds.
// Order matters: AccessDenied (bad credentials) must win over AccessError.
var classRules = []struct {
	substr string
	kind   Kind
}{
	{"accessdenied", KindAuthentication},
	{"accesserror", KindPermission},
	{"permission", KindPermission},
	{"validationerror", KindValidation},
	{"usererror", KindValidation},
	{"missingerror", KindNotFound},
	{"notfound", KindNotFound},
	{"toomanyrequests", KindRateLimited},
}

// Classify deterministically maps a backend fault onto the taxonomy. It is
// pure and total: every fault yields exactly one envelope, defaulting to
// KindUnknown with the original message and class name preserved in details.
func Classify(f Fault) *Envelope {
	name := strings.ToLower(f.Data.Name)
	for _, rule := range classRules {
		if strings.Contains(name, rule.substr) {
			env := &Envelope{Kind: rule.kind, Message: f.Message}
			if env.Message == "" {
				env.Message = f.Data.Name
			}
			if rule.kind == KindPermission {
				if m := extractModel(f.Data.Debug); m != "" {
					env.With("model", m)
				}
			}
			return env
		}
	}
	env := ErrUnknown(f.Message)
	if env.Message == "" {
		env.Message = "backend fault"
	}
	if f.Data.Name != "" {
		env.With("name", f.Data.Name)
	}
	if f.Data.Debug != "" {
		env.With("debug", f.Data.Debug)
	}
	return env
}

func extractModel(debug string) string {
	matches := modelRE.FindAllStringSubmatch(debug, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}
