package types

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassify_Permission(t *testing.T) {
	env := Classify(Fault{
		Message: "x",
		Data: FaultData{
			Name:  "odoo.exceptions.AccessError",
			Debug: "Traceback ...\nYou are not allowed to access records (sale.order)",
		},
	})
	if env.Kind != KindPermission {
		t.Fatalf("expected %s, got %s", KindPermission, env.Kind)
	}
	if env.Details["model"] != "sale.order" {
		t.Errorf("expected details.model sale.order, got %v", env.Details["model"])
	}
}

func TestClassify_PermissionWithoutModel(t *testing.T) {
	env := Classify(Fault{Message: "denied", Data: FaultData{Name: "AccessError"}})
	if env.Kind != KindPermission {
		t.Fatalf("expected %s, got %s", KindPermission, env.Kind)
	}
	if _, ok := env.Details["model"]; ok {
		t.Error("expected no model detail when debug has none")
	}
}

func TestClassify_AuthenticationWinsOverPermission(t *testing.T) {
	env := Classify(Fault{Message: "bad login", Data: FaultData{Name: "odoo.exceptions.AccessDenied"}})
	if env.Kind != KindAuthentication {
		t.Fatalf("expected %s, got %s", KindAuthentication, env.Kind)
	}
}

func TestClassify_KnownClasses(t *testing.T) {
	tests := []struct {
		class string
		kind  Kind
	}{
		{"odoo.exceptions.ValidationError", KindValidation},
		{"odoo.exceptions.UserError", KindValidation},
		{"odoo.exceptions.MissingError", KindNotFound},
		{"builtins.PermissionError", KindPermission},
		{"werkzeug.exceptions.TooManyRequests", KindRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			env := Classify(Fault{Message: "m", Data: FaultData{Name: tt.class}})
			if env.Kind != tt.kind {
				t.Errorf("Classify(%s) = %s, want %s", tt.class, env.Kind, tt.kind)
			}
		})
	}
}

func TestClassify_UnknownPreservesOriginal(t *testing.T) {
	env := Classify(Fault{
		Message: "boom",
		Data:    FaultData{Name: "SomethingNovel", Debug: "stack"},
	})
	if env.Kind != KindUnknown {
		t.Fatalf("expected %s, got %s", KindUnknown, env.Kind)
	}
	if env.Message != "boom" {
		t.Errorf("expected original message preserved, got %q", env.Message)
	}
	if env.Details["name"] != "SomethingNovel" {
		t.Errorf("expected class name preserved, got %v", env.Details["name"])
	}
}

func TestClassify_EmptyFault(t *testing.T) {
	env := Classify(Fault{})
	if env.Kind != KindUnknown {
		t.Fatalf("expected %s, got %s", KindUnknown, env.Kind)
	}
	if env.Message == "" {
		t.Error("expected a non-empty message")
	}
}

func TestClassify_Deterministic(t *testing.T) {
	f := Fault{Message: "x", Data: FaultData{Name: "MissingError"}}
	first := Classify(f)
	for i := 0; i < 10; i++ {
		if got := Classify(f); got.Kind != first.Kind {
			t.Fatalf("classification not deterministic: %s != %s", got.Kind, first.Kind)
		}
	}
}

func TestKind_Retryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindConnection:     true,
		KindTimeout:        true,
		KindAuthentication: false,
		KindPermission:     false,
		KindValidation:     false,
		KindNotFound:       false,
		KindRateLimited:    false,
		KindUnknown:        false,
	}
	for kind, want := range retryable {
		if got := kind.Retryable(); got != want {
			t.Errorf("%s.Retryable() = %v, want %v", kind, got, want)
		}
	}
}

func TestAsEnvelope(t *testing.T) {
	env := ErrNotFound("gone")
	if got := AsEnvelope(env); got != env {
		t.Error("expected envelope passthrough")
	}

	ve := &ValidationError{Field: "ids", Reason: "required"}
	got := AsEnvelope(ve)
	if got.Kind != KindValidation {
		t.Errorf("expected validation kind, got %s", got.Kind)
	}
	if got.Details["field"] != "ids" {
		t.Errorf("expected field detail, got %v", got.Details)
	}

	plain := AsEnvelope(errors.New("oops"))
	if plain.Kind != KindUnknown {
		t.Errorf("expected unknown kind, got %s", plain.Kind)
	}
}

func TestEnvelope_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		code int
	}{
		{KindValidation, http.StatusUnprocessableEntity},
		{KindAuthentication, http.StatusUnauthorized},
		{KindPermission, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindTimeout, http.StatusGatewayTimeout},
		{KindConnection, http.StatusBadGateway},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		env := &Envelope{Kind: tt.kind}
		if got := env.HTTPStatus(); got != tt.code {
			t.Errorf("%s → %d, want %d", tt.kind, got, tt.code)
		}
	}
}
