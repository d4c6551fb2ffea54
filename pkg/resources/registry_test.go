package resources

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/pool"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/rpc"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/tools"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/types"
)

type fakeCaller struct {
	calls  int
	last   struct {
		model  string
		method string
		kwargs map[string]any
	}
	exec func(model, method string) (any, error)
}

func (f *fakeCaller) Authenticate(context.Context) (int64, error) { return 1, nil }

func (f *fakeCaller) ExecuteKw(_ context.Context, model, method string, _ []any, kwargs map[string]any) (any, error) {
	f.calls++
	f.last.model, f.last.method, f.last.kwargs = model, method, kwargs
	return f.exec(model, method)
}

func (f *fakeCaller) Close() {}

func newTestRegistry(t *testing.T, exec func(model, method string) (any, error)) (*Registry, *fakeCaller) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	caller := &fakeCaller{exec: exec}
	p := pool.NewManager(log).WithFactory(func(rpc.ConnectionConfig) rpc.Caller { return caller })
	err := p.AddConnection("t1", rpc.ConnectionConfig{
		Endpoint: "http://localhost:8069", Database: "prod",
		Username: "svc", Password: "secret",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Cleanup)
	toolReg := tools.NewRegistry(p, rpc.RetryPolicy{MaxRetries: 1}, log)
	return NewRegistry(toolReg), caller
}

func TestRead_MalformedURIsFailBeforeNetwork(t *testing.T) {
	reg, caller := newTestRegistry(t, func(string, string) (any, error) {
		return []any{}, nil
	})

	uris := []string{
		"http://t1/res.partner",
		"odoo://",
		"odoo://t1/res.partner/abc",
		"odoo://t1/res.partner/-5",
		"odoo://t1/res.partner/0",
		"odoo://t1/res.partner/1/extra",
		"odoo://t1//7",
	}
	for _, uri := range uris {
		_, err := reg.Read(context.Background(), uri)
		if types.AsEnvelope(err).Kind != types.KindValidation {
			t.Errorf("Read(%q): expected validation error, got %v", uri, err)
		}
	}
	if caller.calls != 0 {
		t.Error("malformed URIs must never reach the wire")
	}
}

func TestRead_SingleRecord(t *testing.T) {
	reg, caller := newTestRegistry(t, func(string, string) (any, error) {
		return []any{map[string]any{"id": float64(7), "name": "Acme"}}, nil
	})

	result, err := reg.Read(context.Background(), "odoo://t1/res.partner/7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, ok := result.(map[string]any)
	if !ok || rec["name"] != "Acme" {
		t.Errorf("unexpected result %v", result)
	}
	if caller.last.method != "read" {
		t.Errorf("expected read dispatch, got %s", caller.last.method)
	}
}

func TestRead_MissingRecord(t *testing.T) {
	reg, _ := newTestRegistry(t, func(string, string) (any, error) {
		return []any{}, nil
	})
	_, err := reg.Read(context.Background(), "odoo://t1/res.partner/99")
	if types.AsEnvelope(err).Kind != types.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestRead_RecordList(t *testing.T) {
	reg, caller := newTestRegistry(t, func(string, string) (any, error) {
		return []any{
			map[string]any{"id": float64(2), "display_name": "Globex"},
			map[string]any{"id": float64(1), "display_name": "Acme"},
		}, nil
	})

	result, err := reg.Read(context.Background(), "odoo://t1/res.partner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, ok := result.([]ListEntry)
	if !ok || len(entries) != 2 {
		t.Fatalf("unexpected result %v", result)
	}
	if entries[0].ID != 2 || entries[0].DisplayName != "Globex" {
		t.Errorf("unexpected first entry %+v", entries[0])
	}

	if caller.last.kwargs["limit"] != ListLimit {
		t.Errorf("expected list capped at %d, got kwargs %v", ListLimit, caller.last.kwargs)
	}
	if caller.last.kwargs["order"] != "id desc" {
		t.Errorf("expected newest-first ordering, got %v", caller.last.kwargs["order"])
	}
}

func TestRead_InstanceCatalog(t *testing.T) {
	reg, caller := newTestRegistry(t, func(model, _ string) (any, error) {
		if model != "ir.model" {
			t.Errorf("catalog must query ir.model, got %s", model)
		}
		return []any{
			map[string]any{"id": float64(1), "model": "res.partner"},
			map[string]any{"id": float64(2), "model": "sale.order"},
		}, nil
	})

	result, err := reg.Read(context.Background(), "odoo://t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names, ok := result.([]string)
	if !ok || len(names) != 2 || names[0] != "res.partner" {
		t.Errorf("unexpected catalog %v", result)
	}
	if caller.calls != 1 {
		t.Errorf("expected one backend call, got %d", caller.calls)
	}
}

func TestRead_UnknownInstance(t *testing.T) {
	reg, _ := newTestRegistry(t, func(string, string) (any, error) {
		return []any{}, nil
	})
	_, err := reg.Read(context.Background(), "odoo://nope/res.partner/1")
	if types.AsEnvelope(err).Kind != types.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}
