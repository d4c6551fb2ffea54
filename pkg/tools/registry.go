// Package tools exposes the generic operation surface (create, read, search,
// update, delete, execute, fields_get, search_count) over pooled backend
// connections. Every operation validates its inputs locally before any
// network round-trip and returns backend results verbatim: this layer does
// protocol plumbing, never business-data transformation.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/pool"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/rpc"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/types"
)

// Registry dispatches tool operations to pooled backend connections.
type Registry struct {
	pool  *pool.Manager
	retry rpc.RetryPolicy
	log   *slog.Logger
}

// NewRegistry creates a tool registry over the given pool.
func NewRegistry(p *pool.Manager, retry rpc.RetryPolicy, log *slog.Logger) *Registry {
	return &Registry{pool: p, retry: retry, log: log}
}

// SearchOptions are the optional knobs of the search-family operations.
type SearchOptions struct {
	Fields []string
	Limit  int
	Offset int
	Order  string
}

func (o SearchOptions) kwargs(withFields bool) map[string]any {
	kw := map[string]any{}
	if withFields && len(o.Fields) > 0 {
		kw["fields"] = o.Fields
	}
	if o.Limit > 0 {
		kw["limit"] = o.Limit
	}
	if o.Offset > 0 {
		kw["offset"] = o.Offset
	}
	if o.Order != "" {
		kw["order"] = o.Order
	}
	return kw
}

// ──────────────────────────────────────────────────────────────────────────────
// Operations
// ──────────────────────────────────────────────────────────────────────────────

// Create inserts one record and returns its id.
func (r *Registry) Create(ctx context.Context, instanceID, model string, values map[string]any) (int64, error) {
	if err := types.ValidatePayload(values); err != nil {
		return 0, types.AsEnvelope(err)
	}
	result, err := r.executeKw(ctx, instanceID, model, "create", []any{values}, nil)
	if err != nil {
		return 0, err
	}
	id, ok := asInt64(result)
	if !ok {
		return 0, types.ErrUnknown(fmt.Sprintf("create returned non-integer id %v", result))
	}
	return id, nil
}

// Read fetches records by id, restricted to the given fields when non-empty.
func (r *Registry) Read(ctx context.Context, instanceID, model string, ids []int64, fields []string) ([]map[string]any, error) {
	if len(ids) == 0 {
		return nil, types.ErrInvalid("ids are required")
	}
	kw := map[string]any{}
	if len(fields) > 0 {
		kw["fields"] = fields
	}
	result, err := r.executeKw(ctx, instanceID, model, "read", []any{ids}, kw)
	if err != nil {
		return nil, err
	}
	return asRecords(result)
}

// Search returns the ids matching the domain.
func (r *Registry) Search(ctx context.Context, instanceID, model string, domain []any, opts SearchOptions) ([]int64, error) {
	d, err := types.ParseDomain(domain)
	if err != nil {
		return nil, types.AsEnvelope(err)
	}
	result, err := r.executeKw(ctx, instanceID, model, "search", []any{d.Wire()}, opts.kwargs(false))
	if err != nil {
		return nil, err
	}
	return asIDs(result)
}

// SearchRead combines search and read in one round-trip.
func (r *Registry) SearchRead(ctx context.Context, instanceID, model string, domain []any, opts SearchOptions) ([]map[string]any, error) {
	d, err := types.ParseDomain(domain)
	if err != nil {
		return nil, types.AsEnvelope(err)
	}
	result, err := r.executeKw(ctx, instanceID, model, "search_read", []any{d.Wire()}, opts.kwargs(true))
	if err != nil {
		return nil, err
	}
	return asRecords(result)
}

// Update writes values onto the given records.
func (r *Registry) Update(ctx context.Context, instanceID, model string, ids []int64, values map[string]any) (bool, error) {
	if len(ids) == 0 {
		return false, types.ErrInvalid("ids are required")
	}
	if err := types.ValidatePayload(values); err != nil {
		return false, types.AsEnvelope(err)
	}
	result, err := r.executeKw(ctx, instanceID, model, "write", []any{ids, values}, nil)
	if err != nil {
		return false, err
	}
	return asBool(result), nil
}

// Delete removes the given records.
func (r *Registry) Delete(ctx context.Context, instanceID, model string, ids []int64) (bool, error) {
	if len(ids) == 0 {
		return false, types.ErrInvalid("ids are required")
	}
	result, err := r.executeKw(ctx, instanceID, model, "unlink", []any{ids}, nil)
	if err != nil {
		return false, err
	}
	return asBool(result), nil
}

// Execute is the escape hatch for arbitrary model methods. Args pass through
// unchanged; the result shape is whatever the backend returns.
func (r *Registry) Execute(ctx context.Context, instanceID, model, method string, args []any, kwargs map[string]any) (any, error) {
	if method == "" {
		return nil, types.ErrInvalid("method is required")
	}
	return r.executeKw(ctx, instanceID, model, method, args, kwargs)
}

// FieldsGet returns the model's field definitions, restricted to the given
// field names when non-empty.
func (r *Registry) FieldsGet(ctx context.Context, instanceID, model string, fields []string) (map[string]any, error) {
	args := []any{}
	if len(fields) > 0 {
		args = append(args, fields)
	}
	result, err := r.executeKw(ctx, instanceID, model, "fields_get", args, nil)
	if err != nil {
		return nil, err
	}
	defs, ok := result.(map[string]any)
	if !ok {
		return nil, types.ErrUnknown(fmt.Sprintf("fields_get returned %T, want map", result))
	}
	return defs, nil
}

// SearchCount returns the number of records matching the domain.
func (r *Registry) SearchCount(ctx context.Context, instanceID, model string, domain []any) (int64, error) {
	d, err := types.ParseDomain(domain)
	if err != nil {
		return 0, types.AsEnvelope(err)
	}
	result, err := r.executeKw(ctx, instanceID, model, "search_count", []any{d.Wire()}, nil)
	if err != nil {
		return 0, err
	}
	n, ok := asInt64(result)
	if !ok {
		return 0, types.ErrUnknown(fmt.Sprintf("search_count returned non-integer %v", result))
	}
	return n, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Generic dispatch (HTTP surface)
// ──────────────────────────────────────────────────────────────────────────────

// Call validates and dispatches a generic tool invocation by name.
func (r *Registry) Call(ctx context.Context, tool string, req types.ToolCallRequest) (any, error) {
	if err := req.Validate(tool); err != nil {
		return nil, types.AsEnvelope(err)
	}
	opts := SearchOptions{Fields: req.Fields, Limit: req.Limit, Offset: req.Offset, Order: req.Order}

	switch tool {
	case types.ToolCreate:
		return r.Create(ctx, req.InstanceID, req.Model, req.Values)
	case types.ToolRead:
		return r.Read(ctx, req.InstanceID, req.Model, req.IDs, req.Fields)
	case types.ToolSearch:
		return r.Search(ctx, req.InstanceID, req.Model, req.Domain, opts)
	case types.ToolSearchRead:
		return r.SearchRead(ctx, req.InstanceID, req.Model, req.Domain, opts)
	case types.ToolUpdate:
		return r.Update(ctx, req.InstanceID, req.Model, req.IDs, req.Values)
	case types.ToolDelete:
		return r.Delete(ctx, req.InstanceID, req.Model, req.IDs)
	case types.ToolExecute:
		return r.Execute(ctx, req.InstanceID, req.Model, req.Method, req.Args, req.Kwargs)
	case types.ToolFieldsGet:
		return r.FieldsGet(ctx, req.InstanceID, req.Model, req.Fields)
	case types.ToolSearchCount:
		return r.SearchCount(ctx, req.InstanceID, req.Model, req.Domain)
	default:
		return nil, types.ErrInvalid(fmt.Sprintf("unknown tool %q", tool))
	}
}

// executeKw leases the instance connection and runs the call under the
// retry policy. The lease is released on every exit path.
func (r *Registry) executeKw(ctx context.Context, instanceID, model, method string, args []any, kwargs map[string]any) (any, error) {
	conn, release, err := r.pool.Lease(instanceID)
	if err != nil {
		return nil, err
	}
	defer release()

	var out any
	err = r.retry.Do(ctx, func(ctx context.Context) error {
		v, callErr := conn.Client.ExecuteKw(ctx, model, method, args, kwargs)
		if callErr != nil {
			return callErr
		}
		out = v
		return nil
	})
	if err != nil {
		env := types.AsEnvelope(err)
		r.log.WarnContext(ctx, "tool call failed",
			"instance_id", instanceID, "model", model, "method", method, "kind", string(env.Kind))
		return nil, env
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Result coercion
// ──────────────────────────────────────────────────────────────────────────────

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func asBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func asIDs(v any) ([]int64, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, types.ErrUnknown(fmt.Sprintf("search returned %T, want id list", v))
	}
	ids := make([]int64, 0, len(raw))
	for _, el := range raw {
		id, ok := asInt64(el)
		if !ok {
			return nil, types.ErrUnknown(fmt.Sprintf("search returned non-integer id %v", el))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func asRecords(v any) ([]map[string]any, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, types.ErrUnknown(fmt.Sprintf("backend returned %T, want record list", v))
	}
	records := make([]map[string]any, 0, len(raw))
	for _, el := range raw {
		rec, ok := el.(map[string]any)
		if !ok {
			return nil, types.ErrUnknown(fmt.Sprintf("backend returned non-record element %v", el))
		}
		records = append(records, rec)
	}
	return records, nil
}
