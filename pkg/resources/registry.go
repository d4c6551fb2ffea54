// Package resources provides read-only, URI-addressable views over the same
// pooled connections the tool registry uses. Resources take no free-form
// arguments and have no side effects.
package resources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/tools"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/types"
)

// Scheme is the URI scheme under which resources are addressed.
const Scheme = "odoo"

// ListLimit caps the record-list view.
const ListLimit = 100

// Registry resolves resource URIs against the tool registry's read path.
type Registry struct {
	tools *tools.Registry
}

// NewRegistry creates a resource registry layered on the tool registry.
func NewRegistry(t *tools.Registry) *Registry {
	return &Registry{tools: t}
}

// ListEntry is one element of the record-list view.
type ListEntry struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

// Read resolves a resource URI:
//
//	odoo://{instance}             → catalog of model names
//	odoo://{instance}/{model}     → newest-first list of {id, display_name}
//	odoo://{instance}/{model}/{id} → single record map
//
// Malformed URIs fail with a validation envelope before any network call.
func (r *Registry) Read(ctx context.Context, uri string) (any, error) {
	ref, err := parseURI(uri)
	if err != nil {
		return nil, types.AsEnvelope(err)
	}

	switch {
	case ref.model == "":
		return r.catalog(ctx, ref.instance)
	case ref.id == 0:
		return r.list(ctx, ref.instance, ref.model)
	default:
		return r.record(ctx, ref.instance, ref.model, ref.id)
	}
}

func (r *Registry) catalog(ctx context.Context, instance string) ([]string, error) {
	records, err := r.tools.SearchRead(ctx, instance, "ir.model", nil,
		tools.SearchOptions{Fields: []string{"model"}, Order: "model asc"})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		if name, ok := rec["model"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (r *Registry) list(ctx context.Context, instance, model string) ([]ListEntry, error) {
	records, err := r.tools.SearchRead(ctx, instance, model, nil, tools.SearchOptions{
		Fields: []string{"display_name"},
		Limit:  ListLimit,
		Order:  "id desc",
	})
	if err != nil {
		return nil, err
	}
	entries := make([]ListEntry, 0, len(records))
	for _, rec := range records {
		var e ListEntry
		if id, ok := rec["id"].(float64); ok {
			e.ID = int64(id)
		}
		if name, ok := rec["display_name"].(string); ok {
			e.DisplayName = name
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *Registry) record(ctx context.Context, instance, model string, id int64) (map[string]any, error) {
	records, err := r.tools.Read(ctx, instance, model, []int64{id}, nil)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, types.ErrNotFound(fmt.Sprintf("%s/%d not found on instance %q", model, id, instance))
	}
	return records[0], nil
}

// ──────────────────────────────────────────────────────────────────────────────
// URI parsing
// ──────────────────────────────────────────────────────────────────────────────

type resourceRef struct {
	instance string
	model    string
	id       int64
}

func parseURI(uri string) (resourceRef, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return resourceRef{}, &types.ValidationError{Field: "uri", Reason: "not a valid URI"}
	}
	if u.Scheme != Scheme {
		return resourceRef{}, &types.ValidationError{Field: "uri", Reason: fmt.Sprintf("scheme must be %q", Scheme)}
	}
	if u.Host == "" {
		return resourceRef{}, &types.ValidationError{Field: "uri", Reason: "missing instance id"}
	}

	ref := resourceRef{instance: u.Host}
	path := strings.TrimPrefix(u.Path, "/")
	if path == "" {
		return ref, nil
	}

	segments := strings.Split(path, "/")
	switch len(segments) {
	case 1:
		ref.model = segments[0]
	case 2:
		ref.model = segments[0]
		id, err := strconv.ParseInt(segments[1], 10, 64)
		if err != nil || id <= 0 {
			return resourceRef{}, &types.ValidationError{Field: "uri", Reason: "record id must be a positive integer"}
		}
		ref.id = id
	default:
		return resourceRef{}, &types.ValidationError{Field: "uri", Reason: "expected at most instance/model/id segments"}
	}
	if ref.model == "" {
		return resourceRef{}, &types.ValidationError{Field: "uri", Reason: "empty model segment"}
	}
	return ref, nil
}
