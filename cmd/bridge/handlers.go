package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/audit"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/auth"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/pool"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/resources"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/rpc"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/tools"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Bridge holds the wired registries behind the HTTP surface.
type Bridge struct {
	log       *slog.Logger
	tools     *tools.Registry
	resources *resources.Registry
	pool      *pool.Manager
	audit     *audit.Logger

	rateLimiters     map[string]*rate.Limiter
	rlOrder          []string
	rlMu             sync.Mutex
	perInstanceLimit int
}

// HandleToolCall is POST /v1/tools/{tool}
func (b *Bridge) HandleToolCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tool := chi.URLParam(r, "tool")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.ToolCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.ErrInvalid("invalid JSON body").WriteJSON(w)
		return
	}
	req.Normalize()

	if req.InstanceID != "" && !b.allowRate(req.InstanceID) {
		types.ErrRateLimited().WriteJSON(w)
		return
	}

	start := time.Now()
	result, err := b.tools.Call(ctx, tool, req)
	duration := time.Since(start)

	rec := audit.Record{
		EventID:    uuid.NewString(),
		CallerID:   auth.CallerFromContext(ctx),
		InstanceID: req.InstanceID,
		Tool:       tool,
		Model:      req.Model,
		Method:     req.Method,
		Status:     "success",
		DurationMS: duration.Milliseconds(),
		ReceivedAt: start.UTC(),
	}
	if err != nil {
		env := types.AsEnvelope(err)
		rec.Status = "error"
		rec.ErrorKind = string(env.Kind)
		b.audit.RecordInvocation(ctx, rec)
		env.WriteJSON(w)
		return
	}
	b.audit.RecordInvocation(ctx, rec)
	writeResult(w, b.log, result)
}

// HandleListTools is GET /v1/tools
func (b *Bridge) HandleListTools(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tools.Definitions()); err != nil {
		b.log.Error("response encode failed", "error", err)
	}
}

// HandleReadResource is GET /v1/resources?uri=odoo://...
func (b *Bridge) HandleReadResource(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		types.ErrInvalid("uri query parameter is required").WriteJSON(w)
		return
	}
	result, err := b.resources.Read(r.Context(), uri)
	if err != nil {
		types.AsEnvelope(err).WriteJSON(w)
		return
	}
	writeResult(w, b.log, result)
}

// HandleListInstances is GET /v1/instances
func (b *Bridge) HandleListInstances(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"instances": b.pool.Instances()}); err != nil {
		b.log.Error("response encode failed", "error", err)
	}
}

// addInstanceRequest is the POST /v1/instances payload.
type addInstanceRequest struct {
	InstanceID     string `json:"instance_id"`
	Endpoint       string `json:"endpoint"`
	Database       string `json:"database"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Timeout        string `json:"timeout,omitempty"` // Go duration syntax
	MaxConnections int    `json:"max_connections,omitempty"`
}

// HandleAddInstance is POST /v1/instances
func (b *Bridge) HandleAddInstance(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req addInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.ErrInvalid("invalid JSON body").WriteJSON(w)
		return
	}
	if req.InstanceID == "" {
		types.ErrInvalid("instance_id is required").WriteJSON(w)
		return
	}

	cfg := rpc.ConnectionConfig{
		Endpoint:       req.Endpoint,
		Database:       req.Database,
		Username:       req.Username,
		Password:       req.Password,
		MaxConnections: req.MaxConnections,
	}
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil {
			types.ErrInvalid("timeout must be a duration such as 30s").WriteJSON(w)
			return
		}
		cfg.Timeout = d
	}

	if err := b.pool.AddConnection(req.InstanceID, cfg); err != nil {
		types.AsEnvelope(err).WriteJSON(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "registered", "instance_id": req.InstanceID}); err != nil {
		b.log.Error("response encode failed", "error", err)
	}
}

// HandleRemoveInstance is DELETE /v1/instances/{instance_id}
func (b *Bridge) HandleRemoveInstance(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instance_id")
	if err := b.pool.RemoveConnection(instanceID); err != nil {
		types.AsEnvelope(err).WriteJSON(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "removed", "instance_id": instanceID}); err != nil {
		b.log.Error("response encode failed", "error", err)
	}
}

func writeResult(w http.ResponseWriter, log *slog.Logger, result any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"result": result}); err != nil {
		log.Error("response encode failed", "error", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Rate limiting (bounded map with eviction)
// ──────────────────────────────────────────────────────────────────────────────

func (b *Bridge) allowRate(instanceID string) bool {
	b.rlMu.Lock()
	defer b.rlMu.Unlock()

	lim, ok := b.rateLimiters[instanceID]
	if ok {
		// Move to end of LRU order.
		for i, k := range b.rlOrder {
			if k == instanceID {
				b.rlOrder = append(b.rlOrder[:i], b.rlOrder[i+1:]...)
				break
			}
		}
		b.rlOrder = append(b.rlOrder, instanceID)
		return lim.Allow()
	}

	if len(b.rateLimiters) >= maxRateLimiters {
		oldest := b.rlOrder[0]
		b.rlOrder = b.rlOrder[1:]
		delete(b.rateLimiters, oldest)
	}

	lim = rate.NewLimiter(rate.Limit(b.perInstanceLimit), b.perInstanceLimit*2)
	b.rateLimiters[instanceID] = lim
	b.rlOrder = append(b.rlOrder, instanceID)
	return lim.Allow()
}
