// Package rpc implements the per-instance client for the backend's
// two-service JSON-RPC convention: a common service for the login handshake
// and an object service for generic method dispatch.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/types"
)

// ──────────────────────────────────────────────────────────────────────────────
// Configuration
// ──────────────────────────────────────────────────────────────────────────────

// ConnectionConfig describes one backend instance. It is immutable once
// handed to the pool manager.
type ConnectionConfig struct {
	Endpoint       string        `json:"endpoint"`
	Database       string        `json:"database"`
	Username       string        `json:"username"`
	Password       string        `json:"-"`
	Timeout        time.Duration `json:"timeout"`
	MaxConnections int           `json:"max_connections"`
}

// Validate checks the config for completeness and fills defaults for the
// optional tuning knobs.
func (c *ConnectionConfig) Validate() error {
	if c.Endpoint == "" {
		return &types.ValidationError{Field: "endpoint", Reason: "required"}
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &types.ValidationError{Field: "endpoint", Reason: "must be an http(s) URL"}
	}
	if c.Database == "" {
		return &types.ValidationError{Field: "database", Reason: "required"}
	}
	if c.Username == "" {
		return &types.ValidationError{Field: "username", Reason: "required"}
	}
	if c.Password == "" {
		return &types.ValidationError{Field: "password", Reason: "required"}
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Caller interface
// ──────────────────────────────────────────────────────────────────────────────

// Caller is the operation surface the pool and registries depend on. One
// concrete Client implements it; tests substitute mocks.
type Caller interface {
	// Authenticate performs the login handshake, caching the identity for
	// the lifetime of the client.
	Authenticate(ctx context.Context) (int64, error)

	// ExecuteKw invokes model.method with positional args and keyword args,
	// returning the backend result verbatim.
	ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error)

	// Close releases idle transport resources. The client must not be used
	// afterwards.
	Close()
}

// ──────────────────────────────────────────────────────────────────────────────
// JSON-RPC wire envelope
// ──────────────────────────────────────────────────────────────────────────────

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      uint64    `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    types.FaultData `json:"data"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Client
// ──────────────────────────────────────────────────────────────────────────────

// Client is the concrete Caller for one backend instance. Safe for
// concurrent use; all in-flight calls share one bounded HTTP transport.
type Client struct {
	cfg        ConnectionConfig
	httpClient *http.Client
	reqID      atomic.Uint64

	mu     sync.Mutex
	uid    int64
	authed bool
}

// NewClient creates a client for the given instance config. The transport
// enforces the configured cap on simultaneous connections; excess calls
// queue at the transport layer.
func NewClient(cfg ConnectionConfig) *Client {
	transport := &http.Transport{
		MaxConnsPerHost:     cfg.MaxConnections,
		MaxIdleConnsPerHost: cfg.MaxConnections,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
	}
}

// Authenticate performs the common-service login handshake once and caches
// the resulting identity for the lifetime of the client. Concurrent callers
// single-flight behind the mutex; the cached identity is reset only by
// Invalidate.
func (c *Client) Authenticate(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authed {
		return c.uid, nil
	}

	result, err := c.call(ctx, "common", "authenticate",
		[]any{c.cfg.Database, c.cfg.Username, c.cfg.Password, map[string]any{}})
	if err != nil {
		env := types.AsEnvelope(err)
		// A deadline during the handshake is a connection failure, not a
		// per-call timeout.
		if env.Kind == types.KindTimeout {
			env = types.ErrConnection(env.Message)
		}
		return 0, env
	}

	var uid int64
	if err := json.Unmarshal(result, &uid); err != nil || uid <= 0 {
		// The backend answers false (not a fault) on bad credentials.
		return 0, types.ErrAuthentication(
			fmt.Sprintf("invalid credentials for database %q", c.cfg.Database))
	}

	c.uid = uid
	c.authed = true
	return uid, nil
}

// Invalidate drops the cached identity so the next call re-authenticates.
// Used after credential rotation.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.authed = false
	c.uid = 0
	c.mu.Unlock()
}

// ExecuteKw invokes model.method through the object service. Backend faults
// are classified into the taxonomy before they leave this layer; the raw
// wire fault never escapes.
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	uid, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	result, err := c.call(ctx, "object", "execute_kw",
		[]any{c.cfg.Database, uid, c.cfg.Password, model, method, args, kwargs})
	if err != nil {
		env := types.AsEnvelope(err)
		if env.Kind == types.KindTimeout {
			env.With("model", model).With("method", method).With("timeout", c.cfg.Timeout.String())
		}
		return nil, env
	}

	var out any
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, types.ErrUnknown(fmt.Sprintf("malformed backend response: %v", err))
	}
	return out, nil
}

// Close releases idle transport connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// call sends one positional-parameter JSON-RPC request and returns the raw
// result. Transport failures and backend faults come back as envelopes.
func (c *Client) call(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.reqID.Add(1),
	})
	if err != nil {
		return nil, types.ErrUnknown(fmt.Sprintf("marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return nil, types.ErrConnection(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(service, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, types.ErrRateLimited()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.ErrConnection(
			fmt.Sprintf("backend returned HTTP %d for %s.%s", resp.StatusCode, service, method))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, types.ErrConnection(fmt.Sprintf("decode response: %v", err))
	}
	if rpcResp.Error != nil {
		return nil, types.Classify(types.Fault{
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		})
	}
	return rpcResp.Result, nil
}

func transportError(service, method string, err error) *types.Envelope {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return types.ErrTimeout(fmt.Sprintf("%s.%s deadline exceeded", service, method))
	case errors.As(err, &netErr) && netErr.Timeout():
		return types.ErrTimeout(fmt.Sprintf("%s.%s timed out", service, method))
	case errors.Is(err, context.Canceled):
		return types.ErrConnection(fmt.Sprintf("%s.%s cancelled", service, method))
	default:
		return types.ErrConnection(fmt.Sprintf("%s.%s: %v", service, method, err))
	}
}
