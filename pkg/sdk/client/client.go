// Package client is the Go SDK for the bridge's HTTP surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/rpc"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/tools"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/types"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// callResult is the success wrapper the bridge returns.
type callResult struct {
	Result json.RawMessage `json:"result"`
}

// Call invokes a named tool and returns the raw result for the caller to
// decode into the verb's declared shape.
func (c *Client) Call(ctx context.Context, tool string, req types.ToolCallRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tools/"+tool, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out callResult
	if err := c.doJSON(httpReq, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Tools returns the bridge's tool catalog.
func (c *Client) Tools(ctx context.Context) ([]tools.Definition, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/tools", http.NoBody)
	if err != nil {
		return nil, err
	}
	var out []tools.Definition
	if err := c.doJSON(httpReq, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadResource resolves a resource URI and returns the raw view.
func (c *Client) ReadResource(ctx context.Context, uri string) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/resources?uri="+url.QueryEscape(uri), http.NoBody)
	if err != nil {
		return nil, err
	}
	var out callResult
	if err := c.doJSON(httpReq, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// AddInstance registers a backend instance with the bridge.
func (c *Client) AddInstance(ctx context.Context, instanceID string, cfg rpc.ConnectionConfig) error {
	body, err := json.Marshal(map[string]any{
		"instance_id":     instanceID,
		"endpoint":        cfg.Endpoint,
		"database":        cfg.Database,
		"username":        cfg.Username,
		"password":        cfg.Password,
		"timeout":         cfg.Timeout.String(),
		"max_connections": cfg.MaxConnections,
	})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/instances", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	var out map[string]any
	return c.doJSON(httpReq, &out)
}

// RemoveInstance deregisters a backend instance.
func (c *Client) RemoveInstance(ctx context.Context, instanceID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/instances/"+instanceID, http.NoBody)
	if err != nil {
		return err
	}
	var out map[string]any
	return c.doJSON(httpReq, &out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env types.Envelope
		if decodeErr := json.NewDecoder(resp.Body).Decode(&env); decodeErr == nil && env.Kind != "" {
			return &env
		}
		return fmt.Errorf("http status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}
