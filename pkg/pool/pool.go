// Package pool owns the registry of per-instance backend connections. Each
// registered instance holds exactly one long-lived client whose session is
// shared, never duplicated, across concurrent callers.
package pool

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/rpc"
	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/types"
)

// Factory constructs the client for a newly registered instance. Overridable
// so tests can substitute a mock Caller.
type Factory func(cfg rpc.ConnectionConfig) rpc.Caller

// Conn is the pooled connection for one instance: the shared client plus the
// config that seeded it.
type Conn struct {
	ID     string
	Client rpc.Caller

	cfg    rpc.ConnectionConfig
	leases sync.WaitGroup
}

// Config returns the immutable config this connection was created from.
func (c *Conn) Config() rpc.ConnectionConfig {
	return c.cfg
}

// Manager is the keyed registry of pooled connections. Structural mutation
// (add/remove/cleanup) is serialized behind one mutex; leases take only the
// read lock so steady-state calls never contend.
type Manager struct {
	log     *slog.Logger
	factory Factory

	mu     sync.RWMutex
	conns  map[string]*Conn
	closed bool
}

// NewManager creates an empty pool manager.
func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		log:   log,
		conns: make(map[string]*Conn),
		factory: func(cfg rpc.ConnectionConfig) rpc.Caller {
			return rpc.NewClient(cfg)
		},
	}
}

// WithFactory overrides client construction and returns the manager.
func (m *Manager) WithFactory(f Factory) *Manager {
	m.factory = f
	return m
}

// AddConnection registers a new backend instance. Re-registering a known id
// is rejected: silent replacement would orphan in-flight leases on the old
// session, so replacement is expressed as an explicit remove-then-add.
func (m *Manager) AddConnection(id string, cfg rpc.ConnectionConfig) error {
	if id == "" {
		return types.ErrInvalid("instance id is required")
	}
	if err := cfg.Validate(); err != nil {
		return types.AsEnvelope(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return types.ErrInvalid("pool is shut down")
	}
	if _, exists := m.conns[id]; exists {
		return types.ErrInvalid(fmt.Sprintf("instance %q already registered; remove it first", id))
	}
	m.conns[id] = &Conn{ID: id, Client: m.factory(cfg), cfg: cfg}
	m.log.Info("instance registered", "instance_id", id, "endpoint", cfg.Endpoint, "database", cfg.Database)
	return nil
}

// Lease returns the shared connection for the instance together with a
// release func. Callers must release on every exit path; remove and cleanup
// wait for outstanding leases before closing the session, so releasing
// never invalidates the session for concurrent callers.
func (m *Manager) Lease(id string) (*Conn, func(), error) {
	m.mu.RLock()
	c, ok := m.conns[id]
	if !ok {
		m.mu.RUnlock()
		return nil, nil, types.ErrNotFound(fmt.Sprintf("unknown instance %q", id))
	}
	c.leases.Add(1)
	m.mu.RUnlock()

	var once sync.Once
	release := func() {
		once.Do(c.leases.Done)
	}
	return c, release, nil
}

// RemoveConnection deregisters an instance, waits for in-flight leases to
// drain, and closes the session.
func (m *Manager) RemoveConnection(id string) error {
	m.mu.Lock()
	c, ok := m.conns[id]
	if !ok {
		m.mu.Unlock()
		return types.ErrNotFound(fmt.Sprintf("unknown instance %q", id))
	}
	delete(m.conns, id)
	m.mu.Unlock()

	c.leases.Wait()
	c.Client.Close()
	m.log.Info("instance removed", "instance_id", id)
	return nil
}

// Cleanup closes every session and empties the registry. Idempotent; called
// once at process shutdown.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conns := m.conns
	m.conns = make(map[string]*Conn)
	m.mu.Unlock()

	for _, c := range conns {
		c.leases.Wait()
		c.Client.Close()
	}
	if len(conns) > 0 {
		m.log.Info("pool cleaned up", "instances", len(conns))
	}
}

// Instances returns the sorted ids of all registered instances.
func (m *Manager) Instances() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
