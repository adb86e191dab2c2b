package workspace

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EvictCallback is called after an idle workspace has been closed.
type EvictCallback func(key Key)

// Manager owns the workspaces of every connected visitor.
type Manager struct {
	deps    Deps
	onEvict EvictCallback

	mu     sync.Mutex
	spaces map[Key]*Workspace
}

// NewManager creates an empty manager.
func NewManager(deps Deps, onEvict EvictCallback) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		deps:    deps,
		onEvict: onEvict,
		spaces:  make(map[Key]*Workspace),
	}
}

// Get returns the workspace for key, creating it on first use.
func (m *Manager) Get(key Key) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ws, ok := m.spaces[key]; ok {
		if err := ws.touch(); err == nil {
			return ws
		}
	}
	ws := newWorkspace(key, m.deps)
	m.spaces[key] = ws
	m.deps.Logger.Info("Workspace created", "user_id", key.UserID, "session_id", key.SessionID)
	return ws
}

// Lookup returns the workspace for key without creating one.
func (m *Manager) Lookup(key Key) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.spaces[key]
	return ws, ok
}

// Len returns the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.spaces)
}

// Remove closes and forgets the workspace for key.
func (m *Manager) Remove(key Key) {
	m.mu.Lock()
	ws, ok := m.spaces[key]
	delete(m.spaces, key)
	m.mu.Unlock()

	if ok {
		ws.Close()
	}
}

// Sweep evicts workspaces idle for longer than ttl and returns how many were
// evicted.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	var expired []*Workspace
	for key, ws := range m.spaces {
		if ws.idleSince().Before(cutoff) {
			expired = append(expired, ws)
			delete(m.spaces, key)
		}
	}
	m.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}

	m.deps.Logger.Info("Workspace sweeper found idle workspaces", "count", len(expired))
	for _, ws := range expired {
		ws.Close()
		if m.onEvict != nil {
			m.onEvict(ws.Key())
		}
		m.deps.Logger.Info("Workspace evicted",
			"user_id", ws.Key().UserID,
			"session_id", ws.Key().SessionID)
	}
	return len(expired)
}

// StartSweeper runs a background goroutine that periodically evicts idle
// workspaces until ctx is done.
func (m *Manager) StartSweeper(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		m.deps.Logger.Info("Workspace sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				m.Sweep(ttl)
			case <-ctx.Done():
				m.deps.Logger.Info("Workspace sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Close closes every workspace.
func (m *Manager) Close() {
	m.mu.Lock()
	spaces := m.spaces
	m.spaces = make(map[Key]*Workspace)
	m.mu.Unlock()

	for _, ws := range spaces {
		ws.Close()
	}
}
