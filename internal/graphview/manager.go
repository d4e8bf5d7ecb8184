// Package graphview fetches the rendered knowledge-graph document for the
// selected context and owns the lifetime of the resulting local resource.
// At most one rendered document is ever live per manager; the previous one
// is released before a replacement is fetched and when the manager closes.
package graphview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/wzt1001/lightrag-on-aws/internal/api"
	"github.com/wzt1001/lightrag-on-aws/internal/ctxlog"
	"github.com/wzt1001/lightrag-on-aws/internal/session"
)

// ErrContextChanged is returned when the selection moved while the graph
// was being fetched; the payload has been discarded.
var ErrContextChanged = errors.New("selected context changed while the graph was loading")

// Handle owns one rendered graph document on disk. Release removes the
// backing file; it is idempotent.
type Handle struct {
	mu       sync.Mutex
	path     string
	released bool
}

// Path returns the location of the rendered document. It returns "" after
// the handle has been released.
func (h *Handle) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ""
	}
	return h.path
}

// Release deletes the backing file. Further calls are no-ops.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release graph document: %w", err)
	}
	return nil
}

// Manager fetches graph documents for the selected context. It implements
// the one-live-resource rule: the previous handle is released before a new
// fetch is issued, so nothing leaks even when the new load fails.
type Manager struct {
	client *api.Client
	sess   *session.Store

	mu      sync.Mutex
	current *Handle
	dir     string
}

// NewManager creates a manager bound to the session store. Switching the
// selected context releases the held document immediately; the previous
// context's graph is never shown while a new one is pending.
func NewManager(client *api.Client, sess *session.Store) *Manager {
	m := &Manager{client: client, sess: sess}
	sess.Subscribe(func(string) { m.releaseCurrent() })
	return m
}

// SetDir overrides the directory rendered documents are written to. The
// default is the system temp directory.
func (m *Manager) SetDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dir = dir
}

// Current returns the live handle, if any.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Load fetches the rendered graph for the selected context and installs a
// fresh handle for it.
func (m *Manager) Load(ctx context.Context) (*Handle, error) {
	return m.fetch(ctx, false)
}

// Regenerate forces the server to rebuild the graph before rendering. It
// is otherwise identical to Load; only the progress label differs.
func (m *Manager) Regenerate(ctx context.Context) (*Handle, error) {
	return m.fetch(ctx, true)
}

func (m *Manager) fetch(ctx context.Context, regenerate bool) (*Handle, error) {
	contextID := m.sess.Selected()
	if contextID == "" {
		return nil, session.ErrNoSelection
	}

	label := "loading"
	if regenerate {
		label = "regenerating"
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("Graph "+label+".", "context_id", contextID)

	// Release the previous document before the fetch is issued. If the
	// fetch fails we hold nothing, which is the point: retrying or
	// switching contexts must not leak the old resource.
	m.releaseCurrent()

	payload, err := m.client.Visualize(ctx, contextID, regenerate)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return nil, fmt.Errorf("failed to render graph: %s", apiErr.Detail)
		}
		return nil, errors.New("failed to render graph, please try again")
	}
	if m.sess.Selected() != contextID {
		return nil, ErrContextChanged
	}

	handle, err := m.mint(payload)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.current = handle
	m.mu.Unlock()
	logger.Debug("Graph document installed.", "path", handle.Path(), "bytes", len(payload))
	return handle, nil
}

// mint writes the payload to a fresh file and wraps it in an owned handle.
func (m *Manager) mint(payload []byte) (*Handle, error) {
	m.mu.Lock()
	dir := m.dir
	m.mu.Unlock()

	f, err := os.CreateTemp(dir, "graph-*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to stage graph document: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to stage graph document: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to stage graph document: %w", err)
	}
	return &Handle{path: f.Name()}, nil
}

// releaseCurrent drops the held handle, if any.
func (m *Manager) releaseCurrent() {
	m.mu.Lock()
	handle := m.current
	m.current = nil
	m.mu.Unlock()
	if handle != nil {
		_ = handle.Release()
	}
}

// Close releases whatever document the manager still holds. It is called
// when the owning view is torn down.
func (m *Manager) Close() error {
	m.mu.Lock()
	handle := m.current
	m.current = nil
	m.mu.Unlock()
	if handle == nil {
		return nil
	}
	return handle.Release()
}
