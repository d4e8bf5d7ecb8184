// Package session owns the console's shared state: the set of known
// contexts and the currently selected context id. Every other component
// keys its work on this selection and resets itself when it moves.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wzt1001/lightrag-on-aws/internal/api"
	"github.com/wzt1001/lightrag-on-aws/internal/ctxlog"
)

// ErrNoSelection is returned by operations that require a selected context.
var ErrNoSelection = errors.New("no context selected")

// Store is the single source of truth for context state. The selected id
// is mutated only through Select; dependents read it and subscribe for
// change notifications.
type Store struct {
	client *api.Client

	mu          sync.Mutex
	contexts    []api.Context
	selectedID  string
	subscribers []func(selectedID string)
}

// New creates an empty store backed by the given client.
func New(client *api.Client) *Store {
	return &Store{client: client}
}

// Load replaces the known context set from the server. A transport failure
// degrades to an empty list: having no contexts is a valid state, so the
// error is logged rather than surfaced.
func (s *Store) Load(ctx context.Context) {
	contexts, err := s.client.ListContexts(ctx)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Context list unavailable, starting empty.", "error", err)
		contexts = nil
	}
	s.mu.Lock()
	s.contexts = contexts
	s.mu.Unlock()
}

// List returns a copy of the known contexts.
func (s *Store) List() []api.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Context, len(s.contexts))
	copy(out, s.contexts)
	return out
}

// Get looks up one context by id.
func (s *Store) Get(id string) (api.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contexts {
		if c.ID == id {
			return c, true
		}
	}
	return api.Context{}, false
}

// Selected returns the selected context id, or "" when nothing is selected.
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Subscribe registers fn to be called synchronously after every selection
// change, with the new selected id ("" for cleared).
func (s *Store) Subscribe(fn func(selectedID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Select changes the selected context. An empty id clears the selection.
// Subscribers are always notified, even when the id is unchanged, so
// dependents can drop stale per-context state.
func (s *Store) Select(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()
	s.notify(id)
}

// Create submits a new context and appends it to the local list on
// success. The selection is left untouched; callers decide whether the new
// context should become current.
func (s *Store) Create(ctx context.Context, name, description string) (api.Context, error) {
	if name == "" {
		return api.Context{}, errors.New("context name must not be empty")
	}
	created, err := s.client.CreateContext(ctx, name, description)
	if err != nil {
		return api.Context{}, fmt.Errorf("failed to create context: %w", err)
	}
	s.mu.Lock()
	s.contexts = append(s.contexts, created)
	s.mu.Unlock()
	ctxlog.FromContext(ctx).Info("Context created.", "id", created.ID, "name", created.Name)
	return created, nil
}

// Delete removes a context on the server and from the local list. Callers
// are expected to have confirmed the deletion with the user first. If the
// deleted context was selected, the selection is cleared and dependents
// are notified. On failure the local list is left unchanged.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete context: %w", err)
	}

	s.mu.Lock()
	for i, c := range s.contexts {
		if c.ID == id {
			s.contexts = append(s.contexts[:i], s.contexts[i+1:]...)
			break
		}
	}
	wasSelected := s.selectedID == id
	if wasSelected {
		s.selectedID = ""
	}
	s.mu.Unlock()

	ctxlog.FromContext(ctx).Info("Context deleted.", "id", id)
	if wasSelected {
		s.notify("")
	}
	return nil
}

// ListGeneratedFiles lists the server's internal store files for the
// selected context.
func (s *Store) ListGeneratedFiles(ctx context.Context) ([]string, error) {
	id := s.Selected()
	if id == "" {
		return nil, ErrNoSelection
	}
	files, err := s.client.ListGeneratedFiles(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list generated files: %w", err)
	}
	return files, nil
}

// GeneratedFile fetches the raw JSON text of one internal store file of
// the selected context.
func (s *Store) GeneratedFile(ctx context.Context, filename string) (string, error) {
	id := s.Selected()
	if id == "" {
		return "", ErrNoSelection
	}
	content, err := s.client.GetGeneratedFile(ctx, id, filename)
	if err != nil {
		return "", fmt.Errorf("failed to fetch generated file: %w", err)
	}
	return content, nil
}

// notify fans the new selection out to subscribers. It must be called
// without the lock held: subscribers read back from the store.
func (s *Store) notify(id string) {
	s.mu.Lock()
	subs := make([]func(string), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(id)
	}
}
