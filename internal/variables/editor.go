// Package variables implements the prompt-variable editor: loading a
// context's typed variables, tracking one in-progress edit, and committing
// the result back to the server.
package variables

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wzt1001/lightrag-on-aws/internal/api"
	"github.com/wzt1001/lightrag-on-aws/internal/ctxlog"
	"github.com/wzt1001/lightrag-on-aws/internal/session"
)

// State is the editor's position in its load/edit/commit cycle.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateEditing
	StateCommitting
)

// ErrContextChanged is returned when the selected context moved while a
// request was in flight; the response has been discarded.
var ErrContextChanged = errors.New("selected context changed while the request was in flight")

// editBuffer is the in-progress edit for one variable. Its shape follows
// the variable's kind: free text for scalars, an ordered tag list for
// list-valued variables.
type editBuffer interface {
	kind() Kind
	empty() bool
	value() Value
}

type scalarBuffer struct {
	text string
}

func (b *scalarBuffer) kind() Kind   { return KindScalar }
func (b *scalarBuffer) empty() bool  { return strings.TrimSpace(b.text) == "" }
func (b *scalarBuffer) value() Value { return ScalarValue(b.text) }

type listBuffer struct {
	tags []string
}

func (b *listBuffer) kind() Kind  { return KindList }
func (b *listBuffer) empty() bool { return len(b.tags) == 0 }
func (b *listBuffer) value() Value {
	out := make([]string, len(b.tags))
	copy(out, b.tags)
	return ListValue(out)
}

// Editor loads, edits, and commits the prompt variables of the selected
// context. An edit is always scoped to one context; selection changes
// reset the editor to idle.
type Editor struct {
	client *api.Client
	sess   *session.Store

	mu        sync.Mutex
	state     State
	variables []Variable
	editName  string
	buffer    editBuffer
}

// NewEditor creates an editor bound to the session store. It subscribes to
// selection changes and drops all local state whenever the selection moves.
func NewEditor(client *api.Client, sess *session.Store) *Editor {
	e := &Editor{client: client, sess: sess}
	sess.Subscribe(func(string) { e.reset() })
	return e
}

// reset returns the editor to idle, discarding variables and any edit.
func (e *Editor) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateIdle
	e.variables = nil
	e.editName = ""
	e.buffer = nil
}

// State reports the editor's current lifecycle state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Variables returns a copy of the loaded variables.
func (e *Editor) Variables() []Variable {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Variable, len(e.variables))
	copy(out, e.variables)
	return out
}

// Load fetches the selected context's variables, replacing any in-progress
// edit. A response that arrives after the selection moved is discarded.
func (e *Editor) Load(ctx context.Context) error {
	contextID := e.sess.Selected()
	if contextID == "" {
		e.reset()
		return session.ErrNoSelection
	}

	raw, err := e.client.GetPromptVariables(ctx, contextID)
	if err != nil {
		return fmt.Errorf("failed to load prompt variables: %w", err)
	}
	if e.sess.Selected() != contextID {
		return ErrContextChanged
	}

	vars := make([]Variable, 0, len(raw))
	for _, rv := range raw {
		v, err := decodeVariable(rv)
		if err != nil {
			return err
		}
		vars = append(vars, v)
	}

	e.mu.Lock()
	e.state = StateLoaded
	e.variables = vars
	e.editName = ""
	e.buffer = nil
	e.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Prompt variables loaded.", "context_id", contextID, "count", len(vars))
	return nil
}

// SelectVariable seeds the edit buffer from the named variable's current
// value. The buffer shape follows the variable's kind.
func (e *Editor) SelectVariable(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateIdle {
		return errors.New("no variables loaded")
	}
	for _, v := range e.variables {
		if v.Name != name {
			continue
		}
		switch tv := v.Value.(type) {
		case ScalarValue:
			e.buffer = &scalarBuffer{text: string(tv)}
		case ListValue:
			tags := make([]string, len(tv))
			copy(tags, tv)
			e.buffer = &listBuffer{tags: tags}
		}
		e.editName = name
		e.state = StateEditing
		return nil
	}
	return fmt.Errorf("unknown variable %q", name)
}

// Editing reports the name of the variable being edited, if any.
func (e *Editor) Editing() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editName, e.buffer != nil
}

// EditValue returns the buffer's current typed value.
func (e *Editor) EditValue() (Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buffer == nil {
		return nil, false
	}
	return e.buffer.value(), true
}

// SetScalar replaces the scalar edit text. It is only valid while a
// scalar-kind variable is being edited.
func (e *Editor) SetScalar(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, ok := e.buffer.(*scalarBuffer)
	if !ok {
		return errors.New("no scalar variable is being edited")
	}
	buf.text = text
	return nil
}

// AddTag appends a tag to a list-kind edit buffer. The text is trimmed;
// blank or already-present entries (case-sensitive) are silently ignored,
// preserving insertion order for everything else.
func (e *Editor) AddTag(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, ok := e.buffer.(*listBuffer)
	if !ok {
		return errors.New("no list variable is being edited")
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	for _, tag := range buf.tags {
		if tag == trimmed {
			return nil
		}
	}
	buf.tags = append(buf.tags, trimmed)
	return nil
}

// RemoveTag removes the tag at position i. An out-of-range index is a
// no-op; the normal UI never produces one.
func (e *Editor) RemoveTag(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf, ok := e.buffer.(*listBuffer)
	if !ok {
		return errors.New("no list variable is being edited")
	}
	if i < 0 || i >= len(buf.tags) {
		return nil
	}
	buf.tags = append(buf.tags[:i], buf.tags[i+1:]...)
	return nil
}

// CanCommit reports whether the edit buffer holds something submittable: a
// non-blank scalar or at least one tag.
func (e *Editor) CanCommit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer != nil && !e.buffer.empty()
}

// Commit submits the edit buffer. On success the local variable takes the
// buffer's value and the server's message is returned. On failure the
// buffer is kept intact so the user can retry.
func (e *Editor) Commit(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.buffer == nil || e.buffer.empty() {
		e.mu.Unlock()
		return "", errors.New("nothing to commit")
	}
	contextID := e.sess.Selected()
	name := e.editName
	kind := e.buffer.kind()
	committed := e.buffer.value()
	e.state = StateCommitting
	e.mu.Unlock()

	if contextID == "" {
		return "", session.ErrNoSelection
	}

	message, err := e.client.UpdatePrompt(ctx, contextID, name, kind.String(), wireValue(committed))
	if e.sess.Selected() != contextID {
		// The editor was reset by the selection change; drop the outcome.
		return "", ErrContextChanged
	}
	if err != nil {
		e.mu.Lock()
		e.state = StateEditing
		e.mu.Unlock()
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return "", fmt.Errorf("failed to update variable: %s", apiErr.Detail)
		}
		return "", errors.New("failed to update variable, please try again")
	}

	e.mu.Lock()
	for i := range e.variables {
		if e.variables[i].Name == name {
			e.variables[i].Value = committed
			break
		}
	}
	e.state = StateLoaded
	e.editName = ""
	e.buffer = nil
	e.mu.Unlock()

	ctxlog.FromContext(ctx).Info("Prompt variable updated.", "context_id", contextID, "variable", name)
	if message == "" {
		message = fmt.Sprintf("Variable %s updated.", name)
	}
	return message, nil
}
