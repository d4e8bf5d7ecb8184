package variables

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzt1001/lightrag-on-aws/internal/session"
	"github.com/wzt1001/lightrag-on-aws/internal/testutil"
)

// newLoadedEditor seeds a backend with one scalar and one list variable,
// selects the context, and loads the editor.
func newLoadedEditor(t *testing.T) (*Editor, *session.Store, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(t)
	seeded := backend.AddContext("dickens")
	backend.SetVariables(seeded.ID, map[string]any{
		"entity_types": []string{"person", "place"},
		"tone":         "formal",
	})

	store := session.New(backend.Client())
	store.Load(context.Background())
	editor := NewEditor(backend.Client(), store)
	store.Select(seeded.ID)
	require.NoError(t, editor.Load(context.Background()))
	return editor, store, backend
}

func TestEditor_Load_RequiresSelection(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	backend := testutil.NewBackend(t)
	store := session.New(backend.Client())
	editor := NewEditor(backend.Client(), store)

	// --- Act ---
	err := editor.Load(context.Background())

	// --- Assert ---
	require.ErrorIs(t, err, session.ErrNoSelection)
	require.Equal(t, StateIdle, editor.State())
}

func TestEditor_SelectVariable_SeedsBufferByKind(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	editor, _, _ := newLoadedEditor(t)

	// --- Act ---
	require.NoError(t, editor.SelectVariable("entity_types"))

	// --- Assert ---
	value, ok := editor.EditValue()
	require.True(t, ok)
	require.Equal(t, ListValue{"person", "place"}, value)
	require.Equal(t, StateEditing, editor.State())

	// A scalar variable seeds a scalar buffer instead.
	require.NoError(t, editor.SelectVariable("tone"))
	value, ok = editor.EditValue()
	require.True(t, ok)
	require.Equal(t, ScalarValue("formal"), value)
}

func TestEditor_AddTag_IgnoresBlankAndDuplicates(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	editor, _, _ := newLoadedEditor(t)
	require.NoError(t, editor.SelectVariable("entity_types"))

	// --- Act ---
	require.NoError(t, editor.AddTag("  event  "))
	require.NoError(t, editor.AddTag("   "))
	require.NoError(t, editor.AddTag("person"))
	require.NoError(t, editor.AddTag("Person"))

	// --- Assert ---
	value, _ := editor.EditValue()
	// Trimmed append, blank dropped, exact duplicate dropped, different
	// case kept, insertion order preserved.
	assert.Equal(t, ListValue{"person", "place", "event", "Person"}, value)
}

func TestEditor_RemoveTag_OutOfRangeIsNoOp(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	editor, _, _ := newLoadedEditor(t)
	require.NoError(t, editor.SelectVariable("entity_types"))

	// --- Act ---
	require.NoError(t, editor.RemoveTag(5))
	require.NoError(t, editor.RemoveTag(-1))
	require.NoError(t, editor.RemoveTag(0))

	// --- Assert ---
	value, _ := editor.EditValue()
	assert.Equal(t, ListValue{"place"}, value)
}

func TestEditor_Commit_UpdatesLocalValue(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	editor, _, _ := newLoadedEditor(t)
	require.NoError(t, editor.SelectVariable("tone"))
	require.NoError(t, editor.SetScalar("casual"))

	// --- Act ---
	message, err := editor.Commit(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "Prompt updated.", message)
	require.Equal(t, StateLoaded, editor.State())
	for _, v := range editor.Variables() {
		if v.Name == "tone" {
			require.Equal(t, ScalarValue("casual"), v.Value)
		}
	}
}

func TestEditor_Commit_FailureKeepsBufferForRetry(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	editor, _, backend := newLoadedEditor(t)
	require.NoError(t, editor.SelectVariable("tone"))
	require.NoError(t, editor.SetScalar("casual"))
	// Drop the variable server-side so the update fails.
	backend.SetVariables("ctx-1", map[string]any{})

	// --- Act ---
	_, err := editor.Commit(context.Background())

	// --- Assert ---
	require.ErrorContains(t, err, "unknown variable")
	require.Equal(t, StateEditing, editor.State(), "a failed commit must preserve the edit")
	value, ok := editor.EditValue()
	require.True(t, ok)
	require.Equal(t, ScalarValue("casual"), value)
}

func TestEditor_Commit_EmptyBufferRejected(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	editor, _, _ := newLoadedEditor(t)
	require.NoError(t, editor.SelectVariable("tone"))
	require.NoError(t, editor.SetScalar("   "))

	// --- Act ---
	_, err := editor.Commit(context.Background())

	// --- Assert ---
	require.Error(t, err)
	require.False(t, editor.CanCommit())
}

func TestEditor_SelectionChangeResetsEdit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	editor, store, _ := newLoadedEditor(t)
	require.NoError(t, editor.SelectVariable("entity_types"))
	require.NoError(t, editor.AddTag("event"))

	// --- Act ---
	store.Select("")

	// --- Assert ---
	require.Equal(t, StateIdle, editor.State())
	require.Empty(t, editor.Variables())
	_, editing := editor.Editing()
	require.False(t, editing, "an edit is always scoped to one context")
}
