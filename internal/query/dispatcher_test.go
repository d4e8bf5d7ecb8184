package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzt1001/lightrag-on-aws/internal/api"
	"github.com/wzt1001/lightrag-on-aws/internal/session"
	"github.com/wzt1001/lightrag-on-aws/internal/testutil"
)

func newDispatcher(t *testing.T) (*Dispatcher, *session.Store, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(t)
	seeded := backend.AddContext("dickens")
	store := session.New(backend.Client())
	store.Load(context.Background())
	dispatcher := NewDispatcher(backend.Client(), store)
	store.Select(seeded.ID)
	return dispatcher, store, backend
}

func TestDispatcher_Submit_PopulatesAllModesDefaultHybrid(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dispatcher, _, backend := newDispatcher(t)
	backend.QueryData = api.QueryResult{Naive: "A", Local: "B", Global: "C", Hybrid: "D"}

	// --- Act ---
	err := dispatcher.Submit(context.Background(), "top themes?")

	// --- Assert ---
	require.NoError(t, err)
	result, ok := dispatcher.Result()
	require.True(t, ok)
	assert.Equal(t, "A", result.Naive)
	assert.Equal(t, "B", result.Local)
	assert.Equal(t, "C", result.Global)
	assert.Equal(t, "D", result.Hybrid)

	require.Equal(t, ModeHybrid, dispatcher.Tab(), "hybrid is the default visible tab")
	text, ok := dispatcher.Active()
	require.True(t, ok)
	require.Equal(t, "D", text)
}

func TestDispatcher_Submit_LogicalFailureClearsPreviousResults(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dispatcher, _, backend := newDispatcher(t)
	backend.QueryData = api.QueryResult{Hybrid: "old answer"}
	require.NoError(t, dispatcher.Submit(context.Background(), "first"))

	backend.QueryStatus = "error"
	backend.QueryMessage = "context has no content"

	// --- Act ---
	err := dispatcher.Submit(context.Background(), "second")

	// --- Assert ---
	require.ErrorContains(t, err, "context has no content")
	_, ok := dispatcher.Result()
	require.False(t, ok, "results from a previous query must never survive a failure")
}

func TestDispatcher_Submit_BlankQueryRejectedLocally(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dispatcher, _, _ := newDispatcher(t)

	// --- Act ---
	err := dispatcher.Submit(context.Background(), "   ")

	// --- Assert ---
	require.Error(t, err)
}

func TestDispatcher_SelectTab_IsIndependentOfResults(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dispatcher, _, _ := newDispatcher(t)

	// --- Act ---
	err := dispatcher.SelectTab(ModeNaive)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, ModeNaive, dispatcher.Tab())
	require.Error(t, dispatcher.SelectTab(Mode("bogus")))
}

func TestDispatcher_Submit_DiscardsResponseWhenSelectionMoves(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dispatcher, store, backend := newDispatcher(t)
	backend.QueryData = api.QueryResult{Hybrid: "answer for the old context"}
	other := backend.AddContext("melville")
	// Move the selection while the query is in flight.
	backend.OnQuery = func() { store.Select(other.ID) }

	// --- Act ---
	err := dispatcher.Submit(context.Background(), "themes?")

	// --- Assert ---
	require.ErrorIs(t, err, ErrContextChanged)
	_, ok := dispatcher.Result()
	require.False(t, ok, "a response for a stale selection must never be installed")
}

func TestDispatcher_SelectionChangeClearsResults(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dispatcher, store, backend := newDispatcher(t)
	backend.QueryData = api.QueryResult{Hybrid: "answer"}
	require.NoError(t, dispatcher.Submit(context.Background(), "themes?"))
	require.NoError(t, dispatcher.SelectTab(ModeLocal))

	// --- Act ---
	store.Select("")

	// --- Assert ---
	_, ok := dispatcher.Result()
	require.False(t, ok)
	require.Equal(t, ModeHybrid, dispatcher.Tab(), "tab returns to its default with the initial empty state")
}
