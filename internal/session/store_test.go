package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wzt1001/lightrag-on-aws/internal/api"
	"github.com/wzt1001/lightrag-on-aws/internal/testutil"
)

func TestStore_Load_FallsBackToEmptyOnTransportError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Point the client at a port nothing listens on.
	store := New(api.NewClient("http://127.0.0.1:1", 200*time.Millisecond))

	// --- Act ---
	store.Load(context.Background())

	// --- Assert ---
	require.Empty(t, store.List(), "a transport failure should degrade to an empty context list")
}

func TestStore_Create_AppendsWithoutSelecting(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	backend := testutil.NewBackend(t)
	store := New(backend.Client())

	// --- Act ---
	created, err := store.Create(context.Background(), "dickens", "")

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, store.List(), 1)
	require.Equal(t, created.ID, store.List()[0].ID)
	require.Empty(t, store.Selected(), "creation must leave the selection unchanged")
}

func TestStore_Create_RejectsEmptyName(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	backend := testutil.NewBackend(t)
	store := New(backend.Client())

	// --- Act ---
	_, err := store.Create(context.Background(), "", "")

	// --- Assert ---
	require.Error(t, err)
	require.Empty(t, store.List())
}

func TestStore_Select_NotifiesSubscribers(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	backend := testutil.NewBackend(t)
	seeded := backend.AddContext("dickens")
	store := New(backend.Client())
	store.Load(context.Background())

	var notified []string
	store.Subscribe(func(id string) { notified = append(notified, id) })

	// --- Act ---
	store.Select(seeded.ID)
	store.Select("")

	// --- Assert ---
	require.Equal(t, []string{seeded.ID, ""}, notified)
	require.Empty(t, store.Selected())
}

func TestStore_Delete_SelectedContextClearsSelection(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	backend := testutil.NewBackend(t)
	seeded := backend.AddContext("dickens")
	store := New(backend.Client())
	store.Load(context.Background())
	store.Select(seeded.ID)

	var cleared bool
	store.Subscribe(func(id string) { cleared = id == "" })

	// --- Act ---
	err := store.Delete(context.Background(), seeded.ID)

	// --- Assert ---
	require.NoError(t, err)
	require.Empty(t, store.List())
	require.Empty(t, store.Selected())
	require.True(t, cleared, "dependents must be told to clear their per-context state")
}

func TestStore_Delete_FailureLeavesListIntact(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	backend := testutil.NewBackend(t)
	seeded := backend.AddContext("dickens")
	backend.DeleteDetail = "context is busy indexing"
	store := New(backend.Client())
	store.Load(context.Background())
	store.Select(seeded.ID)

	// --- Act ---
	err := store.Delete(context.Background(), seeded.ID)

	// --- Assert ---
	require.ErrorContains(t, err, "context is busy indexing")
	require.Len(t, store.List(), 1)
	require.Equal(t, seeded.ID, store.Selected(), "failed deletion must not disturb the selection")
}
