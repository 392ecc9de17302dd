package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *NoteStore {
	t.Helper()
	s, err := Open(Options{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mkNote(id string, modified time.Duration, links ...string) entities.Note {
	n := entities.NewNote(id, t0)
	n.Title = "note " + id
	n.Content = "body of " + id
	n.ModifiedDate = t0.Add(modified)
	n.LinkedNotes = append([]string{}, links...)
	return n
}

func TestNoteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	n := mkNote("a", time.Minute, "c", "b")
	n.Priority = entities.PriorityHigh
	n.Status = entities.StatusInProgress
	n.Mood = 9

	require.NoError(t, s.Upsert(ctx, n))
	got, err := s.Get(ctx, "a")

	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestNoteStore_GetUnknown(t *testing.T) {
	_, err := openTestStore(t).Get(context.Background(), "nope")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestNoteStore_ListOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Upsert(ctx, mkNote("b", time.Hour, "a")))
	require.NoError(t, s.Upsert(ctx, mkNote("a", 0)))
	require.NoError(t, s.Upsert(ctx, mkNote("c", 2*time.Hour, "b", "a")))

	notes, err := s.List(ctx)

	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "c", notes[0].ID)
	assert.Equal(t, []string{"b", "a"}, notes[0].LinkedNotes)
	assert.Equal(t, "b", notes[1].ID)
	assert.Equal(t, "a", notes[2].ID)
	assert.Equal(t, []string{}, notes[2].LinkedNotes)
}

func TestNoteStore_EmptyList(t *testing.T) {
	notes, err := openTestStore(t).List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestNoteStore_UpsertReplacesLinks(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Upsert(ctx, mkNote("a", 0, "x", "y")))
	require.NoError(t, s.Upsert(ctx, mkNote("a", time.Second, "y", "z")))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z"}, got.LinkedNotes)

	// The dropped link's backlink must be gone too: adding and deleting x
	// must not touch a.
	require.NoError(t, s.Upsert(ctx, mkNote("x", 0)))
	require.NoError(t, s.Delete(ctx, "x"))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z"}, got.LinkedNotes)
}

func TestNoteStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Upsert(ctx, mkNote("A", 0, "B")))
	require.NoError(t, s.Upsert(ctx, mkNote("B", time.Second, "A", "C")))
	require.NoError(t, s.Upsert(ctx, mkNote("C", 2*time.Second, "A", "B")))

	require.NoError(t, s.Delete(ctx, "B"))

	notes, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	for _, n := range notes {
		assert.NotContains(t, n.LinkedNotes, "B")
	}
	c, err := s.Get(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, c.LinkedNotes)

	assert.True(t, pkgerrors.IsNotFound(s.Delete(ctx, "B")))
}

func TestNoteStore_PingAfterClose(t *testing.T) {
	s, err := Open(Options{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())

	assert.True(t, pkgerrors.IsUnavailable(s.Ping(context.Background())))
}
