package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

var base = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

func mkNote(id string, modified time.Duration, links ...string) entities.Note {
	n := entities.NewNote(id, base)
	n.Title = "title " + id
	n.ModifiedDate = base.Add(modified)
	n.LinkedNotes = links
	return n
}

func TestNoteStore_ListOrder(t *testing.T) {
	ctx := context.Background()
	s := NewNoteStore()
	require.NoError(t, s.Upsert(ctx, mkNote("old", 0)))
	require.NoError(t, s.Upsert(ctx, mkNote("new", 2*time.Hour)))
	require.NoError(t, s.Upsert(ctx, mkNote("mid", time.Hour)))

	notes, err := s.List(ctx)

	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "new", notes[0].ID)
	assert.Equal(t, "mid", notes[1].ID)
	assert.Equal(t, "old", notes[2].ID)
}

func TestNoteStore_UpsertReplacesLinks(t *testing.T) {
	ctx := context.Background()
	s := NewNoteStore()
	require.NoError(t, s.Upsert(ctx, mkNote("a", 0, "b", "c")))
	require.NoError(t, s.Upsert(ctx, mkNote("a", time.Minute, "d")))

	got, err := s.Get(ctx, "a")

	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, got.LinkedNotes)
}

func TestNoteStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewNoteStore()
	require.NoError(t, s.Upsert(ctx, mkNote("A", 0, "B")))
	require.NoError(t, s.Upsert(ctx, mkNote("B", 0, "A")))
	require.NoError(t, s.Upsert(ctx, mkNote("C", 0, "B", "A", "B")))

	require.NoError(t, s.Delete(ctx, "B"))

	_, err := s.Get(ctx, "B")
	assert.True(t, pkgerrors.IsNotFound(err))
	a, err := s.Get(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, a.LinkedNotes)
	c, err := s.Get(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, c.LinkedNotes)
}

func TestNoteStore_DeleteUnknown(t *testing.T) {
	err := NewNoteStore().Delete(context.Background(), "nope")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestNoteStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewNoteStore()
	require.NoError(t, s.Upsert(ctx, mkNote("a", 0, "b")))

	got, _ := s.Get(ctx, "a")
	got.LinkedNotes[0] = "mutated"

	again, _ := s.Get(ctx, "a")
	assert.Equal(t, []string{"b"}, again.LinkedNotes)
}
