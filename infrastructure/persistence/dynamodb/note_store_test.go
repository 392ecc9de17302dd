package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestStore() (*NoteStore, *fakeAPI) {
	api := newFakeAPI()
	cfg := DefaultConfig("notes")
	cfg.RetryBackoff = time.Millisecond
	return NewNoteStore(api, cfg, zap.NewNop()), api
}

func mkNote(id string, modified time.Duration, links ...string) entities.Note {
	n := entities.NewNote(id, t0)
	n.Title = "note " + id
	n.Category = "cat"
	n.ModifiedDate = t0.Add(modified)
	n.LinkedNotes = append([]string{}, links...)
	return n
}

func TestNoteStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	n := mkNote("a", time.Minute, "c", "b")
	n.ModifiedDate = n.ModifiedDate.Add(123 * time.Millisecond)

	require.NoError(t, s.Upsert(ctx, n))
	got, err := s.Get(ctx, "a")

	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestNoteStore_GetUnknown(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.Get(context.Background(), "missing")

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestNoteStore_UnreadableItem(t *testing.T) {
	ctx := context.Background()
	s, api := newTestStore()
	require.NoError(t, s.Upsert(ctx, mkNote("a", time.Minute)))
	require.NoError(t, s.Upsert(ctx, mkNote("b", 2*time.Minute)))
	api.items[notePK("a")+"|"+metadataSK]["CreatedDate"] = &types.AttributeValueMemberS{Value: "yesterday"}

	_, err := s.Get(ctx, "a")
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeInternal, appErr.Type)
	assert.Equal(t, "stored note is unreadable: note a: bad CreatedDate", appErr.Message)

	notes, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "b", notes[0].ID)
}

func TestNoteStore_ListOrderAndLinks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	require.NoError(t, s.Upsert(ctx, mkNote("old", 0, "new")))
	require.NoError(t, s.Upsert(ctx, mkNote("new", 2*time.Hour, "old", "mid")))
	require.NoError(t, s.Upsert(ctx, mkNote("mid", 500*time.Millisecond)))

	notes, err := s.List(ctx)

	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{notes[0].ID, notes[1].ID, notes[2].ID})
	assert.Equal(t, []string{"old", "mid"}, notes[0].LinkedNotes)
	assert.Empty(t, notes[1].LinkedNotes)
	assert.Equal(t, []string{"new"}, notes[2].LinkedNotes)
}

func TestNoteStore_UpsertReplacesLinkSet(t *testing.T) {
	ctx := context.Background()
	s, api := newTestStore()
	require.NoError(t, s.Upsert(ctx, mkNote("a", 0, "b", "c", "d")))

	require.NoError(t, s.Upsert(ctx, mkNote("a", time.Minute, "d", "e")))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, got.LinkedNotes)
	_, stale := api.items["NOTE#a|LINK#b"]
	assert.False(t, stale)
}

func TestNoteStore_DeleteCascadesBothDirections(t *testing.T) {
	ctx := context.Background()
	s, api := newTestStore()
	require.NoError(t, s.Upsert(ctx, mkNote("A", 0, "B")))
	require.NoError(t, s.Upsert(ctx, mkNote("B", time.Second, "A")))
	require.NoError(t, s.Upsert(ctx, mkNote("C", 2*time.Second, "B", "A")))

	require.NoError(t, s.Delete(ctx, "B"))

	_, err := s.Get(ctx, "B")
	assert.True(t, pkgerrors.IsNotFound(err))

	notes, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	for _, n := range notes {
		assert.NotContains(t, n.LinkedNotes, "B")
	}
	for key := range api.items {
		assert.NotContains(t, key, "NOTE#B|")
		assert.NotContains(t, key, "LINK#B")
	}
}

func TestNoteStore_DeleteUnknown(t *testing.T) {
	s, _ := newTestStore()

	err := s.Delete(context.Background(), "ghost")

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestNoteStore_RetriesUnprocessedItems(t *testing.T) {
	ctx := context.Background()
	s, api := newTestStore()
	api.unprocessedOnce = true

	require.NoError(t, s.Upsert(ctx, mkNote("a", 0, "b", "c")))

	assert.Equal(t, 2, api.batchCalls)
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, got.LinkedNotes)
}

func TestNoteStore_LargeLinkSetIsChunked(t *testing.T) {
	ctx := context.Background()
	s, api := newTestStore()
	var links []string
	for i := 0; i < 60; i++ {
		links = append(links, fmt.Sprintf("t%02d", i))
	}

	require.NoError(t, s.Upsert(ctx, mkNote("a", 0, links...)))

	assert.Equal(t, 3, api.batchCalls)
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, links, got.LinkedNotes)
}

func TestNoteStore_BackendFailureIsUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"network", errors.New("connection reset"), pkgerrors.IsUnavailable},
		{"throttled", &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException"}, pkgerrors.IsUnavailable},
		{"missing table", &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, pkgerrors.IsUnavailable},
		{"bad request", &smithy.GenericAPIError{Code: "ValidationException"}, func(err error) bool {
			return pkgerrors.IsType(err, pkgerrors.ErrorTypeInternal)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, api := newTestStore()
			api.err = tt.err

			_, listErr := s.List(context.Background())
			pingErr := s.Ping(context.Background())

			assert.True(t, tt.check(listErr), "list: %v", listErr)
			assert.True(t, tt.check(pingErr), "ping: %v", pingErr)
		})
	}
}
