package resilient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	"github.com/gumnutdev/quick-notes/infrastructure/persistence/memory"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
	"github.com/gumnutdev/quick-notes/pkg/observability"
)

type MockNoteStore struct {
	mock.Mock
}

func (m *MockNoteStore) List(ctx context.Context) ([]entities.Note, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Note), args.Error(1)
}

func (m *MockNoteStore) Get(ctx context.Context, id string) (entities.Note, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entities.Note), args.Error(1)
}

func (m *MockNoteStore) Upsert(ctx context.Context, note entities.Note) error {
	return m.Called(ctx, note).Error(0)
}

func (m *MockNoteStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNoteStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func testConfig() BreakerConfig {
	cfg := DefaultBreakerConfig("note-store")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Hour
	return cfg
}

func TestNoteStore_PassesThrough(t *testing.T) {
	ctx := context.Background()
	s := NewNoteStore(memory.NewNoteStore(), testConfig(), nil, observability.NewCollector("test"), zap.NewNop())
	n := entities.NewNote("a", time.Now())

	require.NoError(t, s.Upsert(ctx, n))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	notes, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.True(t, pkgerrors.IsNotFound(s.Delete(ctx, "a")))
}

func TestNoteStore_NotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	store := new(MockNoteStore)
	store.On("Get", mock.Anything, "x").Return(entities.Note{}, pkgerrors.NewNotFoundError("Note"))
	s := NewNoteStore(store, testConfig(), nil, nil, zap.NewNop())

	for i := 0; i < 10; i++ {
		_, err := s.Get(ctx, "x")
		assert.True(t, pkgerrors.IsNotFound(err))
	}

	assert.Equal(t, gobreaker.StateClosed, s.State())
}

func TestNoteStore_TripsOnUnavailable(t *testing.T) {
	ctx := context.Background()
	store := new(MockNoteStore)
	down := pkgerrors.NewUnavailableError("note store", errors.New("connection refused"))
	store.On("List", mock.Anything).Return(nil, down).Times(3)
	store.On("Ping", mock.Anything).Return(nil)
	s := NewNoteStore(store, testConfig(), nil, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := s.List(ctx)
		assert.True(t, pkgerrors.IsUnavailable(err))
	}
	require.Equal(t, gobreaker.StateOpen, s.State())

	_, err := s.List(ctx)
	assert.True(t, pkgerrors.IsUnavailable(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	store.AssertNumberOfCalls(t, "List", 3)

	assert.NoError(t, s.Ping(ctx))
}
