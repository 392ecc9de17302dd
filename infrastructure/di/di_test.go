package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	"github.com/gumnutdev/quick-notes/infrastructure/cache"
	"github.com/gumnutdev/quick-notes/infrastructure/config"
	"github.com/gumnutdev/quick-notes/infrastructure/messaging"
	"github.com/gumnutdev/quick-notes/infrastructure/persistence/resilient"
)

func TestInitializeContainer_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.EnableMetrics = true

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &resilient.NoteStore{}, container.Store)
	assert.IsType(t, &cache.MemoryCache{}, container.Cache)
	assert.IsType(t, &messaging.LogPublisher{}, container.Publisher)
	require.NotNil(t, container.Metrics)

	_, _, err = container.NoteService.Save(context.Background(), entities.Note{ID: "a", Title: "A"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	container.Router.Setup().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notes/a", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	container.Router.Setup().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProvideLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	level, err := ProvideLogLevel(cfg)
	require.NoError(t, err)
	assert.Equal(t, zap.WarnLevel, level.Level())

	cfg.LogLevel = "chatty"
	_, err = ProvideLogLevel(cfg)
	assert.Error(t, err)
}

func TestProvideNoteStore_Badger(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDriver = config.StoreBadger
	cfg.BadgerPath = filepath.Join(t.TempDir(), "notes")

	store, cleanup, err := ProvideNoteStore(cfg, aws.Config{}, nil, nil, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, entities.NewNote("a", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestProvideNoteStore_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDriver = "sqlite"
	_, _, err := ProvideNoteStore(cfg, aws.Config{}, nil, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestProvideCache(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		cfg := config.Default()
		cfg.CacheDriver = config.CacheNone
		c, cleanup, err := ProvideCache(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		defer cleanup()
		assert.IsType(t, cache.NoopCache{}, c)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.Default()
		cfg.CacheDriver = config.CacheRedis
		cfg.RedisURL = "redis://" + mr.Addr()
		c, cleanup, err := ProvideCache(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		defer cleanup()

		require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
		assert.True(t, mr.Exists("quick-notes:k"))
	})
}

func TestProvideEventPublisher(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, &messaging.LogPublisher{}, ProvideEventPublisher(cfg, aws.Config{}, zap.NewNop()))

	cfg.EnableEvents = true
	assert.IsType(t, &messaging.EventBridgePublisher{}, ProvideEventPublisher(cfg, aws.Config{Region: "us-west-2"}, zap.NewNop()))

	cfg.EnableEvents = false
	cfg.Environment = "production"
	assert.Nil(t, ProvideEventPublisher(cfg, aws.Config{}, zap.NewNop()))
}
