package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector("quicknotes")

	c.NoteSaved(true)
	c.NoteSaved(false)
	c.NoteSaved(false)
	c.NoteDeleted()
	c.LinkCreated()
	c.CacheLookup(true)
	c.CacheLookup(false)
	c.ObserveStore("list", time.Millisecond, nil)
	c.ObserveStore("list", time.Millisecond, errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.NotesSaved.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.NotesSaved.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NotesDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LinksCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreOperations.WithLabelValues("list", "error")))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("quicknotes")
		NewCollector("quicknotes")
	})
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.NoteSaved(true)
		c.ObserveHTTP("GET", "/", 200, time.Second)
		c.SetBreakerState("store", 2)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("quicknotes")
	c.ObserveHTTP(http.MethodGet, "/api/notes", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quicknotes_http_requests_total")
}

func TestTracer_DisabledRunsFunction(t *testing.T) {
	called := false
	err := NewTracer("quicknotes", false).TraceFunction(context.Background(), "op", func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}

func TestTracer_NoSegmentRunsFunction(t *testing.T) {
	want := errors.New("boom")
	err := NewTracer("quicknotes", true).TraceFunction(context.Background(), "op", func(ctx context.Context) error {
		return want
	})

	assert.Equal(t, want, err)
}

func TestTracer_AnnotatesCurrentSegment(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "quicknotes-test")

	tracer := NewTracer("quicknotes", true)
	tracer.AddAnnotation(ctx, "note_id", "a")
	tracer.AddMetadata(ctx, "breaker_state", "closed")
	NewTracer("quicknotes", false).AddAnnotation(ctx, "skipped", "x")

	assert.Equal(t, "a", seg.Annotations["note_id"])
	assert.Equal(t, "closed", seg.Metadata["default"]["breaker_state"])
	assert.NotContains(t, seg.Annotations, "skipped")
}
