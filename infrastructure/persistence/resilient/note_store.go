// Package resilient decorates a note store with a circuit breaker, tracing
// and metrics.
package resilient

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/application/ports"
	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
	"github.com/gumnutdev/quick-notes/pkg/observability"
)

// BreakerConfig holds configuration for the circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used in production.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// NoteStore wraps another ports.NoteStore.
type NoteStore struct {
	next    ports.NoteStore
	breaker *gobreaker.CircuitBreaker
	tracer  *observability.Tracer
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewNoteStore decorates next. tracer and metrics may be nil.
func NewNoteStore(next ports.NoteStore, cfg BreakerConfig, tracer *observability.Tracer, metrics *observability.Collector, logger *zap.Logger) *NoteStore {
	s := &NoteStore{next: next, tracer: tracer, metrics: metrics, logger: logger}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.SetBreakerState(name, float64(to))
		},
		// Only backend failures count against the breaker; a missing note
		// or a rejected write is a healthy answer.
		IsSuccessful: func(err error) bool {
			return err == nil || !pkgerrors.IsUnavailable(err)
		},
	})
	return s
}

// State exposes the breaker state for readiness checks.
func (s *NoteStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *NoteStore) List(ctx context.Context) ([]entities.Note, error) {
	return execute(s, ctx, "list", "", func(ctx context.Context) ([]entities.Note, error) {
		return s.next.List(ctx)
	})
}

func (s *NoteStore) Get(ctx context.Context, id string) (entities.Note, error) {
	return execute(s, ctx, "get", id, func(ctx context.Context) (entities.Note, error) {
		return s.next.Get(ctx, id)
	})
}

func (s *NoteStore) Upsert(ctx context.Context, note entities.Note) error {
	_, err := execute(s, ctx, "upsert", note.ID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.next.Upsert(ctx, note)
	})
	return err
}

func (s *NoteStore) Delete(ctx context.Context, id string) error {
	_, err := execute(s, ctx, "delete", id, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.next.Delete(ctx, id)
	})
	return err
}

// Ping bypasses the breaker so readiness reflects the backend itself.
func (s *NoteStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// execute runs fn through the breaker inside a store subsegment annotated
// with noteID, which is empty for whole-collection calls.
func execute[T any](s *NoteStore, ctx context.Context, op, noteID string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	start := time.Now()

	err := s.tracer.TraceFunction(ctx, "store."+op, func(ctx context.Context) error {
		if noteID != "" {
			s.tracer.AddAnnotation(ctx, "note_id", noteID)
		}
		s.tracer.AddMetadata(ctx, "breaker_state", s.breaker.State().String())
		out, err := s.breaker.Execute(func() (interface{}, error) {
			return fn(ctx)
		})
		if out != nil {
			result = out.(T)
		}
		return err
	})
	s.metrics.ObserveStore(op, time.Since(start), err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Warn("note store call rejected by circuit breaker",
			zap.String("operation", op),
			zap.Error(err))
		return result, pkgerrors.NewUnavailableError("note store", err)
	}
	return result, err
}
