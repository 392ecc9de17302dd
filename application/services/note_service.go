package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/application/ports"
	"github.com/gumnutdev/quick-notes/domain/config"
	"github.com/gumnutdev/quick-notes/domain/core/entities"
	"github.com/gumnutdev/quick-notes/domain/events"
	"github.com/gumnutdev/quick-notes/domain/graph"
	"github.com/gumnutdev/quick-notes/domain/links"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
	"github.com/gumnutdev/quick-notes/pkg/observability"
	"github.com/gumnutdev/quick-notes/pkg/utils"
)

// CollectionCacheKey is the cache entry holding the serialized note list.
const CollectionCacheKey = "notes:all"

// NoteService is the server side of the note store: it validates and
// normalizes notes, keeps the collection cache coherent and raises domain
// events after successful writes.
type NoteService struct {
	store     ports.NoteStore
	cache     ports.Cache
	publisher ports.EventPublisher
	config    *config.DomainConfig
	metrics   *observability.Collector
	logger    *zap.Logger

	clock utils.Clock
	newID func() string

	// generation is bumped by every invalidation. A list read from the
	// store is cached only if no invalidation happened meanwhile.
	generation atomic.Uint64
}

// Option customizes a NoteService.
type Option func(*NoteService)

// WithClock replaces the time source.
func WithClock(clock utils.Clock) Option {
	return func(s *NoteService) { s.clock = clock }
}

// WithIDGenerator replaces the uuid generator used by Create.
func WithIDGenerator(fn func() string) Option {
	return func(s *NoteService) { s.newID = fn }
}

// WithMetrics records note and cache metrics on c.
func WithMetrics(c *observability.Collector) Option {
	return func(s *NoteService) { s.metrics = c }
}

// NewNoteService creates a new note service. cache and publisher may be nil.
func NewNoteService(
	store ports.NoteStore,
	cache ports.Cache,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	logger *zap.Logger,
	opts ...Option,
) *NoteService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	s := &NoteService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
		clock:     utils.SystemClock,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GraphView is a materialized graph with its summary.
type GraphView struct {
	Graph graph.Graph
	Stats graph.Stats
}

// List returns every note, most recently modified first.
func (s *NoteService) List(ctx context.Context) ([]entities.Note, error) {
	if notes, ok := s.cachedNotes(ctx); ok {
		return notes, nil
	}

	gen := s.generation.Load()
	notes, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	s.storeCache(ctx, gen, notes)
	return notes, nil
}

// Search returns the notes whose title, content or category contains
// query, ignoring case. The list order is kept.
func (s *NoteService) Search(ctx context.Context, query string) ([]entities.Note, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return links.Filter(notes, query), nil
}

// Get returns a single note.
func (s *NoteService) Get(ctx context.Context, id string) (entities.Note, error) {
	if strings.TrimSpace(id) == "" {
		return entities.Note{}, pkgerrors.NewValidationError("note id is required")
	}
	return s.store.Get(ctx, id)
}

// Save creates or overwrites a note. It reports whether the note is new.
//
// Zero mood, priority and status get the defaults of a new note and
// duplicate links collapse to one. A stored note keeps its created date.
func (s *NoteService) Save(ctx context.Context, note entities.Note) (entities.Note, bool, error) {
	n := note.WithDefaults(s.config)
	if err := n.ValidateWithConfig(s.config); err != nil {
		return entities.Note{}, false, err
	}

	now := s.clock()
	if n.ModifiedDate.IsZero() {
		n.ModifiedDate = now
	}

	created := false
	existing, err := s.store.Get(ctx, n.ID)
	switch {
	case err == nil:
		n.CreatedDate = existing.CreatedDate
	case pkgerrors.IsNotFound(err):
		created = true
		if n.CreatedDate.IsZero() {
			n.CreatedDate = n.ModifiedDate
		}
	default:
		return entities.Note{}, false, err
	}

	if err := s.store.Upsert(ctx, n); err != nil {
		s.logger.Error("Failed to save note", zap.String("noteID", n.ID), zap.Error(err))
		return entities.Note{}, false, err
	}
	s.invalidate(ctx)
	s.metrics.NoteSaved(created)
	s.publish(ctx, events.NewNoteSaved(n.ID, n.Title, created, n.LinkedNotes, now))

	s.logger.Debug("Note saved",
		zap.String("noteID", n.ID),
		zap.Bool("created", created),
		zap.Int("links", len(n.LinkedNotes)),
	)
	return n, created, nil
}

// Create stores a new note built from draft. The id is generated and any
// zero field takes the new-note default.
func (s *NoteService) Create(ctx context.Context, draft entities.Note) (entities.Note, error) {
	now := s.clock()
	n := entities.NewNoteWithConfig(s.newID(), now, s.config)
	if strings.TrimSpace(draft.Title) != "" {
		n.Title = draft.Title
	}
	n.Content = draft.Content
	n.Category = draft.Category
	if draft.Mood != 0 {
		n.Mood = draft.Mood
	}
	if draft.Priority != "" {
		n.Priority = draft.Priority
	}
	if draft.Status != "" {
		n.Status = draft.Status
	}
	if len(draft.LinkedNotes) > 0 {
		n.LinkedNotes = append([]string{}, draft.LinkedNotes...)
	}

	saved, _, err := s.Save(ctx, n)
	return saved, err
}

// Delete removes a note and every link to or from it.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.NewValidationError("note id is required")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.metrics.NoteDeleted()
	s.publish(ctx, events.NewNoteDeleted(id, s.clock()))

	s.logger.Debug("Note deleted", zap.String("noteID", id))
	return nil
}

// Connect draws a link from source to target and stores the source note
// with a fresh modified date. Both endpoints are read from the store, never
// from the collection cache, so a newer edit of the source is not lost.
func (s *NoteService) Connect(ctx context.Context, sourceID, targetID string) (entities.Note, error) {
	ids := []string{sourceID}
	if targetID != sourceID {
		ids = append(ids, targetID)
	}
	endpoints := make([]entities.Note, 0, len(ids))
	for _, id := range ids {
		n, err := s.store.Get(ctx, id)
		switch {
		case err == nil:
			endpoints = append(endpoints, n)
		case pkgerrors.IsNotFound(err):
		default:
			return entities.Note{}, err
		}
	}
	updated, err := graph.ConnectWithConfig(sourceID, targetID, endpoints, s.config)
	if err != nil {
		return entities.Note{}, err
	}
	return s.writeLink(ctx, updated.Touch(s.clock()), targetID)
}

// Link adds target to the note's links. Linking an already linked target
// returns the note unchanged.
func (s *NoteService) Link(ctx context.Context, id, targetID string) (entities.Note, error) {
	if id == targetID && !s.config.AllowSelfLinks {
		return entities.Note{}, pkgerrors.NewValidationError("a note cannot link to itself")
	}
	note, err := s.store.Get(ctx, id)
	if err != nil {
		return entities.Note{}, err
	}
	if _, err := s.store.Get(ctx, targetID); err != nil {
		if pkgerrors.IsNotFound(err) {
			return entities.Note{}, pkgerrors.NewNotFoundError("Target note")
		}
		return entities.Note{}, err
	}
	if note.HasLink(targetID) {
		return note, nil
	}

	updated := note.Touch(s.clock())
	updated.LinkedNotes = links.Add(note.LinkedNotes, targetID)
	if err := updated.ValidateWithConfig(s.config); err != nil {
		return entities.Note{}, err
	}
	return s.writeLink(ctx, updated, targetID)
}

// Unlink removes target from the note's links. Removing a link that does
// not exist returns the note unchanged.
func (s *NoteService) Unlink(ctx context.Context, id, targetID string) (entities.Note, error) {
	note, err := s.store.Get(ctx, id)
	if err != nil {
		return entities.Note{}, err
	}
	if !note.HasLink(targetID) {
		return note, nil
	}

	updated := note.Touch(s.clock())
	updated.LinkedNotes = links.Remove(note.LinkedNotes, targetID)
	if err := s.store.Upsert(ctx, updated); err != nil {
		return entities.Note{}, err
	}
	s.invalidate(ctx)
	s.publish(ctx, events.NewNoteSaved(updated.ID, updated.Title, false, updated.LinkedNotes, updated.ModifiedDate))
	return updated, nil
}

// Candidates lists the notes id could still link to.
func (s *NoteService) Candidates(ctx context.Context, id string) ([]entities.NoteLink, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	note, ok := graph.Find(notes, id)
	if !ok {
		return nil, pkgerrors.NewNotFoundError("Note")
	}
	return links.Candidates(note, notes), nil
}

// Graph materializes the collection, optionally narrowed by a search query,
// with activeID marked.
func (s *NoteService) Graph(ctx context.Context, activeID, query string) (GraphView, error) {
	notes, err := s.Search(ctx, query)
	if err != nil {
		return GraphView{}, err
	}
	g := graph.MaterializeWithConfig(notes, activeID, s.config)
	return GraphView{Graph: g, Stats: graph.ComputeStats(g)}, nil
}

// Ping checks the note store.
func (s *NoteService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *NoteService) writeLink(ctx context.Context, updated entities.Note, targetID string) (entities.Note, error) {
	if err := s.store.Upsert(ctx, updated); err != nil {
		s.logger.Error("Failed to store link",
			zap.String("sourceID", updated.ID),
			zap.String("targetID", targetID),
			zap.Error(err),
		)
		return entities.Note{}, err
	}
	s.invalidate(ctx)
	s.metrics.LinkCreated()
	s.publish(ctx, events.NewNotesLinked(updated.ID, targetID, updated.ModifiedDate))
	return updated, nil
}

func (s *NoteService) cachedNotes(ctx context.Context) ([]entities.Note, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok := s.cache.Get(ctx, CollectionCacheKey)
	s.metrics.CacheLookup(ok)
	if !ok {
		return nil, false
	}
	var notes []entities.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		s.logger.Warn("Discarding unreadable cache entry", zap.Error(err))
		return nil, false
	}
	for i := range notes {
		if notes[i].LinkedNotes == nil {
			notes[i].LinkedNotes = []string{}
		}
	}
	return notes, true
}

// storeCache caches notes read at generation gen. An invalidation that
// lands between the check and the write is caught by the second check.
func (s *NoteService) storeCache(ctx context.Context, gen uint64, notes []entities.Note) {
	if s.cache == nil || s.generation.Load() != gen {
		return
	}
	data, err := json.Marshal(notes)
	if err != nil {
		s.logger.Warn("Failed to encode note collection", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, CollectionCacheKey, data, 0); err != nil {
		s.logger.Warn("Failed to cache note collection", zap.Error(err))
		return
	}
	if s.generation.Load() != gen {
		s.deleteCache(ctx)
	}
}

func (s *NoteService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.generation.Add(1)
	s.deleteCache(ctx)
}

func (s *NoteService) deleteCache(ctx context.Context) {
	if err := s.cache.Delete(ctx, CollectionCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate note cache", zap.Error(err))
	}
}

// publish never fails the caller: the write already happened.
func (s *NoteService) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}
