package client

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/domain/config"
	"github.com/gumnutdev/quick-notes/domain/core/entities"
	"github.com/gumnutdev/quick-notes/domain/graph"
	"github.com/gumnutdev/quick-notes/domain/links"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
	"github.com/gumnutdev/quick-notes/pkg/utils"
)

// ErrStaleResponse is returned by Save when a newer save of the same note
// was issued while this one was in flight. The result must be ignored.
var ErrStaleResponse = errors.New("stale save response discarded")

// Workspace caches the note collection of one user session and tracks the
// active note. The cache is only dropped after a write succeeded, so a
// failed write leaves the previous collection in place.
//
// The mutex guards local state only and is never held across a request.
type Workspace struct {
	repo   Repository
	config *config.DomainConfig
	clock  utils.Clock
	newID  func() string
	logger *zap.Logger

	mu    sync.Mutex
	notes []entities.Note
	valid bool
	// epoch changes on every invalidation so a fetch that started before a
	// write does not repopulate the cache with old data.
	epoch uint64

	activeID   string
	generation uint64

	// tickets holds the newest save sequence issued per note id while a
	// save of that note is in flight.
	seq     uint64
	tickets map[string]uint64
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithClock replaces the time source used to stamp edits.
func WithClock(clock utils.Clock) WorkspaceOption {
	return func(w *Workspace) { w.clock = clock }
}

// WithIDGenerator replaces the id generator used by NewNote.
func WithIDGenerator(fn func() string) WorkspaceOption {
	return func(w *Workspace) { w.newID = fn }
}

// WithDomainConfig replaces the layout and link rules.
func WithDomainConfig(cfg *config.DomainConfig) WorkspaceOption {
	return func(w *Workspace) { w.config = cfg }
}

// WithWorkspaceLogger sets the logger.
func WithWorkspaceLogger(logger *zap.Logger) WorkspaceOption {
	return func(w *Workspace) { w.logger = logger }
}

// NewWorkspace creates an empty workspace backed by repo.
func NewWorkspace(repo Repository, opts ...WorkspaceOption) *Workspace {
	w := &Workspace{
		repo:    repo,
		config:  config.DefaultDomainConfig(),
		clock:   utils.SystemClock,
		newID:   uuid.NewString,
		logger:  zap.NewNop(),
		tickets: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Notes returns the collection, fetching it when the cache is invalid.
func (w *Workspace) Notes(ctx context.Context) ([]entities.Note, error) {
	w.mu.Lock()
	if w.valid {
		out := cloneAll(w.notes)
		w.mu.Unlock()
		return out, nil
	}
	epoch := w.epoch
	w.mu.Unlock()

	notes, err := w.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.epoch == epoch {
		w.notes = cloneAll(notes)
		w.valid = true
	}
	w.mu.Unlock()
	return cloneAll(notes), nil
}

// Search filters the collection by title, content and category.
func (w *Workspace) Search(ctx context.Context, query string) ([]entities.Note, error) {
	notes, err := w.Notes(ctx)
	if err != nil {
		return nil, err
	}
	return links.Filter(notes, query), nil
}

// Invalidate drops the cached collection.
func (w *Workspace) Invalidate() {
	w.mu.Lock()
	w.invalidateLocked()
	w.mu.Unlock()
}

func (w *Workspace) invalidateLocked() {
	w.valid = false
	w.notes = nil
	w.epoch++
}

// Load fetches the collection and selects the first note when nothing is
// selected yet.
func (w *Workspace) Load(ctx context.Context) ([]entities.Note, error) {
	gen := w.currentGeneration()
	notes, err := w.Notes(ctx)
	if err != nil {
		return nil, err
	}
	if len(notes) > 0 && w.ActiveID() == "" {
		w.selectIfCurrent(gen, notes[0].ID)
	}
	return notes, nil
}

// Select makes id the active note. An empty id clears the selection.
func (w *Workspace) Select(id string) {
	w.mu.Lock()
	w.activeID = id
	w.generation++
	w.mu.Unlock()
}

// ActiveID returns the id of the active note, or "".
func (w *Workspace) ActiveID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activeID
}

// Active returns the active note from the collection. ok is false when
// nothing is selected or the selection no longer exists.
func (w *Workspace) Active(ctx context.Context) (entities.Note, bool, error) {
	id := w.ActiveID()
	if id == "" {
		return entities.Note{}, false, nil
	}
	notes, err := w.Notes(ctx)
	if err != nil {
		return entities.Note{}, false, err
	}
	n, ok := graph.Find(notes, id)
	return n, ok, nil
}

func (w *Workspace) currentGeneration() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

// selectIfCurrent applies a selection computed from a request that started
// at generation gen, unless the user selected something since.
func (w *Workspace) selectIfCurrent(gen uint64, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.generation != gen {
		return false
	}
	w.activeID = id
	w.generation++
	return true
}

// Save persists note. When another save of the same note was issued after
// this one, the response is discarded and ErrStaleResponse returned; the
// cache is dropped either way because the store changed.
func (w *Workspace) Save(ctx context.Context, note entities.Note) (entities.Note, error) {
	w.mu.Lock()
	w.seq++
	ticket := w.seq
	w.tickets[note.ID] = ticket
	w.mu.Unlock()

	saved, err := w.repo.Save(ctx, note)

	w.mu.Lock()
	defer w.mu.Unlock()
	// An entry is removed by the newest save of a note when it finishes, so
	// a missing entry means a later save has already completed.
	latest, pending := w.tickets[note.ID]
	if ticket == latest {
		delete(w.tickets, note.ID)
	}
	if err != nil {
		return entities.Note{}, err
	}
	w.invalidateLocked()
	if !pending || ticket < latest {
		w.logger.Debug("Discarding stale save response",
			zap.String("noteID", note.ID),
			zap.Uint64("ticket", ticket),
			zap.Uint64("latest", latest),
		)
		return entities.Note{}, ErrStaleResponse
	}
	return saved, nil
}

// NewNote saves a note with the default fields and selects it.
func (w *Workspace) NewNote(ctx context.Context) (entities.Note, error) {
	gen := w.currentGeneration()
	n := entities.NewNoteWithConfig(w.newID(), w.clock(), w.config)
	saved, err := w.Save(ctx, n)
	if err != nil {
		return entities.Note{}, err
	}
	w.selectIfCurrent(gen, saved.ID)
	return saved, nil
}

// Delete removes a note. Deleting the active note selects the first
// remaining note, or nothing when the collection is empty.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	gen := w.currentGeneration()
	if err := w.repo.Delete(ctx, id); err != nil {
		return err
	}
	w.Invalidate()

	if w.ActiveID() != id {
		return nil
	}
	next := ""
	notes, err := w.Notes(ctx)
	if err != nil {
		// The delete happened; only the follow-up selection failed.
		w.logger.Warn("Failed to reload notes after delete", zap.Error(err))
	} else if len(notes) > 0 {
		next = notes[0].ID
	}
	w.selectIfCurrent(gen, next)
	return nil
}

// Connect links source to target using the cached collection and saves
// the source note.
func (w *Workspace) Connect(ctx context.Context, sourceID, targetID string) (entities.Note, error) {
	notes, err := w.Notes(ctx)
	if err != nil {
		return entities.Note{}, err
	}
	updated, err := graph.ConnectWithConfig(sourceID, targetID, notes, w.config)
	if err != nil {
		return entities.Note{}, err
	}
	return w.Save(ctx, updated.Touch(w.clock()))
}

// Link adds target to the note's links. Adding a link that exists already
// is a no-op that returns the note unchanged.
func (w *Workspace) Link(ctx context.Context, id, targetID string) (entities.Note, error) {
	if id == targetID && !w.config.AllowSelfLinks {
		return entities.Note{}, pkgerrors.NewValidationError("a note cannot link to itself")
	}
	notes, err := w.Notes(ctx)
	if err != nil {
		return entities.Note{}, err
	}
	note, ok := graph.Find(notes, id)
	if !ok {
		return entities.Note{}, pkgerrors.NewNotFoundError("Note")
	}
	if _, ok := graph.Find(notes, targetID); !ok {
		return entities.Note{}, pkgerrors.NewNotFoundError("Target note")
	}
	if note.HasLink(targetID) {
		return note, nil
	}

	updated := note.Touch(w.clock())
	updated.LinkedNotes = links.Add(note.LinkedNotes, targetID)
	return w.Save(ctx, updated)
}

// Unlink removes target from the note's links.
func (w *Workspace) Unlink(ctx context.Context, id, targetID string) (entities.Note, error) {
	notes, err := w.Notes(ctx)
	if err != nil {
		return entities.Note{}, err
	}
	note, ok := graph.Find(notes, id)
	if !ok {
		return entities.Note{}, pkgerrors.NewNotFoundError("Note")
	}
	if !note.HasLink(targetID) {
		return note, nil
	}

	updated := note.Touch(w.clock())
	updated.LinkedNotes = links.Remove(note.LinkedNotes, targetID)
	return w.Save(ctx, updated)
}

// Candidates lists the notes id could still link to.
func (w *Workspace) Candidates(ctx context.Context, id string) ([]entities.NoteLink, error) {
	notes, err := w.Notes(ctx)
	if err != nil {
		return nil, err
	}
	note, ok := graph.Find(notes, id)
	if !ok {
		return nil, pkgerrors.NewNotFoundError("Note")
	}
	return links.Candidates(note, notes), nil
}

// Graph materializes the cached collection with the active note marked.
func (w *Workspace) Graph(ctx context.Context) (graph.Graph, error) {
	notes, err := w.Notes(ctx)
	if err != nil {
		return graph.Graph{}, err
	}
	return graph.MaterializeWithConfig(notes, w.ActiveID(), w.config), nil
}

func cloneAll(notes []entities.Note) []entities.Note {
	out := make([]entities.Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}
