package memory

import (
	"context"
	"sync"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

// NoteStore keeps notes in process memory. It backs local development and
// the service tests.
type NoteStore struct {
	mu    sync.RWMutex
	notes map[string]entities.Note
}

// NewNoteStore creates an empty store
func NewNoteStore() *NoteStore {
	return &NoteStore{notes: make(map[string]entities.Note)}
}

// List returns all notes, most recently modified first.
func (s *NoteStore) List(ctx context.Context) ([]entities.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n.Clone())
	}
	entities.SortByModifiedDesc(out)
	return out, nil
}

// Get returns a copy of the stored note.
func (s *NoteStore) Get(ctx context.Context, id string) (entities.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return entities.Note{}, pkgerrors.NewNotFoundError("Note")
	}
	return n.Clone(), nil
}

// Upsert stores note, replacing any previous version and its links.
func (s *NoteStore) Upsert(ctx context.Context, note entities.Note) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewUnavailableError("note store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes[note.ID] = note.Clone()
	return nil
}

// Delete removes the note and strips its id from every other note's links.
func (s *NoteStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewUnavailableError("note store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return pkgerrors.NewNotFoundError("Note")
	}
	delete(s.notes, id)

	for key, n := range s.notes {
		if !n.HasLink(id) {
			continue
		}
		kept := make([]string, 0, len(n.LinkedNotes))
		for _, target := range n.LinkedNotes {
			if target != id {
				kept = append(kept, target)
			}
		}
		n.LinkedNotes = kept
		s.notes[key] = n
	}
	return nil
}

// Ping always succeeds.
func (s *NoteStore) Ping(ctx context.Context) error {
	return nil
}
