package graph

import (
	"github.com/gumnutdev/quick-notes/domain/config"
	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

// Connect returns a copy of the source note with targetID appended to its
// links. The edge itself appears once the caller has persisted the note
// and re-materialized the collection.
//
// Self links are rejected, as is a target the source already links to.
func Connect(sourceID, targetID string, notes []entities.Note) (entities.Note, error) {
	return ConnectWithConfig(sourceID, targetID, notes, config.DefaultDomainConfig())
}

// ConnectWithConfig is Connect with explicit link rules.
func ConnectWithConfig(sourceID, targetID string, notes []entities.Note, cfg *config.DomainConfig) (entities.Note, error) {
	if sourceID == targetID && !cfg.AllowSelfLinks {
		return entities.Note{}, pkgerrors.NewValidationError("a note cannot link to itself")
	}

	source, ok := Find(notes, sourceID)
	if !ok {
		return entities.Note{}, pkgerrors.NewNotFoundError("source note")
	}
	if _, ok := Find(notes, targetID); !ok {
		return entities.Note{}, pkgerrors.NewNotFoundError("target note")
	}
	if source.HasLink(targetID) {
		return entities.Note{}, pkgerrors.NewConflictError("link already exists")
	}

	out := source.Clone()
	out.LinkedNotes = append(out.LinkedNotes, targetID)
	return out, nil
}
