package entities

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gumnutdev/quick-notes/domain/config"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

// Priority ranks a note.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status tracks how far along a note is.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusComplete:
		return true
	}
	return false
}

// ErrIDAndTitleRequired is the message returned when a note cannot be
// stored because it has no id or no title.
const ErrIDAndTitleRequired = "Note ID and title are required"

// Note is a titled document with metadata and outgoing links to other
// notes. LinkedNotes holds target note IDs; links are directed and owned by
// the source note.
type Note struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedDate  time.Time `json:"createdDate"`
	ModifiedDate time.Time `json:"modifiedDate"`
	Mood         int       `json:"mood"`
	Priority     Priority  `json:"priority"`
	Category     string    `json:"category"`
	Status       Status    `json:"status"`
	LinkedNotes  []string  `json:"linkedNotes"`
}

// NoteLink is the id and title pair offered when picking a link target.
type NoteLink struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NewNote returns a fresh note with the default field values and equal
// created and modified timestamps.
func NewNote(id string, now time.Time) Note {
	return NewNoteWithConfig(id, now, config.DefaultDomainConfig())
}

// NewNoteWithConfig is NewNote with explicit domain rules.
func NewNoteWithConfig(id string, now time.Time, cfg *config.DomainConfig) Note {
	return Note{
		ID:           id,
		Title:        cfg.DefaultTitle,
		Content:      "",
		CreatedDate:  now,
		ModifiedDate: now,
		Mood:         cfg.DefaultMood,
		Priority:     PriorityMedium,
		Category:     "",
		Status:       StatusDraft,
		LinkedNotes:  []string{},
	}
}

// Validate checks the note against the default domain rules.
func (n Note) Validate() error {
	return n.ValidateWithConfig(config.DefaultDomainConfig())
}

// ValidateWithConfig checks the note against cfg.
func (n Note) ValidateWithConfig(cfg *config.DomainConfig) error {
	if strings.TrimSpace(n.ID) == "" || strings.TrimSpace(n.Title) == "" {
		return pkgerrors.NewValidationError(ErrIDAndTitleRequired)
	}
	if cfg.MaxTitleLength > 0 && len(n.Title) > cfg.MaxTitleLength {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("title must be at most %d characters", cfg.MaxTitleLength))
	}
	if n.Mood < cfg.MinMood || n.Mood > cfg.MaxMood {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("mood must be between %d and %d", cfg.MinMood, cfg.MaxMood))
	}
	if !n.Priority.Valid() {
		return pkgerrors.NewValidationError(fmt.Sprintf("invalid priority %q", n.Priority))
	}
	if !n.Status.Valid() {
		return pkgerrors.NewValidationError(fmt.Sprintf("invalid status %q", n.Status))
	}
	if cfg.MaxLinksPerNote > 0 && len(n.LinkedNotes) > cfg.MaxLinksPerNote {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("a note can link at most %d notes", cfg.MaxLinksPerNote))
	}
	for _, target := range n.LinkedNotes {
		if strings.TrimSpace(target) == "" {
			return pkgerrors.NewValidationError("linked note id must not be empty")
		}
		if target == n.ID && !cfg.AllowSelfLinks {
			return pkgerrors.NewValidationError("a note cannot link to itself")
		}
	}
	return nil
}

// WithDefaults fills zero-valued metadata with the defaults of a new note
// and collapses duplicate links, keeping the first occurrence.
func (n Note) WithDefaults(cfg *config.DomainConfig) Note {
	out := n.Clone()
	if out.Mood == 0 {
		out.Mood = cfg.DefaultMood
	}
	if out.Priority == "" {
		out.Priority = PriorityMedium
	}
	if out.Status == "" {
		out.Status = StatusDraft
	}
	out.LinkedNotes = dedupe(out.LinkedNotes)
	return out
}

// Clone returns a copy that shares no slice storage with n.
func (n Note) Clone() Note {
	out := n
	out.LinkedNotes = make([]string, len(n.LinkedNotes))
	copy(out.LinkedNotes, n.LinkedNotes)
	return out
}

// HasLink reports whether n links to target.
func (n Note) HasLink(target string) bool {
	for _, id := range n.LinkedNotes {
		if id == target {
			return true
		}
	}
	return false
}

// Touch returns a copy of n with its modified date set to now.
func (n Note) Touch(now time.Time) Note {
	out := n.Clone()
	out.ModifiedDate = now
	return out
}

// Link returns the picker entry for n.
func (n Note) Link() NoteLink {
	return NoteLink{ID: n.ID, Title: n.Title}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SortByModifiedDesc orders notes most recently modified first, breaking
// ties by id so the order is stable across calls.
func SortByModifiedDesc(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if !notes[i].ModifiedDate.Equal(notes[j].ModifiedDate) {
			return notes[i].ModifiedDate.After(notes[j].ModifiedDate)
		}
		return notes[i].ID < notes[j].ID
	})
}
