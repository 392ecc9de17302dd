package events

import "time"

// DomainEvent is something that happened to a note.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeNoteSaved   = "note.saved"
	TypeNoteDeleted = "note.deleted"
	TypeNotesLinked = "note.linked"
)

// NoteSaved is raised after a note has been created or overwritten.
type NoteSaved struct {
	BaseEvent
	NoteID      string   `json:"note_id"`
	Title       string   `json:"title"`
	Created     bool     `json:"created"`
	LinkedNotes []string `json:"linked_notes"`
}

func NewNoteSaved(noteID, title string, created bool, linked []string, at time.Time) NoteSaved {
	return NoteSaved{
		BaseEvent:   BaseEvent{AggregateID: noteID, EventType: TypeNoteSaved, Timestamp: at, Version: 1},
		NoteID:      noteID,
		Title:       title,
		Created:     created,
		LinkedNotes: linked,
	}
}

// NoteDeleted is raised after a note and every link to it were removed.
type NoteDeleted struct {
	BaseEvent
	NoteID string `json:"note_id"`
}

func NewNoteDeleted(noteID string, at time.Time) NoteDeleted {
	return NoteDeleted{
		BaseEvent: BaseEvent{AggregateID: noteID, EventType: TypeNoteDeleted, Timestamp: at, Version: 1},
		NoteID:    noteID,
	}
}

// NotesLinked is raised when a link was drawn between two notes.
type NotesLinked struct {
	BaseEvent
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

func NewNotesLinked(sourceID, targetID string, at time.Time) NotesLinked {
	return NotesLinked{
		BaseEvent: BaseEvent{AggregateID: sourceID, EventType: TypeNotesLinked, Timestamp: at, Version: 1},
		SourceID:  sourceID,
		TargetID:  targetID,
	}
}
