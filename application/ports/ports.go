package ports

import (
	"context"
	"time"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	"github.com/gumnutdev/quick-notes/domain/events"
)

// NoteStore is durable keyed storage for notes and their directed links.
// Links are persisted as one (source, target) pair per entry, unique per
// pair, and are removed when either endpoint note is deleted.
type NoteStore interface {
	// List returns every note, most recently modified first.
	List(ctx context.Context) ([]entities.Note, error)

	// Get returns the note with the given id or a not found error.
	Get(ctx context.Context, id string) (entities.Note, error)

	// Upsert creates the note or overwrites every field of an existing one,
	// replacing its whole link set.
	Upsert(ctx context.Context, note entities.Note) error

	// Delete removes the note and every link that points to or from it.
	// Unknown ids return a not found error.
	Delete(ctx context.Context, id string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Cache holds serialized values for a limited time.
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value; a zero ttl uses the cache default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
