// Package badger stores notes in an embedded BadgerDB database.
//
// Keys:
//
//	note/<id>                 JSON note without its links
//	link/<source>\x00<target> position of target in the source's links
//	backlink/<target>\x00<source>
//
// Every write runs in one read-write transaction, so an upsert replaces a
// note's whole link set atomically and a delete removes the note and every
// link touching it together.
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

const sep = "\x00"

var (
	notePrefix     = []byte("note/")
	linkPrefix     = []byte("link/")
	backlinkPrefix = []byte("backlink/")
)

func noteKey(id string) []byte { return append(append([]byte{}, notePrefix...), id...) }

func linkKey(source, target string) []byte {
	return []byte(string(linkPrefix) + source + sep + target)
}

func linkSourcePrefix(source string) []byte {
	return []byte(string(linkPrefix) + source + sep)
}

func backlinkKey(target, source string) []byte {
	return []byte(string(backlinkPrefix) + target + sep + source)
}

func backlinkTargetPrefix(target string) []byte {
	return []byte(string(backlinkPrefix) + target + sep)
}

// splitPair extracts the two ids from a link or backlink key.
func splitPair(key, prefix []byte) (string, string, bool) {
	rest := bytes.TrimPrefix(key, prefix)
	i := bytes.Index(rest, []byte(sep))
	if i < 0 {
		return "", "", false
	}
	return string(rest[:i]), string(rest[i+1:]), true
}

type storedNote struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedDate  time.Time `json:"createdDate"`
	ModifiedDate time.Time `json:"modifiedDate"`
	Mood         int       `json:"mood"`
	Priority     string    `json:"priority"`
	Category     string    `json:"category"`
	Status       string    `json:"status"`
}

func encodeNote(n entities.Note) ([]byte, error) {
	return json.Marshal(storedNote{
		ID:           n.ID,
		Title:        n.Title,
		Content:      n.Content,
		CreatedDate:  n.CreatedDate.UTC(),
		ModifiedDate: n.ModifiedDate.UTC(),
		Mood:         n.Mood,
		Priority:     string(n.Priority),
		Category:     n.Category,
		Status:       string(n.Status),
	})
}

func decodeNote(data []byte, links []string) (entities.Note, error) {
	var s storedNote
	if err := json.Unmarshal(data, &s); err != nil {
		return entities.Note{}, err
	}
	if links == nil {
		links = []string{}
	}
	return entities.Note{
		ID:           s.ID,
		Title:        s.Title,
		Content:      s.Content,
		CreatedDate:  s.CreatedDate.UTC(),
		ModifiedDate: s.ModifiedDate.UTC(),
		Mood:         s.Mood,
		Priority:     entities.Priority(s.Priority),
		Category:     s.Category,
		Status:       entities.Status(s.Status),
		LinkedNotes:  links,
	}, nil
}

// Options configures the database.
type Options struct {
	Dir        string
	InMemory   bool
	SyncWrites bool
}

// NoteStore is the BadgerDB implementation of ports.NoteStore.
type NoteStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens (or creates) the database described by opts.
func Open(opts Options, logger *zap.Logger) (*NoteStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir).
		WithLogger(newLogger(logger)).
		WithSyncWrites(opts.SyncWrites)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	logger.Info("badger note store opened",
		zap.String("dir", opts.Dir),
		zap.Bool("in_memory", opts.InMemory))
	return &NoteStore{db: db, logger: logger}, nil
}

// Close flushes and closes the database.
func (s *NoteStore) Close() error {
	return s.db.Close()
}

// List returns every note, most recently modified first.
func (s *NoteStore) List(ctx context.Context) ([]entities.Note, error) {
	var notes []entities.Note
	err := s.db.View(func(txn *badger.Txn) error {
		links, err := readLinks(txn, linkPrefix)
		if err != nil {
			return err
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(notePrefix); it.ValidForPrefix(notePrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			id := string(bytes.TrimPrefix(it.Item().Key(), notePrefix))
			n, err := decodeNote(data, links[id])
			if err != nil {
				s.logger.Warn("skipping unreadable note", zap.String("note_id", id), zap.Error(err))
				continue
			}
			notes = append(notes, n)
		}
		return nil
	})
	if err != nil {
		return nil, translateError("list notes", err)
	}
	if notes == nil {
		notes = []entities.Note{}
	}
	entities.SortByModifiedDesc(notes)
	return notes, nil
}

// Get returns one note with its links.
func (s *NoteStore) Get(ctx context.Context, id string) (entities.Note, error) {
	var note entities.Note
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(noteKey(id))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		links, err := readLinks(txn, linkSourcePrefix(id))
		if err != nil {
			return err
		}
		note, err = decodeNote(data, links[id])
		return err
	})
	if err != nil {
		return entities.Note{}, translateError("get note", err)
	}
	return note, nil
}

// Upsert writes the note and replaces its link set in one transaction.
func (s *NoteStore) Upsert(ctx context.Context, note entities.Note) error {
	data, err := encodeNote(note)
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode note").WithCause(err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(noteKey(note.ID), data); err != nil {
			return err
		}
		if err := deleteOutgoing(txn, note.ID); err != nil {
			return err
		}
		for i, target := range note.LinkedNotes {
			if err := txn.Set(linkKey(note.ID, target), []byte(strconv.Itoa(i))); err != nil {
				return err
			}
			if err := txn.Set(backlinkKey(target, note.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translateError("upsert note", err)
	}
	return nil
}

// Delete removes the note together with its outgoing and incoming links.
func (s *NoteStore) Delete(ctx context.Context, id string) error {
	incoming := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(noteKey(id)); err != nil {
			return err
		}
		if err := txn.Delete(noteKey(id)); err != nil {
			return err
		}
		if err := deleteOutgoing(txn, id); err != nil {
			return err
		}

		sources, err := collectPairs(txn, backlinkTargetPrefix(id), backlinkPrefix)
		if err != nil {
			return err
		}
		for _, source := range sources {
			if err := txn.Delete(linkKey(source, id)); err != nil {
				return err
			}
			if err := txn.Delete(backlinkKey(id, source)); err != nil {
				return err
			}
		}
		incoming = len(sources)
		return nil
	})
	if err != nil {
		return translateError("delete note", err)
	}

	s.logger.Debug("deleted note", zap.String("note_id", id), zap.Int("incoming_links", incoming))
	return nil
}

// Ping fails once the database has been closed.
func (s *NoteStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return pkgerrors.NewUnavailableError("note store", badger.ErrDBClosed)
	}
	return nil
}

// deleteOutgoing removes the link and backlink keys owned by source.
func deleteOutgoing(txn *badger.Txn, source string) error {
	targets, err := collectPairs(txn, linkSourcePrefix(source), linkPrefix)
	if err != nil {
		return err
	}
	for _, target := range targets {
		if err := txn.Delete(linkKey(source, target)); err != nil {
			return err
		}
		if err := txn.Delete(backlinkKey(target, source)); err != nil {
			return err
		}
	}
	return nil
}

// collectPairs returns the second id of every key under scan.
func collectPairs(txn *badger.Txn, scan, prefix []byte) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	for it.Seek(scan); it.ValidForPrefix(scan); it.Next() {
		if _, second, ok := splitPair(it.Item().Key(), prefix); ok {
			out = append(out, second)
		}
	}
	return out, nil
}

// readLinks loads the link keys under scan grouped by source, each group
// ordered by stored position.
func readLinks(txn *badger.Txn, scan []byte) (map[string][]string, error) {
	type entry struct {
		target string
		pos    int
	}
	grouped := make(map[string][]entry)

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(scan); it.ValidForPrefix(scan); it.Next() {
		source, target, ok := splitPair(it.Item().Key(), linkPrefix)
		if !ok {
			continue
		}
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		pos, err := strconv.Atoi(string(val))
		if err != nil {
			pos = int(^uint(0) >> 1)
		}
		grouped[source] = append(grouped[source], entry{target: target, pos: pos})
	}

	out := make(map[string][]string, len(grouped))
	for source, entries := range grouped {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })
		targets := make([]string, len(entries))
		for i, e := range entries {
			targets[i] = e.target
		}
		out[source] = targets
	}
	return out, nil
}

func translateError(op string, err error) error {
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return pkgerrors.NewNotFoundError("Note")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.NewUnavailableError("note store", err)
	case pkgerrors.GetAppError(err) != nil:
		return err
	default:
		return pkgerrors.NewUnavailableError("note store", err).
			WithDetails(map[string]any{"operation": op})
	}
}
