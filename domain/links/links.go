// Package links edits the outgoing link list of a single note.
package links

import (
	"strings"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
)

// Add returns linked with id appended. When id is already present the
// input is returned unchanged.
func Add(linked []string, id string) []string {
	for _, existing := range linked {
		if existing == id {
			return linked
		}
	}
	out := make([]string, 0, len(linked)+1)
	out = append(out, linked...)
	return append(out, id)
}

// Remove returns linked without any occurrence of id.
func Remove(linked []string, id string) []string {
	out := make([]string, 0, len(linked))
	for _, existing := range linked {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// Candidates lists the notes that note could link to next: every note
// except note itself and the ones it already links to, in collection order.
func Candidates(note entities.Note, all []entities.Note) []entities.NoteLink {
	out := []entities.NoteLink{}
	for _, n := range all {
		if n.ID == note.ID || note.HasLink(n.ID) {
			continue
		}
		out = append(out, n.Link())
	}
	return out
}

// Filter keeps the notes whose title, content or category contains query,
// ignoring case. An empty query keeps everything.
func Filter(notes []entities.Note, query string) []entities.Note {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return notes
	}
	out := make([]entities.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Content), q) ||
			strings.Contains(strings.ToLower(n.Category), q) {
			out = append(out, n)
		}
	}
	return out
}
