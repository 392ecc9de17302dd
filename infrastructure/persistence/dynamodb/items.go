package dynamodb

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

const (
	notePrefix   = "NOTE#"
	linkPrefix   = "LINK#"
	targetPrefix = "TARGET#"
	sourcePrefix = "SOURCE#"

	metadataSK = "METADATA"
	notesGSI1  = "NOTES"
	linksGSI1  = "LINK"

	// Fixed width so GSI1SK sorts chronologically as a string.
	sortableTime = "2006-01-02T15:04:05.000000000Z"
)

// ddbNote is a note item. Links live in their own items.
type ddbNote struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	EntityType   string `dynamodbav:"EntityType"`
	NoteID       string `dynamodbav:"NoteID"`
	Title        string `dynamodbav:"Title"`
	Content      string `dynamodbav:"Content"`
	CreatedDate  string `dynamodbav:"CreatedDate"`
	ModifiedDate string `dynamodbav:"ModifiedDate"`
	Mood         int    `dynamodbav:"Mood"`
	Priority     string `dynamodbav:"Priority"`
	Category     string `dynamodbav:"Category"`
	Status       string `dynamodbav:"Status"`
}

// ddbLink is one directed (source, target) pair, unique by its key.
type ddbLink struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GSI2PK     string `dynamodbav:"GSI2PK"`
	GSI2SK     string `dynamodbav:"GSI2SK"`
	EntityType string `dynamodbav:"EntityType"`
	SourceID   string `dynamodbav:"SourceID"`
	TargetID   string `dynamodbav:"TargetID"`
	Position   int    `dynamodbav:"Position"`
}

func notePK(id string) string     { return notePrefix + id }
func linkSK(target string) string { return linkPrefix + target }

func toNoteItem(n entities.Note) ddbNote {
	return ddbNote{
		PK:           notePK(n.ID),
		SK:           metadataSK,
		GSI1PK:       notesGSI1,
		GSI1SK:       n.ModifiedDate.UTC().Format(sortableTime) + "#" + n.ID,
		EntityType:   "NOTE",
		NoteID:       n.ID,
		Title:        n.Title,
		Content:      n.Content,
		CreatedDate:  n.CreatedDate.UTC().Format(time.RFC3339Nano),
		ModifiedDate: n.ModifiedDate.UTC().Format(time.RFC3339Nano),
		Mood:         n.Mood,
		Priority:     string(n.Priority),
		Category:     n.Category,
		Status:       string(n.Status),
	}
}

func toLinkItems(n entities.Note) []ddbLink {
	out := make([]ddbLink, 0, len(n.LinkedNotes))
	for i, target := range n.LinkedNotes {
		out = append(out, ddbLink{
			PK:         notePK(n.ID),
			SK:         linkSK(target),
			GSI1PK:     linksGSI1,
			GSI1SK:     fmt.Sprintf("%s#%06d", n.ID, i),
			GSI2PK:     targetPrefix + target,
			GSI2SK:     sourcePrefix + n.ID,
			EntityType: "LINK",
			SourceID:   n.ID,
			TargetID:   target,
			Position:   i,
		})
	}
	return out
}

func fromNoteItem(item ddbNote, links []ddbLink) (entities.Note, error) {
	created, err := time.Parse(time.RFC3339Nano, item.CreatedDate)
	if err != nil {
		return entities.Note{}, pkgerrors.Wrapf(err, "note %s: bad CreatedDate", item.NoteID)
	}
	modified, err := time.Parse(time.RFC3339Nano, item.ModifiedDate)
	if err != nil {
		return entities.Note{}, pkgerrors.Wrapf(err, "note %s: bad ModifiedDate", item.NoteID)
	}
	id := item.NoteID
	if id == "" {
		id = strings.TrimPrefix(item.PK, notePrefix)
	}
	return entities.Note{
		ID:           id,
		Title:        item.Title,
		Content:      item.Content,
		CreatedDate:  created.UTC(),
		ModifiedDate: modified.UTC(),
		Mood:         item.Mood,
		Priority:     entities.Priority(item.Priority),
		Category:     item.Category,
		Status:       entities.Status(item.Status),
		LinkedNotes:  linkTargets(links),
	}, nil
}

// linkTargets returns the targets of links in their stored order.
func linkTargets(links []ddbLink) []string {
	sorted := make([]ddbLink, len(links))
	copy(sorted, links)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	out := make([]string, 0, len(sorted))
	for _, l := range sorted {
		target := l.TargetID
		if target == "" {
			target = strings.TrimPrefix(l.SK, linkPrefix)
		}
		out = append(out, target)
	}
	return out
}

func groupLinksBySource(links []ddbLink) map[string][]ddbLink {
	out := make(map[string][]ddbLink)
	for _, l := range links {
		source := l.SourceID
		if source == "" {
			source = strings.TrimPrefix(l.PK, notePrefix)
		}
		out[source] = append(out[source], l)
	}
	return out
}
