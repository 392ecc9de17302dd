// Package graph derives the node-link view of a note collection.
//
// Nothing here is stored. A Graph is recomputed from the notes every time
// the collection or the selected note changes, so every function in this
// package is pure: the same inputs always give the same output and the
// input notes are never modified.
package graph

import (
	"strings"

	"github.com/gumnutdev/quick-notes/domain/config"
	"github.com/gumnutdev/quick-notes/domain/core/entities"
)

// Position is a node's place on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is the graph projection of one note.
type Node struct {
	ID       string        `json:"id"`
	Position Position      `json:"position"`
	Note     entities.Note `json:"note"`
	Active   bool          `json:"active"`
}

// Edge is a directed link between two notes that both exist.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the materialized view.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// EdgeID is the identity of the directed edge source -> target: the two
// ids joined by "-". Backslashes and hyphens inside an id are escaped with
// a backslash so that distinct pairs never share an id.
func EdgeID(source, target string) string {
	return edgeIDEscaper.Replace(source) + "-" + edgeIDEscaper.Replace(target)
}

var edgeIDEscaper = strings.NewReplacer(`\`, `\\`, "-", `\-`)

// GridPosition returns the layout slot for the note at index i.
func GridPosition(i int, cfg *config.DomainConfig) Position {
	cols := cfg.GridColumns
	if cols <= 0 {
		cols = 1
	}
	return Position{
		X: float64(i%cols)*cfg.GridSpacingX + cfg.GridOffsetX,
		Y: float64(i/cols)*cfg.GridSpacingY + cfg.GridOffsetY,
	}
}

// Materialize lays the notes out on the default grid and emits one edge per
// link whose target is present in notes. Links to absent notes are
// skipped. activeNoteID may be empty.
func Materialize(notes []entities.Note, activeNoteID string) Graph {
	return MaterializeWithConfig(notes, activeNoteID, config.DefaultDomainConfig())
}

// MaterializeWithConfig is Materialize with explicit layout rules.
func MaterializeWithConfig(notes []entities.Note, activeNoteID string, cfg *config.DomainConfig) Graph {
	g := Graph{
		Nodes: make([]Node, 0, len(notes)),
		Edges: []Edge{},
	}

	index := make(map[string]int, len(notes))
	for i, n := range notes {
		if _, dup := index[n.ID]; !dup {
			index[n.ID] = i
		}
	}

	activeSet := false
	for i, n := range notes {
		active := !activeSet && activeNoteID != "" && n.ID == activeNoteID
		if active {
			activeSet = true
		}
		g.Nodes = append(g.Nodes, Node{
			ID:       n.ID,
			Position: GridPosition(i, cfg),
			Note:     n.Clone(),
			Active:   active,
		})
	}

	type pair struct{ source, target string }
	seen := make(map[pair]struct{})
	for _, n := range notes {
		for _, target := range n.LinkedNotes {
			if _, ok := index[target]; !ok {
				continue
			}
			p := pair{n.ID, target}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			g.Edges = append(g.Edges, Edge{
				ID:     EdgeID(n.ID, target),
				Source: n.ID,
				Target: target,
			})
		}
	}

	return g
}

// Find returns the note with the given id.
func Find(notes []entities.Note, id string) (entities.Note, bool) {
	for _, n := range notes {
		if n.ID == id {
			return n, true
		}
	}
	return entities.Note{}, false
}
