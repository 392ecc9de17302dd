package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gumnutdev/quick-notes/domain/config"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

var now = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func TestNewNote_Defaults(t *testing.T) {
	n := NewNote("n1", now)

	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, "Untitled Note", n.Title)
	assert.Equal(t, 5, n.Mood)
	assert.Equal(t, PriorityMedium, n.Priority)
	assert.Equal(t, StatusDraft, n.Status)
	assert.Equal(t, n.CreatedDate, n.ModifiedDate)
	assert.NotNil(t, n.LinkedNotes)
	assert.Empty(t, n.LinkedNotes)
	assert.NoError(t, n.Validate())
}

func TestNote_Validate(t *testing.T) {
	valid := NewNote("a", now)

	tests := []struct {
		name    string
		mutate  func(n *Note)
		wantMsg string
	}{
		{"valid", func(n *Note) {}, ""},
		{"empty id", func(n *Note) { n.ID = "" }, ErrIDAndTitleRequired},
		{"empty title", func(n *Note) { n.Title = "" }, ErrIDAndTitleRequired},
		{"blank title", func(n *Note) { n.Title = "   " }, ErrIDAndTitleRequired},
		{"mood too low", func(n *Note) { n.Mood = 0 }, "mood must be between 1 and 10"},
		{"mood too high", func(n *Note) { n.Mood = 11 }, "mood must be between 1 and 10"},
		{"bad priority", func(n *Note) { n.Priority = "urgent" }, "invalid priority"},
		{"bad status", func(n *Note) { n.Status = "done" }, "invalid status"},
		{"self link", func(n *Note) { n.LinkedNotes = []string{"b", "a"} }, "cannot link to itself"},
		{"empty link", func(n *Note) { n.LinkedNotes = []string{""} }, "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid.Clone()
			tt.mutate(&n)

			err := n.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNote_ValidateAllowsSelfLinkWhenConfigured(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.AllowSelfLinks = true
	n := NewNote("a", now)
	n.LinkedNotes = []string{"a"}

	assert.NoError(t, n.ValidateWithConfig(cfg))
}

func TestNote_WithDefaults(t *testing.T) {
	n := Note{ID: "a", Title: "t", LinkedNotes: []string{"b", "c", "b"}}

	out := n.WithDefaults(config.DefaultDomainConfig())

	assert.Equal(t, 5, out.Mood)
	assert.Equal(t, PriorityMedium, out.Priority)
	assert.Equal(t, StatusDraft, out.Status)
	assert.Equal(t, []string{"b", "c"}, out.LinkedNotes)
	assert.Equal(t, []string{"b", "c", "b"}, n.LinkedNotes, "input must not change")
}

func TestNote_CloneIsIndependent(t *testing.T) {
	n := NewNote("a", now)
	n.LinkedNotes = []string{"b"}

	c := n.Clone()
	c.LinkedNotes[0] = "z"

	assert.Equal(t, "b", n.LinkedNotes[0])
	assert.True(t, n.HasLink("b"))
	assert.False(t, n.HasLink("z"))
}

func TestNote_Touch(t *testing.T) {
	n := NewNote("a", now)
	later := now.Add(time.Minute)

	touched := n.Touch(later)

	assert.Equal(t, later, touched.ModifiedDate)
	assert.Equal(t, now, touched.CreatedDate)
	assert.Equal(t, now, n.ModifiedDate)
}
