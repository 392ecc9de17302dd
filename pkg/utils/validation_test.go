package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gumnutdev/quick-notes/pkg/errors"
)

type sample struct {
	ID       string `json:"id" validate:"required"`
	Mood     int    `json:"mood" validate:"min=1,max=10"`
	Priority string `json:"priority" validate:"oneof=low medium high"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantErr string
	}{
		{"valid", sample{ID: "a", Mood: 5, Priority: "low"}, ""},
		{"missing id", sample{Mood: 5, Priority: "low"}, "id is required"},
		{"mood too high", sample{ID: "a", Mood: 11, Priority: "low"}, "mood must be at most 10"},
		{"bad priority", sample{ID: "a", Mood: 1, Priority: "urgent"}, "priority must be one of: low medium high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 30, 0, 123000000, time.UTC)

	parsed, err := ParseTime(FormatTime(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))

	parsed, err = ParseTime("2024-03-01T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2024, parsed.Year())

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}
