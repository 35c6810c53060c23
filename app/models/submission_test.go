package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmissionValidation(t *testing.T) {
	tests := []struct {
		name       string
		submission *Submission
		wantErr    bool
	}{
		{
			name: "valid submission",
			submission: &Submission{
				ID:        1,
				Text:      "Valid submission text",
				CreatedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name: "empty text",
			submission: &Submission{
				ID:        1,
				Text:      "",
				CreatedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "whitespace text",
			submission: &Submission{
				ID:        1,
				Text:      "    ",
				CreatedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "zero creation time",
			submission: &Submission{
				ID:        1,
				Text:      "Valid submission text",
				CreatedAt: time.Time{},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.submission.Validate(DefaultServerRule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubmissionStamp(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2024, 5, 1, 12, 30, 0, 123456789, loc)

	s := &Submission{Text: "Test submission"}
	assert.True(t, s.CreatedAt.IsZero())
	s.Stamp(now)

	assert.Equal(t, time.UTC, s.CreatedAt.Location())
	assert.True(t, s.CreatedAt.Equal(now.Truncate(time.Microsecond)))
	assert.Equal(t, 123456000, s.CreatedAt.Nanosecond())
}

func TestLess(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := &Submission{ID: 1, CreatedAt: base}
	newer := &Submission{ID: 2, CreatedAt: base.Add(time.Second)}
	tie := &Submission{ID: 3, CreatedAt: base}

	assert.True(t, Less(newer, older))
	assert.False(t, Less(older, newer))
	assert.True(t, Less(tie, older))
	assert.False(t, Less(older, tie))
}
