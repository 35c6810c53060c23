package models

import (
	"errors"
	"time"
)

// TimestampPrecision is the resolution every store keeps for CreatedAt.
const TimestampPrecision = time.Microsecond

// Submission is a persisted piece of text.
type Submission struct {
	ID        int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"type:text;not null"       json:"text"      validate:"required"`
	CreatedAt time.Time `gorm:"not null;index"           json:"createdAt" validate:"required"`
}

// TableName pins the table name regardless of gorm naming strategy.
func (Submission) TableName() string {
	return "text_submissions"
}

// Validate checks the stored fields against the given text rule.
func (s *Submission) Validate(rule TextRule) error {
	if err := validate.Struct(s); err != nil {
		return err
	}

	if s.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}

	return rule.Check(s.Text)
}

// Stamp sets the creation time, normalised to UTC at store precision.
func (s *Submission) Stamp(now time.Time) {
	s.CreatedAt = now.UTC().Truncate(TimestampPrecision)
}

// Less orders submissions newest first, breaking ties by the higher id.
func Less(a, b *Submission) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
