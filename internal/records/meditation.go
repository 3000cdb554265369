package records

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MeditationSession is one sitting, with its length in minutes.
type MeditationSession struct {
	Meta
	Duration  int    `json:"duration"`
	Date      string `json:"date"`
	Technique string `json:"technique"`
}

func (m *MeditationSession) summary() string {
	s := strconv.Itoa(m.Duration) + " min"
	if m.Technique != "" {
		s += " " + m.Technique
	}
	return s + " - " + m.Date
}

func (m *MeditationSession) required() error {
	if m.Duration <= 0 {
		return errors.New("duration is required")
	}
	return nil
}

func (m *MeditationSession) defaults(now time.Time) {
	if m.Date == "" {
		m.Date = now.Format(DateLayout)
	}
}

func (m *MeditationSession) normalize() {
	m.Duration = max(m.Duration, 0)
	m.Technique = strings.TrimSpace(m.Technique)
}

func (m *MeditationSession) validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Duration, validation.Required, validation.Min(1)),
		validation.Field(&m.Date, validation.Required, validation.Date(DateLayout)),
	)
}

// MeditationStore is the meditation log adapter.
type MeditationStore struct {
	*Repository[MeditationSession, *MeditationSession]
}

// Stats lists all sessions and reduces them.
func (s *MeditationStore) Stats(ctx context.Context) (MeditationStats, error) {
	sessions, err := s.List(ctx, "")
	if err != nil {
		return MeditationStats{}, err
	}
	return SummarizeMeditation(sessions), nil
}
