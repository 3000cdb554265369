package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MinDetoxSeconds is the longest session that is still discarded.
const MinDetoxSeconds = 5

// DetoxSession is a timed stretch away from screens.
type DetoxSession struct {
	Meta
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int       `json:"duration_seconds"`
}

// NewDetoxSession builds a session from its endpoints.
func NewDetoxSession(start, end time.Time) DetoxSession {
	s := DetoxSession{StartTime: start, EndTime: end}
	s.normalize()
	return s
}

func (d *DetoxSession) summary() string {
	return formatClock(d.DurationSeconds) + " - " + d.EndTime.Format(DateLayout)
}

func (d *DetoxSession) required() error {
	if d.StartTime.IsZero() || d.DurationSeconds <= 0 {
		return errors.New("start_time and duration_seconds are required")
	}
	return nil
}

func (d *DetoxSession) defaults(time.Time) {}

// normalize stores the endpoints in UTC and derives the duration from them
// when both are known.
func (d *DetoxSession) normalize() {
	d.StartTime = d.StartTime.UTC()
	d.EndTime = d.EndTime.UTC()
	if d.StartTime.IsZero() || d.EndTime.IsZero() || d.EndTime.Before(d.StartTime) {
		return
	}
	d.DurationSeconds = int(d.EndTime.Sub(d.StartTime).Round(time.Second) / time.Second)
}

func (d *DetoxSession) validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.StartTime, validation.Required),
		validation.Field(&d.EndTime, validation.Required, validation.By(d.notBeforeStart)),
		validation.Field(&d.DurationSeconds, validation.By(minDetox)),
	)
}

func (d *DetoxSession) notBeforeStart(any) error {
	if d.EndTime.Before(d.StartTime) {
		return errors.New("must not be before start_time")
	}
	return nil
}

func minDetox(value any) error {
	if n, _ := value.(int); n <= MinDetoxSeconds {
		return fmt.Errorf("must be longer than %d seconds", MinDetoxSeconds)
	}
	return nil
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

// DetoxStore is the detox timer adapter.
type DetoxStore struct {
	*Repository[DetoxSession, *DetoxSession]
}

// Record stores the session between start and end. Sessions of
// MinDetoxSeconds or less are skipped and persisted is false.
func (s *DetoxStore) Record(ctx context.Context, start, end time.Time) (session DetoxSession, persisted bool, err error) {
	session = NewDetoxSession(start, end)
	if session.DurationSeconds <= MinDetoxSeconds {
		return session, false, nil
	}
	session, err = s.Save(ctx, session)
	if err != nil {
		return DetoxSession{}, false, err
	}
	return session, true, nil
}

// Stats lists all sessions and reduces them.
func (s *DetoxStore) Stats(ctx context.Context) (DetoxStats, error) {
	sessions, err := s.List(ctx, "")
	if err != nil {
		return DetoxStats{}, err
	}
	return SummarizeDetox(sessions), nil
}
