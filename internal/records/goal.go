package records

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sanctum/internal/storage"
)

// GoalStatus tracks where a goal stands.
type GoalStatus string

const (
	NotStarted   GoalStatus = "not_started"
	InProgress   GoalStatus = "in_progress"
	GoalFinished GoalStatus = "finished"
	GoalPaused   GoalStatus = "paused"
)

// Goal is a tracked objective with percentage progress.
type Goal struct {
	Meta
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      GoalStatus `json:"status"`
	Progress    int        `json:"progress"`
	DueDate     string     `json:"dueDate"`
}

func (g *Goal) summary() string { return g.Title }

func (g *Goal) required() error {
	if g.Title == "" {
		return errors.New("title is required")
	}
	return nil
}

func (g *Goal) defaults(time.Time) {}

func (g *Goal) normalize() {
	g.Title = strings.TrimSpace(g.Title)
	g.Progress = min(max(g.Progress, 0), 100)
	if g.Status == "" {
		g.Status = NotStarted
	}
}

func (g *Goal) validate() error {
	return validation.ValidateStruct(g,
		validation.Field(&g.Title, validation.Required),
		validation.Field(&g.Status, validation.In(NotStarted, InProgress, GoalFinished, GoalPaused)),
		validation.Field(&g.DueDate, validation.Date(DateLayout)),
	)
}

// GoalStore is the goals adapter.
type GoalStore struct {
	*Repository[Goal, *Goal]
}

// InProgress returns up to limit goals currently being worked on.
func (s *GoalStore) InProgress(ctx context.Context, limit int) ([]Goal, error) {
	goals, err := s.List(ctx, storage.DefaultSort)
	if err != nil {
		return nil, err
	}
	var out []Goal
	for _, g := range goals {
		if g.Status != InProgress {
			continue
		}
		out = append(out, g)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SetProgress stores a new percentage, clamped to [0,100].
func (s *GoalStore) SetProgress(ctx context.Context, id string, progress int) (Goal, error) {
	return s.Update(ctx, id, func(g *Goal) error {
		g.Progress = progress
		g.start()
		return nil
	})
}

// start moves an unstarted goal to in progress once it has progress.
func (g *Goal) start() {
	if g.Status == NotStarted && g.Progress > 0 {
		g.Status = InProgress
	}
}

func (g *Goal) progressed(field string) {
	if field == "progress" {
		g.start()
	}
}

// Stats lists all goals and reduces them.
func (s *GoalStore) Stats(ctx context.Context) (GoalStats, error) {
	goals, err := s.List(ctx, "")
	if err != nil {
		return GoalStats{}, err
	}
	return SummarizeGoals(goals), nil
}
