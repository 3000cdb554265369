package records

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dashboard limits.
const (
	DashboardGoals        = 2
	DashboardTransactions = 10
)

// Dashboard is the home-page summary across every domain.
type Dashboard struct {
	Books              BookStats       `json:"books"`
	Finance            FinanceStats    `json:"finance"`
	Goals              GoalStats       `json:"goals"`
	Journal            JournalStats    `json:"journal"`
	Meditation         MeditationStats `json:"meditation"`
	Detox              DetoxStats      `json:"detox"`
	ActiveGoals        []Goal          `json:"activeGoals"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
	PinnedNotes        []UserNote      `json:"pinnedNotes"`
}

// Dashboard loads every domain concurrently. The first failure cancels the
// remaining reads and is returned.
func (s *Store) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.Books, err = s.Books.Stats(ctx)
		return err
	})
	g.Go(func() error {
		txs, err := s.Transactions.List(ctx, "")
		if err != nil {
			return err
		}
		d.Finance = SummarizeFinances(txs)
		if len(txs) > DashboardTransactions {
			txs = txs[:DashboardTransactions]
		}
		d.RecentTransactions = txs
		return nil
	})
	g.Go(func() error {
		goals, err := s.Goals.List(ctx, "")
		if err != nil {
			return err
		}
		d.Goals = SummarizeGoals(goals)
		d.ActiveGoals = []Goal{}
		for _, goal := range goals {
			if len(d.ActiveGoals) == DashboardGoals {
				break
			}
			if goal.Status == InProgress {
				d.ActiveGoals = append(d.ActiveGoals, goal)
			}
		}
		return nil
	})
	g.Go(func() (err error) {
		d.Journal, err = s.Journal.Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Meditation, err = s.Meditations.Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Detox, err = s.Detox.Stats(ctx)
		return err
	})
	g.Go(func() error {
		notes, err := s.Notes.List(ctx, "", "")
		if err != nil {
			return err
		}
		d.PinnedNotes = []UserNote{}
		for _, n := range notes {
			if n.IsPinned {
				d.PinnedNotes = append(d.PinnedNotes, n)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
