package records

import (
	"slices"
)

// Reducers below are total and order-independent: an empty input yields the
// zero aggregate and permuting the input never changes the result.

// BookStats summarizes the reading list.
type BookStats struct {
	Total     int `json:"total"`
	Reading   int `json:"reading"`
	Finished  int `json:"finished"`
	PagesRead int `json:"pagesRead"`
}

// SummarizeBooks reduces books.
func SummarizeBooks(books []Book) BookStats {
	var s BookStats
	for _, b := range books {
		s.Total++
		switch b.Status {
		case Reading:
			s.Reading++
		case Finished:
			s.Finished++
		}
		s.PagesRead += b.CurrentPage
	}
	return s
}

// FinanceStats summarizes transactions.
type FinanceStats struct {
	TotalIncome       float64            `json:"totalIncome"`
	TotalExpense      float64            `json:"totalExpense"`
	Balance           float64            `json:"balance"`
	ExpenseByCategory map[string]float64 `json:"expenseByCategory"`
}

// SummarizeFinances reduces txs. Amounts are summed in ascending order so
// floating-point rounding does not depend on input order.
func SummarizeFinances(txs []Transaction) FinanceStats {
	var income, expense []float64
	byCategory := make(map[string][]float64)
	for _, t := range txs {
		switch t.Type {
		case Income:
			income = append(income, t.Amount)
		case Expense:
			expense = append(expense, t.Amount)
			byCategory[t.Category] = append(byCategory[t.Category], t.Amount)
		}
	}
	s := FinanceStats{
		TotalIncome:       sortedSum(income),
		TotalExpense:      sortedSum(expense),
		ExpenseByCategory: make(map[string]float64, len(byCategory)),
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	for c, amounts := range byCategory {
		s.ExpenseByCategory[c] = sortedSum(amounts)
	}
	return s
}

func sortedSum(xs []float64) float64 {
	slices.Sort(xs)
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum
}

// DetoxStats summarizes detox sessions, in seconds.
type DetoxStats struct {
	TotalTime      int `json:"totalTime"`
	SessionCount   int `json:"sessionCount"`
	LongestSession int `json:"longestSession"`
}

// SummarizeDetox reduces sessions.
func SummarizeDetox(sessions []DetoxSession) DetoxStats {
	var s DetoxStats
	for _, d := range sessions {
		s.SessionCount++
		s.TotalTime += d.DurationSeconds
		s.LongestSession = max(s.LongestSession, d.DurationSeconds)
	}
	return s
}

// GoalStats summarizes goals.
type GoalStats struct {
	Total           int     `json:"total"`
	InProgress      int     `json:"inProgress"`
	Finished        int     `json:"finished"`
	AverageProgress float64 `json:"averageProgress"`
}

// SummarizeGoals reduces goals.
func SummarizeGoals(goals []Goal) GoalStats {
	var (
		s   GoalStats
		sum int
	)
	for _, g := range goals {
		s.Total++
		sum += g.Progress
		switch g.Status {
		case InProgress:
			s.InProgress++
		case GoalFinished:
			s.Finished++
		}
	}
	if s.Total > 0 {
		s.AverageProgress = float64(sum) / float64(s.Total)
	}
	return s
}

// MeditationStats summarizes meditation sessions, in minutes.
type MeditationStats struct {
	SessionCount   int `json:"sessionCount"`
	TotalMinutes   int `json:"totalMinutes"`
	LongestMinutes int `json:"longestMinutes"`
}

// SummarizeMeditation reduces sessions.
func SummarizeMeditation(sessions []MeditationSession) MeditationStats {
	var s MeditationStats
	for _, m := range sessions {
		s.SessionCount++
		s.TotalMinutes += m.Duration
		s.LongestMinutes = max(s.LongestMinutes, m.Duration)
	}
	return s
}

// JournalStats summarizes journal entries.
type JournalStats struct {
	Entries  int `json:"entries"`
	Days     int `json:"days"`
	TagCount int `json:"tagCount"`
}

// SummarizeJournal reduces entries: how many, on how many distinct dates,
// and how many distinct hashtags they use.
func SummarizeJournal(entries []JournalEntry) JournalStats {
	days := make(map[string]struct{})
	tagSet := make(map[string]struct{})
	for _, e := range entries {
		days[e.Date] = struct{}{}
		for _, t := range parseTags(e.Content) {
			tagSet[t] = struct{}{}
		}
	}
	return JournalStats{Entries: len(entries), Days: len(days), TagCount: len(tagSet)}
}
