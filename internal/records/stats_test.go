package records

import (
	"math/rand/v2"
	"reflect"
	"testing"
	"time"
)

func TestSummarize_Empty(t *testing.T) {
	if got := SummarizeBooks(nil); got != (BookStats{}) {
		t.Errorf("books = %+v", got)
	}
	if got := SummarizeDetox(nil); got != (DetoxStats{}) {
		t.Errorf("detox = %+v", got)
	}
	if got := SummarizeGoals(nil); got != (GoalStats{}) {
		t.Errorf("goals = %+v", got)
	}
	if got := SummarizeMeditation(nil); got != (MeditationStats{}) {
		t.Errorf("meditation = %+v", got)
	}
	if got := SummarizeJournal(nil); got != (JournalStats{}) {
		t.Errorf("journal = %+v", got)
	}
	f := SummarizeFinances(nil)
	if f.TotalIncome != 0 || f.TotalExpense != 0 || f.Balance != 0 || len(f.ExpenseByCategory) != 0 {
		t.Errorf("finance = %+v", f)
	}
}

func TestSummarizeFinances_Balance(t *testing.T) {
	got := SummarizeFinances([]Transaction{
		{Type: Income, Amount: 1000, Category: "salary"},
		{Type: Expense, Amount: 300, Category: "food"},
	})
	if got.Balance != 700 || got.TotalIncome != 1000 || got.TotalExpense != 300 {
		t.Errorf("finance = %+v", got)
	}
	if got.ExpenseByCategory["food"] != 300 {
		t.Errorf("by category = %v", got.ExpenseByCategory)
	}
}

func TestSummarizeFinances_OrderIndependent(t *testing.T) {
	var txs []Transaction
	for i := range 50 {
		typ := Expense
		if i%3 == 0 {
			typ = Income
		}
		txs = append(txs, Transaction{Type: typ, Amount: 0.1 * float64(i+1), Category: []string{"food", "other"}[i%2]})
	}
	want := SummarizeFinances(txs)
	r := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		shuffled := append([]Transaction(nil), txs...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := SummarizeFinances(shuffled); !reflect.DeepEqual(got, want) {
			t.Fatalf("permutation changed result:\n got %+v\nwant %+v", got, want)
		}
	}
}

func TestSummarizeBooks(t *testing.T) {
	got := SummarizeBooks([]Book{
		{Status: Reading, CurrentPage: 50},
		{Status: Finished, CurrentPage: 300},
		{Status: WantToRead},
	})
	want := BookStats{Total: 3, Reading: 1, Finished: 1, PagesRead: 350}
	if got != want {
		t.Errorf("books = %+v, want %+v", got, want)
	}
}

func TestSummarizeDetox(t *testing.T) {
	got := SummarizeDetox([]DetoxSession{{DurationSeconds: 60}, {DurationSeconds: 600}, {DurationSeconds: 6}})
	want := DetoxStats{TotalTime: 666, SessionCount: 3, LongestSession: 600}
	if got != want {
		t.Errorf("detox = %+v, want %+v", got, want)
	}
}

func TestSummarizeGoals(t *testing.T) {
	got := SummarizeGoals([]Goal{{Status: InProgress, Progress: 50}, {Status: GoalFinished, Progress: 100}})
	if got.Total != 2 || got.InProgress != 1 || got.Finished != 1 || got.AverageProgress != 75 {
		t.Errorf("goals = %+v", got)
	}
}

func TestSummarizeJournal(t *testing.T) {
	got := SummarizeJournal([]JournalEntry{
		{Date: "2024-03-01", Content: "#calm morning"},
		{Date: "2024-03-01", Content: "again #Calm and #focus"},
		{Date: "2024-03-02", Content: "plain"},
	})
	want := JournalStats{Entries: 3, Days: 2, TagCount: 2}
	if got != want {
		t.Errorf("journal = %+v, want %+v", got, want)
	}
}

func TestSummarizeMeditation(t *testing.T) {
	got := SummarizeMeditation([]MeditationSession{{Duration: 10, Date: time.Now().Format(DateLayout)}, {Duration: 25}})
	if got != (MeditationStats{SessionCount: 2, TotalMinutes: 35, LongestMinutes: 25}) {
		t.Errorf("meditation = %+v", got)
	}
}
