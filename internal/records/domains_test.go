package records

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/starford/sanctum/internal/apperr"
)

func TestDetox_Floor(t *testing.T) {
	s, mem, _ := newTestStore(t)
	ctx := ownerCtx()

	_, persisted, err := s.Detox.Record(ctx, t0, t0.Add(3*time.Second))
	if err != nil || persisted {
		t.Fatalf("3s session: persisted=%v err=%v", persisted, err)
	}
	if mem.Len() != 0 {
		t.Fatalf("3s session written")
	}
	_, persisted, _ = s.Detox.Record(ctx, t0, t0.Add(5*time.Second))
	if persisted {
		t.Error("5s session must not be persisted")
	}

	sess, persisted, err := s.Detox.Record(ctx, t0, t0.Add(6*time.Second))
	if err != nil || !persisted {
		t.Fatalf("6s session: persisted=%v err=%v", persisted, err)
	}
	if sess.DurationSeconds != 6 {
		t.Errorf("duration = %d, want 6", sess.DurationSeconds)
	}
	list, _ := s.Detox.List(ctx, "")
	if len(list) != 1 || list[0].DurationSeconds != 6 {
		t.Errorf("stored sessions = %+v", list)
	}
}

func TestDetox_DurationRounds(t *testing.T) {
	d := NewDetoxSession(t0, t0.Add(6*time.Second+600*time.Millisecond))
	if d.DurationSeconds != 7 {
		t.Errorf("duration = %d, want 7", d.DurationSeconds)
	}
}

func TestDetox_SaveRejectsShortOrInverted(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := ownerCtx()
	for _, d := range []DetoxSession{
		NewDetoxSession(t0, t0.Add(4*time.Second)),
		{StartTime: t0, EndTime: t0.Add(-time.Minute), DurationSeconds: 60},
	} {
		if _, err := s.Detox.Save(ctx, d); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%+v: err = %v", d, err)
		}
	}
}

func TestTransaction_Validation(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := ownerCtx()
	bad := []Transaction{
		{Type: Expense, Amount: 0, Description: "zero"},
		{Type: Expense, Amount: -5, Description: "negative"},
		{Type: Expense, Amount: 5},
		{Type: "gift", Amount: 5, Description: "bad type"},
		{Type: Expense, Amount: 5, Description: "income category", Category: "salary"},
		{Type: Expense, Amount: math.Inf(1), Description: "inf"},
		{Type: Expense, Amount: 5, Description: "bad date", Date: "03/01/2024"},
	}
	for _, tx := range bad {
		if _, err := s.Transactions.Save(ctx, tx); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%+v: err = %v, want ErrValidation", tx, err)
		}
	}

	tx, err := s.Transactions.Save(ctx, Transaction{Type: Income, Amount: 1000, Category: " Salary ", Description: "March"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if tx.Category != "salary" || tx.Date != "2024-03-01" {
		t.Errorf("normalized = %+v", tx)
	}
	if _, err := s.Transactions.Save(ctx, Transaction{Type: Expense, Amount: 300, Description: "rent"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	stats, err := s.Transactions.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Balance != 700 || stats.ExpenseByCategory["other"] != 300 {
		t.Errorf("stats = %+v", stats)
	}
	recent, _ := s.Transactions.Recent(ctx, 1)
	if len(recent) != 1 || recent[0].Description != "rent" {
		t.Errorf("recent = %+v", recent)
	}
}

func TestGoal_ProgressClamps(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := ownerCtx()
	g, err := s.Goals.Save(ctx, Goal{Title: "Read 20 books", Progress: -10})
	if err != nil {
		t.Fatal(err)
	}
	if g.Progress != 0 || g.Status != NotStarted {
		t.Errorf("goal = %+v", g)
	}
	g, err = s.Goals.SetProgress(ctx, g.ID, 150)
	if err != nil {
		t.Fatal(err)
	}
	if g.Progress != 100 || g.Status != InProgress {
		t.Errorf("goal = %+v", g)
	}
	active, _ := s.Goals.InProgress(ctx, 5)
	if len(active) != 1 {
		t.Errorf("in progress = %d", len(active))
	}
}

func TestJournal_Tagged(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := ownerCtx()
	e, err := s.Journal.Save(ctx, JournalEntry{Content: "slow start #calm"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Date != "2024-03-01" {
		t.Errorf("date default = %q", e.Date)
	}
	_, _ = s.Journal.Save(ctx, JournalEntry{Title: "busy", Content: "meetings", Date: "2024-03-02"})
	if _, err := s.Journal.Save(ctx, JournalEntry{Title: "empty"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty content: err = %v", err)
	}
	calm, err := s.Journal.Tagged(ctx, "calm")
	if err != nil {
		t.Fatal(err)
	}
	if len(calm) != 1 || calm[0].ID != e.ID {
		t.Errorf("tagged = %+v", calm)
	}
}

func TestMeditation_Save(t *testing.T) {
	s, mem, _ := newTestStore(t)
	ctx := ownerCtx()
	m, err := s.Meditations.Save(ctx, MeditationSession{Duration: 20, Technique: " body scan "})
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := mem.Get(ctx, m.ID)
	if doc.Title != "MEDITATION: 20 min body scan - 2024-03-01" {
		t.Errorf("title = %q", doc.Title)
	}
	if _, err := s.Meditations.Save(ctx, MeditationSession{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("zero duration: err = %v", err)
	}
}

func TestDetox_SaveStoresEndpointsInUTC(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := ownerCtx()
	zone := time.FixedZone("EST", -5*3600)
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, zone)

	saved, err := s.Detox.Save(ctx, DetoxSession{StartTime: start, EndTime: start.Add(90 * time.Second)})
	if err != nil {
		t.Fatal(err)
	}
	if saved.StartTime.Location() != time.UTC || saved.EndTime.Location() != time.UTC || saved.DurationSeconds != 90 {
		t.Errorf("saved = %+v", saved)
	}
	got, err := s.Detox.Get(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(saved, got) {
		t.Errorf("Get = %+v, saved %+v", got, saved)
	}
}
