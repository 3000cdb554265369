package tags

import (
	"regexp"
	"testing"
)

func TestDefault_WireTags(t *testing.T) {
	r := Default()
	want := map[Domain]string{
		Book:        "BOOK:",
		Goal:        "GOAL:",
		Transaction: "FINANCE:",
		Journal:     "JOURNAL:",
		Meditation:  "MEDITATION:",
		Detox:       "DETOX:",
	}
	for d, tag := range want {
		if got := r.PrefixFor(d); got != tag {
			t.Errorf("PrefixFor(%s) = %q, want %q", d, got, tag)
		}
	}
	if got := r.PrefixFor(Note); got != "" {
		t.Errorf("PrefixFor(Note) = %q, want empty", got)
	}
}

func TestMatchesAny(t *testing.T) {
	r := Default()
	tests := []struct {
		title  string
		domain Domain
		ok     bool
	}{
		{"BOOK: Dune by Herbert", Book, true},
		{"FINANCE: expense - coffee", Transaction, true},
		{"DETOX: 00:10:00 - 2024-03-01", Detox, true},
		{"Groceries", Note, false},
		{"book: lowercase is not a tag", Note, false},
		{" BOOK: leading space", Note, false},
		{"", Note, false},
	}
	for _, tt := range tests {
		d, ok := r.MatchesAny(tt.title)
		if d != tt.domain || ok != tt.ok {
			t.Errorf("MatchesAny(%q) = %s,%v want %s,%v", tt.title, d, ok, tt.domain, tt.ok)
		}
	}
}

func TestExclusionPattern_AgreesWithMatchesAny(t *testing.T) {
	r := Default()
	re := regexp.MustCompile(r.ExclusionPattern())
	titles := []string{
		"BOOK: x", "GOAL: y", "FINANCE: z", "JOURNAL: 2024-01-01", "MEDITATION: 10 min", "DETOX: 1",
		"plain", "Quick Note: 2024-01-01 10:00", "BOOKS are great", "GOAL without colon", "(BOOK:)",
	}
	for _, title := range titles {
		_, tagged := r.MatchesAny(title)
		if re.MatchString(title) != tagged {
			t.Errorf("%q: exclusion pattern says %v, MatchesAny says %v", title, re.MatchString(title), tagged)
		}
		if r.Reserved(title) != tagged {
			t.Errorf("%q: Reserved = %v, want %v", title, r.Reserved(title), tagged)
		}
	}
}

func TestExclusionPattern_FollowsRegistry(t *testing.T) {
	r := New("A.B:", Book, "C+:", Goal)
	if got, want := r.ExclusionPattern(), `^(A\.B:|C\+:)`; got != want {
		t.Errorf("ExclusionPattern = %q, want %q", got, want)
	}
	if r.Reserved("AXB: not a tag") {
		t.Error("metacharacters in tags must be quoted")
	}
}

func TestEmptyRegistry(t *testing.T) {
	r := New()
	if p := r.ExclusionPattern(); p != "" {
		t.Errorf("ExclusionPattern = %q, want empty", p)
	}
	if r.Reserved("BOOK: x") {
		t.Error("empty registry reserves nothing")
	}
	if d := r.Classify("BOOK: x"); d != Note {
		t.Errorf("Classify = %s, want note", d)
	}
}

func TestNew_PanicsOnOverlap(t *testing.T) {
	cases := [][]any{
		{"BOOK:", Book, "BOOK:", Goal},
		{"BOOK", Book, "BOOK:", Goal},
		{"BOOK:", Book, "GOAL:", Book},
		{"X:", Note},
		{"X:"},
	}
	for i, c := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("case %d: expected panic", i)
				}
			}()
			New(c...)
		}()
	}
}

func TestParseDomain(t *testing.T) {
	if d, ok := ParseDomain(" Book "); !ok || d != Book {
		t.Errorf("ParseDomain(Book) = %s,%v", d, ok)
	}
	if _, ok := ParseDomain("movies"); ok {
		t.Error("ParseDomain accepted an unknown domain")
	}
}

func TestPrefixPattern(t *testing.T) {
	re := regexp.MustCompile(PrefixPattern("FINANCE:"))
	if !re.MatchString("FINANCE: income - salary") || re.MatchString("x FINANCE:") {
		t.Error("PrefixPattern must anchor at the start")
	}
}
