package parser

import (
	"strings"
	"testing"
)

func TestParse_TagsAndLinks(t *testing.T) {
	r := Parse("Morning pages #Gratitude and #focus.\nSee [[reading-log]] and [[dune|the book]], again [[reading-log]].")
	if len(r.Tags) != 2 || r.Tags[0] != "gratitude" || r.Tags[1] != "focus" {
		t.Errorf("tags = %v, want [gratitude focus]", r.Tags)
	}
	if len(r.Links) != 2 || r.Links[0] != "reading-log" || r.Links[1] != "dune" {
		t.Errorf("links = %v, want [reading-log dune]", r.Links)
	}
}

func TestParse_IgnoresHeadingsAndInlineHashes(t *testing.T) {
	r := Parse("# Heading\nissue#42 is not a tag, #1 neither")
	if len(r.Tags) != 0 {
		t.Errorf("tags = %v, want none", r.Tags)
	}
}

func TestParse_EmptyText(t *testing.T) {
	r := Parse("")
	if r.Tags == nil || r.Links == nil {
		t.Error("expected non-nil empty slices")
	}
	if r.Preview != "" {
		t.Errorf("preview = %q", r.Preview)
	}
}

func TestHasTag(t *testing.T) {
	r := Parse("today #Calm")
	if !r.HasTag("calm") || !r.HasTag("#CALM") {
		t.Error("HasTag should match case-insensitively with or without #")
	}
	if r.HasTag("busy") {
		t.Error("HasTag matched an absent tag")
	}
}

func TestPreview_Truncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	r := Parse(long)
	if !strings.HasSuffix(r.Preview, "…") {
		t.Errorf("preview not truncated: %q", r.Preview)
	}
	if n := len([]rune(r.Preview)); n > PreviewLength+1 {
		t.Errorf("preview runes = %d", n)
	}
	if got := Parse("a\n\n  b").Preview; got != "a b" {
		t.Errorf("preview = %q, want %q", got, "a b")
	}
}
