package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/sanctum/internal/apperr"
)

func tempDir(t *testing.T) *Dir {
	t.Helper()
	d, err := NewDir(filepath.Join(t.TempDir(), "docs"), tickingClock())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	return d
}

func TestDir_Contract(t *testing.T) {
	p := tempDir(t)
	ctx := context.Background()
	a, err := p.Create(ctx, NewDocument{Title: "BOOK: a", Content: "{}"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, _ = p.Create(ctx, NewDocument{Title: "plain"})

	if _, err := os.Stat(filepath.Join(p.Root(), a.ID+".json")); err != nil {
		t.Fatalf("document file missing: %v", err)
	}
	docs, err := p.Filter(ctx, Query{Title: &TitleMatch{Pattern: "^BOOK:", Negate: true}}, "")
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if got := titles(docs); !equal(got, []string{"plain"}) {
		t.Errorf("untagged = %v", got)
	}

	pinned := true
	if _, err := p.Update(ctx, a.ID, Patch{IsPinned: &pinned}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	all, _ := p.List(ctx)
	if got := titles(all); !equal(got, []string{"BOOK: a", "plain"}) {
		t.Errorf("List = %v", got)
	}
	if err := p.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := p.Get(ctx, a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
}

func TestDir_RejectsTraversal(t *testing.T) {
	p := tempDir(t)
	for _, id := range []string{"../escape", "a/b", ".hidden", ""} {
		if _, err := p.Get(context.Background(), id); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Get(%q) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestDir_IgnoresForeignFiles(t *testing.T) {
	p := tempDir(t)
	_ = os.WriteFile(filepath.Join(p.Root(), "README.md"), []byte("hi"), 0o644)
	_ = os.WriteFile(filepath.Join(p.Root(), ".sanctum-tmp-1"), []byte("{"), 0o644)
	docs, err := p.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("List = %v, want empty", titles(docs))
	}
}

func TestDir_SkipsUnreadableDocuments(t *testing.T) {
	p := tempDir(t)
	ctx := context.Background()
	book, err := p.Create(ctx, NewDocument{Title: "BOOK: Dune by Herbert", Content: "{}"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.WriteFile(filepath.Join(p.Root(), "broken.json"), []byte("{trunc"), 0o644); err != nil {
		t.Fatal(err)
	}

	docs, err := p.Filter(ctx, Query{Title: &TitleMatch{Pattern: "^BOOK:"}}, "")
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != book.ID {
		t.Errorf("Filter = %v, want only %s", titles(docs), book.Title)
	}
	all, err := p.List(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("List = %v, %v", titles(all), err)
	}
	if _, err := p.Get(ctx, "broken"); err == nil {
		t.Error("Get of an unreadable document should fail")
	}
}
