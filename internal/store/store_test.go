package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/slotheather55/webspark-sub000/internal/models"
)

func newTestStore(t *testing.T) *MacroStore {
	t.Helper()
	s, err := NewMacroStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func testMacro(name string, createdAt time.Time) *models.Macro {
	return &models.Macro{
		Name:      name,
		URL:       "https://example.com",
		CreatedAt: createdAt,
		Actions: []models.MacroAction{
			{SequenceID: 1, OffsetMs: 0, Kind: models.ActionPageLoad},
			{SequenceID: 2, OffsetMs: 800, Kind: models.ActionClick, Selector: "#buy"},
		},
	}
}

func TestSaveAssignsIDAndRoundTrips(t *testing.T) {
	s := newTestStore(t)

	macro := testMacro("checkout", time.Now())
	if err := s.Save(macro); err != nil {
		t.Fatal(err)
	}
	if macro.ID == "" {
		t.Fatal("Save should assign an ID")
	}

	loaded, err := s.Load(macro.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "checkout" || len(loaded.Actions) != 2 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if loaded.Actions[1].Selector != "#buy" {
		t.Fatalf("action not preserved: %+v", loaded.Actions[1])
	}
}

func TestSaveRejectsInvalidOrdering(t *testing.T) {
	s := newTestStore(t)

	macro := testMacro("broken", time.Now())
	macro.Actions[1].SequenceID = 5
	if err := s.Save(macro); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"oldest", "middle", "newest"} {
		if err := s.Save(testMacro(name, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Name != "newest" || entries[2].Name != "oldest" {
		t.Fatalf("wrong order: %s, %s, %s", entries[0].Name, entries[1].Name, entries[2].Name)
	}
	if entries[0].ActionCount != 2 {
		t.Fatalf("index entry action count = %d, want 2", entries[0].ActionCount)
	}
}

func TestSaveOverwriteKeepsSingleIndexEntry(t *testing.T) {
	s := newTestStore(t)

	macro := testMacro("first", time.Now())
	if err := s.Save(macro); err != nil {
		t.Fatal(err)
	}
	macro.Name = "renamed"
	if err := s.Save(macro); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries after overwrite, want 1", len(entries))
	}
	if entries[0].Name != "renamed" {
		t.Fatalf("index not updated: %s", entries[0].Name)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	macro := testMacro("doomed", time.Now())
	if err := s.Save(macro); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(macro.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(macro.ID); !errors.Is(err, models.ErrMacroNotFound) {
		t.Fatalf("Load after delete: got %v, want ErrMacroNotFound", err)
	}
	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("index still has %d entries", len(entries))
	}
}

func TestDeleteMissing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete("nope"); !errors.Is(err, models.ErrMacroNotFound) {
		t.Fatalf("got %v, want ErrMacroNotFound", err)
	}
}

func TestMacroPathStripsSeparators(t *testing.T) {
	dir := t.TempDir()
	s, err := NewMacroStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	path := s.macroPath("../escape/attempt")
	if filepath.Dir(path) != dir {
		t.Fatalf("macro path %q escapes store dir %q", path, dir)
	}
}
