package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/Quatrain/pkg/markov"
	_ "modernc.org/sqlite"
)

// setupTestStore opens a fresh database file and a Store on top of it.
// It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}
	s, err := New(db)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Close)
	return db, s
}

func buildTable(t *testing.T, text string, order int) *markov.Table {
	t.Helper()
	table, err := markov.Build(strings.Fields(text), order)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return table
}

const fishPoems = "<START> one fish two fish <END> <START> red fish blue fish <END>"

func TestSetupSchemaIdempotent(t *testing.T) {
	db, _ := setupTestStore(t)
	if err := SetupSchema(db); err != nil {
		t.Fatalf("second SetupSchema() error = %v", err)
	}

	var text string
	if err := db.QueryRow(`SELECT token_text FROM markov_vocabulary WHERE token_id = ?`, StartTokenID).Scan(&text); err != nil {
		t.Fatalf("reserved token lookup failed: %v", err)
	}
	if text != markov.StartToken {
		t.Errorf("token %d = %q, want %q", StartTokenID, text, markov.StartToken)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	for _, order := range []int{1, 2, 3, 10} {
		table := buildTable(t, fishPoems, order)
		if err := s.Save(ctx, "fish", table); err != nil {
			t.Fatalf("Save(order %d) error = %v", order, err)
		}
		loaded, err := s.Load(ctx, "fish")
		if err != nil {
			t.Fatalf("Load(order %d) error = %v", order, err)
		}
		if !loaded.Equal(table) {
			t.Errorf("order %d: loaded table differs from saved table", order)
		}
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "m", buildTable(t, fishPoems, 2)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	replacement := buildTable(t, "<START> a b c <END>", 1)
	if err := s.Save(ctx, "m", replacement); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load(ctx, "m")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Equal(replacement) {
		t.Error("second Save should replace the stored chains, not merge them")
	}

	info, err := s.GetModelInfo(ctx, "m")
	if err != nil {
		t.Fatalf("GetModelInfo() error = %v", err)
	}
	if info.Order != 1 {
		t.Errorf("stored order = %d, want 1", info.Order)
	}
}

func TestStoreSharedVocabulary(t *testing.T) {
	db, s := setupTestStore(t)
	ctx := context.Background()

	first := buildTable(t, fishPoems, 1)
	second := buildTable(t, "<START> blue fish red fish <END>", 2)
	if err := s.Save(ctx, "first", first); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "second", second); err != nil {
		t.Fatal(err)
	}

	var vocab int
	if err := db.QueryRow(`SELECT COUNT(*) FROM markov_vocabulary`).Scan(&vocab); err != nil {
		t.Fatal(err)
	}
	// <START> <END> one fish two red blue
	if vocab != 7 {
		t.Errorf("vocabulary size = %d, want 7", vocab)
	}

	for name, want := range map[string]*markov.Table{"first": first, "second": second} {
		got, err := s.Load(ctx, name)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", name, err)
		}
		if !got.Equal(want) {
			t.Errorf("Load(%q) returned a different table", name)
		}
	}
}

func TestStoreLoadMissing(t *testing.T) {
	_, s := setupTestStore(t)

	_, err := s.Load(context.Background(), "absent")
	var nf *markov.ModelNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Load() error = %v, want ModelNotFoundError", err)
	}
	if nf.Name != "absent" {
		t.Errorf("ModelNotFoundError.Name = %q", nf.Name)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("missing model should match fs.ErrNotExist")
	}
}

func TestStoreEmptyTable(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	empty := buildTable(t, "<START> <END>", 3)
	if err := s.Save(ctx, "empty", empty); err != nil {
		t.Fatal(err)
	}
	loaded, err := s.Load(ctx, "empty")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Len() != 0 || loaded.Order() != 3 {
		t.Errorf("Load() = %d states of order %d, want 0 of order 3", loaded.Len(), loaded.Order())
	}
}

func TestStoreListRemove(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a"} {
		if err := s.Save(ctx, name, buildTable(t, fishPoems, 2)); err != nil {
			t.Fatal(err)
		}
	}

	models, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(models) != 2 || models[0].Name != "a" || models[1].Name != "b" {
		t.Fatalf("List() = %+v, want a and b", models)
	}

	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := s.Load(ctx, "a"); !markov.IsModelNotFound(err) {
		t.Errorf("Load after Remove error = %v, want ModelNotFoundError", err)
	}
	if err := s.Remove(ctx, "a"); err != nil {
		t.Errorf("removing a missing model should not fail: %v", err)
	}

	models, _ = s.List(ctx)
	if len(models) != 1 {
		t.Errorf("List() after Remove = %+v", models)
	}
}

func TestStorePrune(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	table := buildTable(t, fishPoems, 1)
	if err := s.Save(ctx, "fish", table); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Prune(ctx, "fish", 1)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	loaded, err := s.Load(ctx, "fish")
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Equal(table.Prune(1)) {
		t.Error("pruning in the database should match Table.Prune")
	}
	if want := int64(table.Stats().Transitions - loaded.Stats().Transitions); removed != want {
		t.Errorf("Prune() removed %d links, want %d", removed, want)
	}

	if _, err := s.Prune(ctx, "absent", 1); !markov.IsModelNotFound(err) {
		t.Errorf("Prune(absent) error = %v", err)
	}
}

func TestModelWithStore(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	m, err := markov.NewModel(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.TrainAndSave(ctx, strings.Fields(fishPoems), s, "poems"); err != nil {
		t.Fatalf("TrainAndSave() error = %v", err)
	}

	fresh, _ := markov.NewModel(2)
	if err := fresh.Load(ctx, s, "poems"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	a, err := m.Generate(ctx, markov.WithSeed(7))
	if err != nil {
		t.Fatal(err)
	}
	b, err := fresh.Generate(ctx, markov.WithSeed(7))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(a, " ") != strings.Join(b, " ") {
		t.Errorf("reloaded model generated %q, want %q", b, a)
	}
}
