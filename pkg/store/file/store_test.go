package file_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/Quatrain/pkg/markov"
	"github.com/CTAG07/Quatrain/pkg/store/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTable(t *testing.T, order int) *markov.Table {
	t.Helper()
	stream := strings.Fields("<START> one fish two fish <END> <START> red fish blue fish <END>")
	table, err := markov.Build(stream, order)
	require.NoError(t, err)
	return table
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "Dataset", "MarkovChain")
	store := file.New(dir)

	for _, order := range []int{1, 2, 4, 20} {
		table := buildTable(t, order)
		require.NoError(t, store.Save(ctx, "model.qmk", table))

		loaded, err := store.Load(ctx, "model.qmk")
		require.NoError(t, err)
		assert.True(t, loaded.Equal(table), "order %d round trip changed the table", order)
	}

	_, err := os.Stat(dir)
	assert.NoError(t, err, "Save should create the model directory")
}

func TestStore_LoadMissing(t *testing.T) {
	store := file.New(t.TempDir())

	_, err := store.Load(context.Background(), "absent.qmk")
	var nf *markov.ModelNotFoundError
	require.True(t, errors.As(err, &nf), "expected ModelNotFoundError, got %v", err)
	assert.Equal(t, "absent.qmk", nf.Name)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestStore_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.qmk"), []byte("not a snapshot"), 0644))

	_, err := file.New(dir).Load(context.Background(), "bad.qmk")
	assert.ErrorIs(t, err, markov.ErrInvalidSnapshot)
	assert.False(t, markov.IsModelNotFound(err))
}

func TestStore_InvalidNames(t *testing.T) {
	store := file.New(t.TempDir())
	table := buildTable(t, 1)
	for _, name := range []string{"", "..", "../escape", "a/b"} {
		assert.Error(t, store.Save(context.Background(), name, table), "name %q", name)
	}
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	store := file.New(t.TempDir())
	require.NoError(t, store.Save(ctx, "gone.qmk", buildTable(t, 1)))

	require.NoError(t, store.Remove(ctx, "gone.qmk"))
	_, err := store.Load(ctx, "gone.qmk")
	assert.True(t, markov.IsModelNotFound(err))
	assert.NoError(t, store.Remove(ctx, "gone.qmk"))
}

func TestStore_ModelFallback(t *testing.T) {
	ctx := context.Background()
	store := file.New(t.TempDir())
	m, err := markov.NewModel(1)
	require.NoError(t, err)

	err = m.Load(ctx, store, "never-trained.qmk")
	require.True(t, markov.IsModelNotFound(err))

	// Rebuild on a missing snapshot, then retry the load.
	stream := strings.Fields("<START> a b <END>")
	require.NoError(t, m.TrainAndSave(ctx, stream, store, "never-trained.qmk"))
	require.NoError(t, m.Load(ctx, store, "never-trained.qmk"))

	out, err := m.Generate(ctx, markov.WithMaxLength(10))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store := file.New(filepath.Join(t.TempDir(), "models"))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "a missing directory holds no models")

	require.NoError(t, store.Save(ctx, "b.qmk", buildTable(t, 1)))
	require.NoError(t, store.Save(ctx, "a.qmk", buildTable(t, 2)))

	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.qmk", "b.qmk"}, names)
}
