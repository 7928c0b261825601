// Package file stores transition tables as binary snapshots in a local directory.
package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/CTAG07/Quatrain/pkg/markov"
	"github.com/natefinch/atomic"
)

// Store implements markov.Store on the local filesystem. Each table is one
// snapshot file named after the model inside Dir.
type Store struct {
	Dir string
}

// New creates a new Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the file a model named name is stored in.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("model name %q must be a plain file name", name)
	}
	return nil
}

// Save writes the snapshot of t atomically, creating Dir if it does not exist.
func (s *Store) Save(_ context.Context, name string, t *markov.Table) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure model directory: %w", err)
	}

	var buf bytes.Buffer
	if err := markov.WriteSnapshot(&buf, t); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := atomic.WriteFile(s.Path(name), &buf); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot stored under name.
func (s *Store) Load(_ context.Context, name string) (*markov.Table, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &markov.ModelNotFoundError{Name: name, Err: err}
		}
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	t, err := markov.ReadSnapshot(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %q: %w", s.Path(name), err)
	}
	return t, nil
}

// Remove deletes the snapshot stored under name. Removing a missing model is not an error.
func (s *Store) Remove(_ context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the names of the stored models. A missing Dir holds no models.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
