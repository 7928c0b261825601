package markov

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Store persists transition tables under a name. Load returns a
// *ModelNotFoundError when nothing is stored under the name; every other
// failure is returned as-is.
type Store interface {
	Save(ctx context.Context, name string, t *Table) error
	Load(ctx context.Context, name string) (*Table, error)
}

// Model owns a transition table of a fixed order. Train and Load replace the
// table wholesale; generation only ever reads it.
type Model struct {
	order  int
	mu     sync.RWMutex
	table  *Table
	logger *slog.Logger
}

// NewModel returns an untrained model of the given order. Generating from it
// fails with a NoStartStateError until it is trained or loaded.
func NewModel(order int) (*Model, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	return &Model{
		order:  order,
		table:  newTable(order),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the Model. By default, all logs are discarded.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Order returns the model's n-gram order.
func (m *Model) Order() int { return m.order }

// Table returns the model's current table.
func (m *Model) Table() *Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table
}

func (m *Model) setTable(t *Table) {
	m.mu.Lock()
	m.table = t
	m.mu.Unlock()
}

// Save persists the current table under name.
func (m *Model) Save(ctx context.Context, store Store, name string) error {
	t := m.Table()
	if err := store.Save(ctx, name, t); err != nil {
		return fmt.Errorf("could not save model %q: %w", name, err)
	}
	m.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("order", t.Order()),
		slog.Int("states", t.Len()),
	)
	return nil
}

// Load replaces the current table with the one stored under name. A missing
// model surfaces as a *ModelNotFoundError and leaves the current table untouched.
func (m *Model) Load(ctx context.Context, store Store, name string) error {
	t, err := store.Load(ctx, name)
	if err != nil {
		return err
	}
	if t.Order() != m.order {
		return fmt.Errorf("%w: %q has order %d, model has order %d", ErrOrderMismatch, name, t.Order(), m.order)
	}
	m.setTable(t)

	m.logger.InfoContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.Int("order", t.Order()),
		slog.Int("states", t.Len()),
	)
	return nil
}
