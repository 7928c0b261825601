package markov

import (
	"context"
	"fmt"
	"log/slog"
)

// Build counts every order-k window of stream and the token that follows it.
// A stream no longer than order yields an empty table. Any invalid token aborts
// the build and no table is returned.
func Build(stream []string, order int) (*Table, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	for i, tok := range stream {
		if err := validateToken(tok); err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
	}

	t := newTable(order)
	for i := 0; i+order < len(stream); i++ {
		t.observe(stream[i:i+order], stream[i+order], 1)
	}
	return t, nil
}

// Train builds a table of the model's order from stream and replaces the
// model's current table with it.
func (m *Model) Train(ctx context.Context, stream []string) error {
	t, err := Build(stream, m.order)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	m.setTable(t)

	m.logger.InfoContext(ctx, "Training completed",
		slog.Int("order", m.order),
		slog.Int("tokens_processed", len(stream)),
		slog.Int("states", t.Len()),
	)
	return nil
}

// TrainAndSave trains the model and persists the result under name.
func (m *Model) TrainAndSave(ctx context.Context, stream []string, store Store, name string) error {
	if err := m.Train(ctx, stream); err != nil {
		return err
	}
	return m.Save(ctx, store, name)
}
