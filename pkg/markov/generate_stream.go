package markov

import (
	"context"
	"log/slog"
)

// GenerateStream walks the model's table and returns a read-only channel of
// tokens. This allows for processing the generated text token-by-token. The
// start state is resolved before the call returns, so a *NoStartStateError is
// reported synchronously. The channel is closed once generation is complete
// or the context is cancelled.
func (m *Model) GenerateStream(ctx context.Context, opts ...GenerateOption) (<-chan string, error) {
	options := buildOptions(opts)
	t := m.Table()

	state, err := t.initialState(options)
	if err != nil {
		return nil, err
	}

	tokenChan := make(chan string)

	go func() {
		defer close(tokenChan)

		generated := 0
		reason := t.walk(state, options, func(tok string) bool {
			select {
			case <-ctx.Done():
				return false
			case tokenChan <- tok:
				generated++
				return true
			}
		})

		if reason == stopCancelled {
			m.logger.DebugContext(ctx, "Generation stream cancelled by context",
				slog.Int("generated_length", generated),
			)
			return
		}
		m.logger.DebugContext(ctx, "Generation stream terminated",
			slog.String("reason", string(reason)),
			slog.Int("generated_length", generated),
		)
	}()

	return tokenChan, nil
}
