package markov

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
)

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	maxLength   int
	start       string
	rng         *rand.Rand
	temperature float64
	topK        int
}

func defaultGenerateOptions() *generateOptions {
	return &generateOptions{
		maxLength:   50,
		start:       StartToken,
		temperature: 1.0,
	}
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in generation functions like Generate and GenerateStream.
type GenerateOption func(*generateOptions)

// WithMaxLength sets the maximum number of tokens to generate. Generation may
// stop earlier when the end of a poem is sampled or the walk reaches a dead end.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithStartToken sets the token the walk starts from. For order 1 the initial
// state is (tok,); for higher orders it is a random n-gram beginning with tok.
// The start token itself is never emitted. Default: StartToken.
func WithStartToken(tok string) GenerateOption {
	return func(o *generateOptions) { o.start = tok }
}

// WithRand sets the random source used for start-state and token selection.
func WithRand(r *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = r }
}

// WithSeed is shorthand for WithRand with a PCG source seeded from seed.
func WithSeed(seed uint64) GenerateOption {
	return func(o *generateOptions) { o.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithTemperature adjusts the randomness of the token selection.
// A value of 1.0 is standard weighted random selection.
// Values > 1.0 increase randomness (making less frequent tokens more likely).
// Values < 1.0 decrease randomness (making more frequent tokens even more likely).
// A value of 0 or less results in deterministic selection (always choosing the most frequent token).
func WithTemperature(t float64) GenerateOption {
	return func(o *generateOptions) { o.temperature = t }
}

// WithTopK restricts the token selection pool to the top `k` most frequent tokens
// at each step. A value of 0 disables Top-K sampling.
func WithTopK(k int) GenerateOption {
	return func(o *generateOptions) { o.topK = k }
}

func buildOptions(opts []GenerateOption) *generateOptions {
	options := defaultGenerateOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.rng == nil {
		options.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return options
}

// stopReason records why a walk ended.
type stopReason string

const (
	stopMaxLength stopReason = "max_length"
	stopEnd       stopReason = "end_token"
	stopDeadEnd   stopReason = "dead_end"
	stopStart     stopReason = "start_token"
	stopCancelled stopReason = "cancelled"
)

// Generate walks the model's table and returns the generated tokens. Sentinels
// never appear in the result and its length never exceeds the max length.
// A table without a usable start state yields a *NoStartStateError.
func (m *Model) Generate(ctx context.Context, opts ...GenerateOption) ([]string, error) {
	options := buildOptions(opts)
	t := m.Table()

	state, err := t.initialState(options)
	if err != nil {
		m.logger.DebugContext(ctx, "Generation has no start state",
			slog.Int("order", t.Order()),
			slog.String("start_token", options.start),
		)
		return nil, err
	}

	var out []string
	reason := t.walk(state, options, func(tok string) bool {
		out = append(out, tok)
		return true
	})

	m.logger.DebugContext(ctx, "Generation terminated",
		slog.String("reason", string(reason)),
		slog.Int("order", t.Order()),
		slog.Int("generated_length", len(out)),
		slog.Int("max_length", options.maxLength),
	)
	return out, nil
}

// GenerateString is Generate with the tokens joined by single spaces.
func (m *Model) GenerateString(ctx context.Context, opts ...GenerateOption) (string, error) {
	tokens, err := m.Generate(ctx, opts...)
	if err != nil {
		return "", err
	}
	return strings.Join(tokens, " "), nil
}

// Generate walks the table directly; see Model.Generate.
func (t *Table) Generate(opts ...GenerateOption) ([]string, error) {
	options := buildOptions(opts)
	state, err := t.initialState(options)
	if err != nil {
		return nil, err
	}
	var out []string
	t.walk(state, options, func(tok string) bool {
		out = append(out, tok)
		return true
	})
	return out, nil
}

// initialState resolves the n-gram the walk starts from.
func (t *Table) initialState(o *generateOptions) (NGram, error) {
	states := t.StartStates(o.start)
	if len(states) == 0 {
		return nil, &NoStartStateError{Order: t.order, Start: o.start}
	}
	if len(states) == 1 {
		return states[0], nil
	}
	return states[o.rng.IntN(len(states))], nil
}

// walk emits the tail of the start state and then samples transitions until a
// terminal condition is met or emit returns false. state is owned by walk.
func (t *Table) walk(state NGram, o *generateOptions, emit func(string) bool) stopReason {
	generated := 0

	// The leading start token is never emitted; the rest of the window is.
	for _, tok := range state[1:] {
		if generated >= o.maxLength {
			return stopMaxLength
		}
		if !emit(tok) {
			return stopCancelled
		}
		generated++
	}

	for generated < o.maxLength {
		choices := t.choices(state.Key())
		if len(choices) == 0 {
			return stopDeadEnd
		}

		next := chooseNextToken(choices, o)
		switch next {
		case EndToken:
			return stopEnd
		case StartToken:
			// Only reachable when a poem boundary is missing from the corpus.
			return stopStart
		}

		if !emit(next) {
			return stopCancelled
		}
		generated++

		// Shift the window by one.
		state = append(state[1:], next)
	}
	return stopMaxLength
}

// chooseNextToken abstracts the token selection logic from the generation loop.
// choices must be in a stable order for seeded sources to be reproducible.
func chooseNextToken(choices []choice, options *generateOptions) string {
	var nextToken string

	// topK filtering
	if options.topK > 0 && options.topK < len(choices) {
		sort.SliceStable(choices, func(i, j int) bool {
			return choices[i].freq > choices[j].freq
		})
		choices = choices[:options.topK]
	}

	// temperature selection
	if options.temperature <= 0 { // Deterministic
		maxFreq := -1
		for _, c := range choices {
			if c.freq > maxFreq {
				maxFreq = c.freq
				nextToken = c.token
			}
		}
		return nextToken
	}

	// Weighted random, with weights sharpened or flattened by temperature.
	weights := make([]float64, len(choices))
	if options.temperature == 1.0 {
		for i, c := range choices {
			weights[i] = float64(c.freq)
		}
	} else {
		maxLogProb := math.Inf(-1)
		for i, c := range choices {
			weights[i] = math.Log(float64(c.freq)) / options.temperature
			maxLogProb = max(maxLogProb, weights[i])
		}
		for i := range weights {
			weights[i] = math.Exp(weights[i] - maxLogProb)
		}
	}

	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}
	randChoice := options.rng.Float64() * totalWeight
	nextToken = choices[len(choices)-1].token
	for i, c := range choices {
		randChoice -= weights[i]
		if randChoice < 0 {
			nextToken = c.token
			break
		}
	}
	return nextToken
}
