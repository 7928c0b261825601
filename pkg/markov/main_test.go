package markov

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
)

// memStore is an in-memory Store that keeps snapshot bytes, so every test that
// goes through it also exercises the binary codec.
type memStore struct {
	mu     sync.Mutex
	tables map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{tables: make(map[string][]byte)}
}

func (s *memStore) Save(_ context.Context, name string, t *Table) error {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = buf.Bytes()
	return nil
}

func (s *memStore) Load(_ context.Context, name string) (*Table, error) {
	s.mu.Lock()
	data, ok := s.tables[name]
	s.mu.Unlock()
	if !ok {
		return nil, &ModelNotFoundError{Name: name}
	}
	return ReadSnapshot(bytes.NewReader(data))
}

// poemStream returns the token stream of a small two-poem corpus.
func poemStream() []string {
	return strings.Fields(StartToken + " one fish two fish " + EndToken + " " +
		StartToken + " red fish blue fish " + EndToken)
}

// mustBuild builds a table or fails the test.
func mustBuild(t testing.TB, stream []string, order int) *Table {
	t.Helper()
	table, err := Build(stream, order)
	if err != nil {
		t.Fatalf("Build(order=%d) error = %v", order, err)
	}
	return table
}

// setupTrainedModel returns a model of the given order trained on poemStream.
func setupTrainedModel(t *testing.T, order int) (context.Context, *Model) {
	t.Helper()
	m, err := NewModel(order)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	ctx := context.Background()
	if err := m.Train(ctx, poemStream()); err != nil {
		t.Fatalf("setup: Train() failed: %v", err)
	}
	return ctx, m
}

var (
	benchmarkCorpus []string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus synthesizes a long stream of short poems.
func createBenchmarkCorpus() []string {
	corpusOnce.Do(func() {
		words := strings.Fields("because i could not stop for death he kindly stopped for me " +
			"the carriage held but just ourselves and immortality we slowly drove " +
			"he knew no haste and i had put away my labor and my leisure too")
		for p := 0; p < 2000; p++ {
			benchmarkCorpus = append(benchmarkCorpus, StartToken)
			for i := 0; i < 24; i++ {
				benchmarkCorpus = append(benchmarkCorpus, words[(p*7+i*i)%len(words)])
			}
			benchmarkCorpus = append(benchmarkCorpus, EndToken)
		}
	})
	return benchmarkCorpus
}

func containsSentinel(tokens []string) (string, bool) {
	for _, tok := range tokens {
		if IsSentinel(tok) {
			return tok, true
		}
	}
	return "", false
}

func tokens(s string) []string {
	return strings.Fields(s)
}
