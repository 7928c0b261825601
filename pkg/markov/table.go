package markov

import (
	"fmt"
	"maps"
	"slices"
)

// Distribution maps a next token to the number of times it followed an NGram.
// Every count is at least 1 and a Distribution stored in a Table is never empty.
type Distribution map[string]int

// Total returns the sum of all counts.
func (d Distribution) Total() int {
	var total int
	for _, c := range d {
		total += c
	}
	return total
}

// Table is an order-k transition table. It is read-only once returned by
// Build, a TableBuilder, or a Store, and is safe for concurrent readers.
type Table struct {
	order int
	rows  map[string]Distribution
}

func newTable(order int) *Table {
	return &Table{order: order, rows: make(map[string]Distribution)}
}

// observe adds count occurrences of gram -> next, creating the row on first touch.
func (t *Table) observe(gram NGram, next string, count int) {
	key := gram.Key()
	row, ok := t.rows[key]
	if !ok {
		row = make(Distribution)
		t.rows[key] = row
	}
	row[next] += count
}

// Order returns the n-gram length used for every key of the table.
func (t *Table) Order() int { return t.order }

// Len returns the number of distinct n-grams in the table.
func (t *Table) Len() int { return len(t.rows) }

// Next returns a copy of the distribution observed after gram, and whether
// gram is present at all.
func (t *Table) Next(gram NGram) (Distribution, bool) {
	row, ok := t.rows[gram.Key()]
	if !ok {
		return nil, false
	}
	return maps.Clone(row), true
}

// NGrams returns every n-gram in the table sorted by key.
func (t *Table) NGrams() []NGram {
	keys := slices.Sorted(maps.Keys(t.rows))
	grams := make([]NGram, len(keys))
	for i, k := range keys {
		grams[i] = parseKey(k)
	}
	return grams
}

// Range calls fn for every transition in key order, then token order, until
// fn returns false.
func (t *Table) Range(fn func(gram NGram, next string, count int) bool) {
	for _, key := range slices.Sorted(maps.Keys(t.rows)) {
		gram := parseKey(key)
		row := t.rows[key]
		for _, next := range slices.Sorted(maps.Keys(row)) {
			if !fn(gram, next, row[next]) {
				return
			}
		}
	}
}

// Equal reports whether both tables have the same order, keys, and counts.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.order != other.order || len(t.rows) != len(other.rows) {
		return false
	}
	for key, row := range t.rows {
		otherRow, ok := other.rows[key]
		if !ok || !maps.Equal(row, otherRow) {
			return false
		}
	}
	return true
}

// StartStates returns the sorted n-grams whose first token is start and whose
// remaining tokens contain no sentinel. For order 1 that is just (start,) when present.
func (t *Table) StartStates(start string) []NGram {
	if t.order == 1 {
		if _, ok := t.rows[start]; ok {
			return []NGram{{start}}
		}
		return nil
	}
	var states []NGram
	for key := range t.rows {
		gram := parseKey(key)
		if gram[0] != start || slices.ContainsFunc(gram[1:], IsSentinel) {
			continue
		}
		states = append(states, gram)
	}
	slices.SortFunc(states, func(a, b NGram) int {
		return slices.Compare(a, b)
	})
	return states
}

// choice is a candidate next token with its count.
type choice struct {
	token string
	freq  int
}

// choices returns the candidates after the n-gram with the given key sorted by
// token, so that a seeded source always sees them in the same order.
func (t *Table) choices(key string) []choice {
	row, ok := t.rows[key]
	if !ok {
		return nil
	}
	out := make([]choice, 0, len(row))
	for _, tok := range slices.Sorted(maps.Keys(row)) {
		out = append(out, choice{token: tok, freq: row[tok]})
	}
	return out
}

// TableBuilder assembles a Table from already-counted transitions, as read
// back from persistent storage. Counts added twice for the same transition are summed.
type TableBuilder struct {
	t *Table
}

// NewTableBuilder starts an empty table of the given order.
func NewTableBuilder(order int) (*TableBuilder, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	return &TableBuilder{t: newTable(order)}, nil
}

// Add records count occurrences of gram -> next.
func (b *TableBuilder) Add(gram NGram, next string, count int) error {
	if b.t == nil {
		return ErrBuilderDone
	}
	if len(gram) != b.t.order {
		return fmt.Errorf("n-gram %s has length %d, want %d", gram, len(gram), b.t.order)
	}
	if count < 1 {
		return fmt.Errorf("transition %s -> %q has non-positive count %d", gram, next, count)
	}
	for _, tok := range gram {
		if err := validateToken(tok); err != nil {
			return err
		}
	}
	if err := validateToken(next); err != nil {
		return err
	}
	b.t.observe(gram, next, count)
	return nil
}

// Table finishes the builder and returns the table. The builder cannot be reused.
func (b *TableBuilder) Table() *Table {
	t := b.t
	b.t = nil
	return t
}
