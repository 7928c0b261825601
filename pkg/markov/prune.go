package markov

// Prune returns a copy of the table without the links whose count is less
// than or equal to minFreq. This is useful for reducing the size of a model
// by removing rare, and often noisy, transitions. N-grams left with no links
// are dropped entirely, and the receiver is not modified.
func (t *Table) Prune(minFreq int) *Table {
	pruned := newTable(t.order)
	for key, row := range t.rows {
		var kept Distribution
		for next, count := range row {
			if count <= minFreq {
				continue
			}
			if kept == nil {
				kept = make(Distribution)
			}
			kept[next] = count
		}
		if kept != nil {
			pruned.rows[key] = kept
		}
	}
	return pruned
}
