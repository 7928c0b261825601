package markov

// Stats holds aggregated statistics for a single table.
type Stats struct {
	Order          int // The n-gram order of the table.
	States         int // The number of distinct n-grams.
	Transitions    int // The number of unique n-gram -> next token links.
	TotalFrequency int // The sum of all link counts; the number of trained windows.
	StartStates    int // The number of n-grams generation can start from.
	Vocabulary     int // The number of distinct tokens, sentinels included.
}

// Stats returns a snapshot of statistics for the table.
func (t *Table) Stats() Stats {
	stats := Stats{
		Order:       t.order,
		States:      len(t.rows),
		StartStates: len(t.StartStates(StartToken)),
	}
	vocab := make(map[string]struct{})
	for key, row := range t.rows {
		for _, tok := range parseKey(key) {
			vocab[tok] = struct{}{}
		}
		for next, count := range row {
			vocab[next] = struct{}{}
			stats.Transitions++
			stats.TotalFrequency += count
		}
	}
	stats.Vocabulary = len(vocab)
	return stats
}
