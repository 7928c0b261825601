package markov

import (
	"encoding/json"
	"fmt"
	"io"
)

// ExportedTable is the serializable representation of a table,
// used for JSON-based import and export.
type ExportedTable struct {
	Order  int             `json:"order"`
	Chains []ExportedChain `json:"chains"`
}

// ExportedChain is the serializable representation of a single link
// in a Markov chain, used within an ExportedTable.
type ExportedChain struct {
	Prefix    []string `json:"prefix"`
	Next      string   `json:"next"`
	Frequency int      `json:"frequency"`
}

// ExportJSON writes t to w as indented JSON. Unlike the binary snapshot this
// format is meant for humans and other tools.
func ExportJSON(w io.Writer, t *Table) error {
	exported := ExportedTable{Order: t.Order(), Chains: []ExportedChain{}}
	t.Range(func(gram NGram, next string, count int) bool {
		exported.Chains = append(exported.Chains, ExportedChain{
			Prefix:    gram,
			Next:      next,
			Frequency: count,
		})
		return true
	})

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(exported)
}

// ImportJSON reads a table written by ExportJSON. Repeated links are merged
// by adding their frequencies.
func ImportJSON(r io.Reader) (*Table, error) {
	var imported ExportedTable
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return nil, fmt.Errorf("failed to decode json table: %w", err)
	}

	b, err := NewTableBuilder(imported.Order)
	if err != nil {
		return nil, err
	}
	for i, chain := range imported.Chains {
		if err := b.Add(chain.Prefix, chain.Next, chain.Frequency); err != nil {
			return nil, fmt.Errorf("import consistency error in chain %d: %w", i, err)
		}
	}
	return b.Table(), nil
}
