// Package corpus turns a cleaned poetry corpus into the flat token stream the
// markov package trains on, and segments raw text into that cleaned form.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/CTAG07/Quatrain/pkg/markov"
)

// paragraphBreak separates the paragraphs of a poem's text.
const paragraphBreak = "\n\n"

// Poem is a single labeled poem. Text starts with markov.StartToken, ends with
// markov.EndToken, and separates paragraphs with a blank line.
type Poem struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// SchemaError reports a malformed corpus record. Index is -1 when the corpus
// as a whole is malformed.
type SchemaError struct {
	Index  int
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("corpus schema error: %s", e.Reason)
	}
	return fmt.Sprintf("corpus schema error: record %d: field %q: %s", e.Index, e.Field, e.Reason)
}

// Decode reads a JSON array of poem records. Records missing a text field, or
// with a non-string title or text, are rejected with a *SchemaError.
func Decode(r io.Reader) ([]Poem, error) {
	var records []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &SchemaError{Index: -1, Reason: fmt.Sprintf("expected a JSON array of poem records: %v", err)}
		}
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	poems := make([]Poem, 0, len(records))
	for i, record := range records {
		if record == nil {
			return nil, &SchemaError{Index: i, Field: "text", Reason: "record is null"}
		}
		var poem Poem

		raw, ok := record["text"]
		if !ok {
			return nil, &SchemaError{Index: i, Field: "text", Reason: "missing"}
		}
		if err := json.Unmarshal(raw, &poem.Text); err != nil || string(raw) == "null" {
			return nil, &SchemaError{Index: i, Field: "text", Reason: "must be a string"}
		}

		if raw, ok := record["title"]; ok {
			if err := json.Unmarshal(raw, &poem.Title); err != nil {
				return nil, &SchemaError{Index: i, Field: "title", Reason: "must be a string"}
			}
		}
		poems = append(poems, poem)
	}
	return poems, nil
}

// Words flattens poems into a single token stream in input order. Paragraph
// breaks inside a poem are collapsed before splitting on whitespace, so only
// the per-poem sentinels mark structure.
func Words(poems []Poem) ([]string, error) {
	var words []string
	for i, poem := range poems {
		text := strings.TrimSpace(poem.Text)
		if text == "" {
			return nil, &SchemaError{Index: i, Field: "text", Reason: "missing"}
		}
		if !strings.HasPrefix(text, markov.StartToken) || !strings.HasSuffix(text, markov.EndToken) {
			return nil, &SchemaError{Index: i, Field: "text", Reason: fmt.Sprintf("must start with %s and end with %s", markov.StartToken, markov.EndToken)}
		}
		text = strings.ReplaceAll(text, paragraphBreak, " ")
		words = append(words, strings.Fields(text)...)
	}
	return words, nil
}

// LoadFile decodes the corpus at path and returns its token stream.
func LoadFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	poems, err := Decode(file)
	if err != nil {
		return nil, err
	}
	return Words(poems)
}
