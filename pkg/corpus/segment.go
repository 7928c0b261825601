package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/CTAG07/Quatrain/pkg/markov"
	"github.com/natefinch/atomic"
)

// DefaultTitle is used for poems that have no title line above them.
const DefaultTitle = "NO TITLE"

var (
	// titleRegex matches lines made only of ASCII capitals and non-word runes.
	// Non-ASCII letters such as "Ô" count as word runes, not punctuation.
	titleRegex = regexp.MustCompile(`^(?:[A-Z]|[^\p{L}\p{N}\p{M}_])+$`)
	// romanRegex matches section numbers such as "XIV" or "IV.".
	romanRegex = regexp.MustCompile(`^[IVXLCDM]+\.?$`)
)

func isTitle(line string) bool {
	return titleRegex.MatchString(strings.TrimSpace(line))
}

func isRomanNumeral(line string) bool {
	return romanRegex.MatchString(strings.TrimSpace(line))
}

// Segment splits a raw corpus into poems. Roman numeral lines are dropped,
// all-capital lines become the title of the next poem, and a run of two or
// more blank lines closes the current poem. A final poem that is not followed
// by such a run is discarded.
func Segment(r io.Reader) ([]Poem, error) {
	var (
		poems      []Poem
		current    []string
		title      = DefaultTitle
		emptyLines int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if isRomanNumeral(line) {
			continue
		}
		if isTitle(line) {
			title = strings.TrimSpace(line)
			continue
		}

		if strings.TrimSpace(line) == "" {
			emptyLines++
			if emptyLines > 1 && len(current) > 0 {
				poems = append(poems, Poem{
					Title: title,
					Text:  markov.StartToken + " " + strings.Join(current, paragraphBreak) + " " + markov.EndToken,
				})
				current = nil
				title = DefaultTitle
			}
			continue
		}
		emptyLines = 0

		current = append(current, strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read raw corpus: %w", err)
	}
	return poems, nil
}

// SegmentFile is Segment over the file at path.
func SegmentFile(path string) ([]Poem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)
	return Segment(file)
}

// WriteJSON writes poems as an indented JSON array to dir/name, creating dir
// if needed. The file is replaced atomically.
func WriteJSON(dir, name string, poems []Poem) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if poems == nil {
		poems = []Poem{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(poems); err != nil {
		return fmt.Errorf("failed to encode poems: %w", err)
	}
	if err := atomic.WriteFile(filepath.Join(dir, name), &buf); err != nil {
		return fmt.Errorf("failed to write poems: %w", err)
	}
	return nil
}
