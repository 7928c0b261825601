package markov

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
)

// snapshotMagic prefixes every binary snapshot, followed by one version byte.
const (
	snapshotMagic   = "QMKV"
	snapshotVersion = 1
)

// snapshot is the gob payload of a binary snapshot. Rows are written in key
// order so that equal tables produce identical bytes.
type snapshot struct {
	Order int
	Rows  []snapshotRow
}

type snapshotRow struct {
	Gram   []string
	Next   []string
	Counts []int
}

// WriteSnapshot writes t to w in the binary snapshot format.
func WriteSnapshot(w io.Writer, t *Table) error {
	snap := snapshot{Order: t.Order()}
	var current *snapshotRow
	var currentKey string
	t.Range(func(gram NGram, next string, count int) bool {
		if key := gram.Key(); current == nil || key != currentKey {
			snap.Rows = append(snap.Rows, snapshotRow{Gram: gram})
			current = &snap.Rows[len(snap.Rows)-1]
			currentKey = key
		}
		current.Next = append(current.Next, next)
		current.Counts = append(current.Counts, count)
		return true
	})

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(snapshotMagic); err != nil {
		return err
	}
	if err := bw.WriteByte(snapshotVersion); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(snap); err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	return bw.Flush()
}

// ReadSnapshot decodes a table written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)

	header := make([]byte, len(snapshotMagic)+1)
	if _, err := io.ReadFull(br, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated header", ErrInvalidSnapshot)
		}
		return nil, err
	}
	if string(header[:len(snapshotMagic)]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidSnapshot, header[:len(snapshotMagic)])
	}
	if v := header[len(snapshotMagic)]; v != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, v)
	}

	var snap snapshot
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	b, err := NewTableBuilder(snap.Order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	for _, row := range snap.Rows {
		if len(row.Next) == 0 || len(row.Next) != len(row.Counts) {
			return nil, fmt.Errorf("%w: malformed row for %v", ErrInvalidSnapshot, row.Gram)
		}
		for i, next := range row.Next {
			if err := b.Add(row.Gram, next, row.Counts[i]); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
			}
		}
	}
	return b.Table(), nil
}
