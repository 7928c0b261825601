// Package sqlite persists transition tables in a SQLite database. Tokens and
// n-grams are interned in shared vocabulary and prefix tables, so several
// models of different orders can live in the same database file.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/CTAG07/Quatrain/pkg/markov"
)

const (
	// StartTokenID is the reserved vocabulary ID for markov.StartToken.
	StartTokenID = 0
	// EndTokenID is the reserved vocabulary ID for markov.EndToken.
	EndTokenID = 1
)

// SetupSchema creates the tables and reserved vocabulary entries. It is
// idempotent and must run before New on a fresh database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS markov_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
`
		schemaPrefixes = `
CREATE TABLE IF NOT EXISTS markov_prefixes (
	prefix_id INTEGER PRIMARY KEY,
	prefix_text TEXT NOT NULL UNIQUE
);
`
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaChains = `
CREATE TABLE IF NOT EXISTS markov_chains (
    model_id INTEGER NOT NULL,
    prefix_id INTEGER NOT NULL,
    next_token_id INTEGER NOT NULL,
    frequency  INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, prefix_id, next_token_id)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, stmt := range []string{schemaVocab, schemaPrefixes, schemaModels, schemaChains} {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	const reserve = `INSERT OR IGNORE INTO markov_vocabulary (token_id, token_text) VALUES (?, ?);`
	if _, err = tx.Exec(reserve, StartTokenID, markov.StartToken); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}
	if _, err = tx.Exec(reserve, EndTokenID, markov.EndToken); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}
