package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/CTAG07/Quatrain/pkg/markov"
)

// ModelInfo holds the metadata of a stored model.
type ModelInfo struct {
	Id    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// Store implements markov.Store on a SQLite database prepared with SetupSchema.
// N-gram keys are stored as the space-joined vocabulary IDs of their tokens.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	stmtGetModelInfo      *sql.Stmt
	stmtGetModels         *sql.Stmt
	stmtAddModel          *sql.Stmt
	stmtSetModelOrder     *sql.Stmt
	stmtClearChains       *sql.Stmt
	stmtPruneModel        *sql.Stmt
	stmtModelChains       *sql.Stmt
	stmtInsertVocab       *sql.Stmt
	stmtGetOrInsertPrefix *sql.Stmt
	stmtInsertChain       *sql.Stmt
}

// New prepares the statements used by the store. The caller keeps ownership of db.
func New(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	var err error
	prepare := func(dst **sql.Stmt, query string) {
		if err != nil {
			return
		}
		*dst, err = db.Prepare(query)
		if err != nil {
			err = fmt.Errorf("failed to prepare %q: %w", query, err)
		}
	}

	prepare(&s.stmtGetModelInfo, `SELECT model_id, model_order FROM markov_models WHERE model_name = ?;`)
	prepare(&s.stmtGetModels, `SELECT model_id, model_name, model_order FROM markov_models ORDER BY model_name;`)
	prepare(&s.stmtAddModel, `INSERT INTO markov_models (model_name, model_order) VALUES (?, ?) RETURNING model_id;`)
	prepare(&s.stmtSetModelOrder, `UPDATE markov_models SET model_order = ? WHERE model_id = ?;`)
	prepare(&s.stmtClearChains, `DELETE FROM markov_chains WHERE model_id = ?;`)
	prepare(&s.stmtPruneModel, `DELETE FROM markov_chains WHERE model_id = ? AND frequency <= ?;`)
	prepare(&s.stmtModelChains, `SELECT p.prefix_text, v.token_text, c.frequency FROM markov_chains c JOIN markov_prefixes p ON p.prefix_id = c.prefix_id JOIN markov_vocabulary v ON v.token_id = c.next_token_id WHERE c.model_id = ?;`)
	prepare(&s.stmtInsertVocab, `INSERT INTO markov_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`)
	prepare(&s.stmtGetOrInsertPrefix, `INSERT INTO markov_prefixes (prefix_text) VALUES (?) ON CONFLICT(prefix_text) DO UPDATE SET prefix_text=excluded.prefix_text RETURNING prefix_id;`)
	prepare(&s.stmtInsertChain, `INSERT INTO markov_chains (model_id, prefix_id, next_token_id, frequency) VALUES (?, ?, ?, ?) ON CONFLICT(model_id, prefix_id, next_token_id) DO UPDATE SET frequency = frequency + excluded.frequency;`)

	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the prepared statements. It does not close the database.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetModelInfo, s.stmtGetModels, s.stmtAddModel, s.stmtSetModelOrder,
		s.stmtClearChains, s.stmtPruneModel, s.stmtModelChains, s.stmtInsertVocab,
		s.stmtGetOrInsertPrefix, s.stmtInsertChain,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Save replaces the chains stored under name with the contents of t. The model
// row is created on first save; its order follows t.
func (s *Store) Save(ctx context.Context, name string, t *markov.Table) error {
	if name == "" {
		return errors.New("model name cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID, modelOrder int
	err = tx.StmtContext(ctx, s.stmtGetModelInfo).QueryRowContext(ctx, name).Scan(&modelID, &modelOrder)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err = tx.StmtContext(ctx, s.stmtAddModel).QueryRowContext(ctx, name, t.Order()).Scan(&modelID); err != nil {
			return fmt.Errorf("failed to insert model %q: %w", name, err)
		}
	case err != nil:
		return fmt.Errorf("failed to query model %q: %w", name, err)
	default:
		if modelOrder != t.Order() {
			if _, err = tx.StmtContext(ctx, s.stmtSetModelOrder).ExecContext(ctx, t.Order(), modelID); err != nil {
				return fmt.Errorf("failed to update order of model %q: %w", name, err)
			}
		}
		if _, err = tx.StmtContext(ctx, s.stmtClearChains).ExecContext(ctx, modelID); err != nil {
			return fmt.Errorf("failed to clear chains for model %q: %w", name, err)
		}
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	stmtGetOrInsertPrefix := tx.StmtContext(ctx, s.stmtGetOrInsertPrefix)
	stmtInsertChain := tx.StmtContext(ctx, s.stmtInsertChain)

	tokenCache := map[string]int{
		markov.StartToken: StartTokenID,
		markov.EndToken:   EndTokenID,
	}
	tokenID := func(tok string) (int, error) {
		if id, ok := tokenCache[tok]; ok {
			return id, nil
		}
		var id int
		if err := stmtInsertVocab.QueryRowContext(ctx, tok).Scan(&id); err != nil {
			return 0, fmt.Errorf("sql insert vocabulary error for token '%s': %w", tok, err)
		}
		tokenCache[tok] = id
		return id, nil
	}

	prefixCache := make(map[string]int)
	parts := make([]string, 0, t.Order())
	var chainCount int

	t.Range(func(gram markov.NGram, next string, count int) bool {
		parts = parts[:0]
		for _, tok := range gram {
			var id int
			if id, err = tokenID(tok); err != nil {
				return false
			}
			parts = append(parts, strconv.Itoa(id))
		}
		prefixText := strings.Join(parts, " ")

		prefixID, ok := prefixCache[prefixText]
		if !ok {
			if err = stmtGetOrInsertPrefix.QueryRowContext(ctx, prefixText).Scan(&prefixID); err != nil {
				err = fmt.Errorf("failed to get/insert prefix '%s': %w", prefixText, err)
				return false
			}
			prefixCache[prefixText] = prefixID
		}

		var nextID int
		if nextID, err = tokenID(next); err != nil {
			return false
		}
		if _, err = stmtInsertChain.ExecContext(ctx, modelID, prefixID, nextID, count); err != nil {
			err = fmt.Errorf("failed to insert chain link (%d -> %d): %w", prefixID, nextID, err)
			return false
		}
		chainCount++
		return true
	})
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Model stored",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("order", t.Order()),
		slog.Int("chains", chainCount),
	)
	return nil
}

// Load rebuilds the table stored under name.
func (s *Store) Load(ctx context.Context, name string) (*markov.Table, error) {
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	type link struct {
		prefix string
		next   string
		freq   int
	}

	rows, err := s.stmtModelChains.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query chains for model %q: %w", name, err)
	}
	var links []link
	for rows.Next() {
		var l link
		if err := rows.Scan(&l.prefix, &l.next, &l.freq); err != nil {
			_ = rows.Close()
			return nil, err
		}
		links = append(links, l)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating chain rows: %w", err)
	}

	// Prefix texts hold vocabulary IDs; resolve them in one pass over the vocabulary.
	needed := make(map[int]string)
	grams := make(map[string][]int, len(links))
	for _, l := range links {
		if _, ok := grams[l.prefix]; ok {
			continue
		}
		fields := strings.Fields(l.prefix)
		ids := make([]int, len(fields))
		for i, f := range fields {
			id, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("corrupt prefix %q in model %q: %w", l.prefix, name, err)
			}
			ids[i] = id
			needed[id] = ""
		}
		grams[l.prefix] = ids
	}
	if err := s.resolveTokens(ctx, needed); err != nil {
		return nil, err
	}

	builder, err := markov.NewTableBuilder(info.Order)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	for _, l := range links {
		ids := grams[l.prefix]
		gram := make(markov.NGram, len(ids))
		for i, id := range ids {
			gram[i] = needed[id]
		}
		if err := builder.Add(gram, l.next, l.freq); err != nil {
			return nil, fmt.Errorf("corrupt chain in model %q: %w", name, err)
		}
	}

	t := builder.Table()
	s.logger.DebugContext(ctx, "Model read",
		slog.String("model_name", name),
		slog.Int("model_id", info.Id),
		slog.Int("chains", len(links)),
	)
	return t, nil
}

// resolveTokens fills in the text of every vocabulary ID that is a key of ids.
func (s *Store) resolveTokens(ctx context.Context, ids map[int]string) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT token_id, token_text FROM markov_vocabulary;`)
	if err != nil {
		return fmt.Errorf("could not query vocabulary: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var id int
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return err
		}
		if _, ok := ids[id]; ok {
			ids[id] = text
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for id, text := range ids {
		if text == "" {
			return fmt.Errorf("consistency error: token id %d missing from vocabulary", id)
		}
	}
	return nil
}

// GetModelInfo retrieves the metadata for the model stored under name.
func (s *Store) GetModelInfo(ctx context.Context, name string) (ModelInfo, error) {
	var modelId, modelOrder int
	err := s.stmtGetModelInfo.QueryRowContext(ctx, name).Scan(&modelId, &modelOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ModelInfo{}, &markov.ModelNotFoundError{Name: name, Err: err}
		}
		return ModelInfo{}, err
	}
	return ModelInfo{
		Id:    modelId,
		Name:  name,
		Order: modelOrder,
	}, nil
}

// List returns every stored model ordered by name.
func (s *Store) List(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var models []ModelInfo
	for rows.Next() {
		var m ModelInfo
		if err := rows.Scan(&m.Id, &m.Name, &m.Order); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// Remove deletes a model and all of its chains. Removing a missing model is not an error.
func (s *Store) Remove(ctx context.Context, name string) error {
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		if markov.IsModelNotFound(err) {
			return nil
		}
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.StmtContext(ctx, s.stmtClearChains).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove chains for model %d: %w", info.Id, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_models WHERE model_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", info.Id, err)
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", info.Name),
		slog.Int("model_id", info.Id),
	)
	return tx.Commit()
}

// Prune deletes the stored chain links of a model whose frequency is less
// than or equal to minFreq, in place. It returns the number of links removed.
func (s *Store) Prune(ctx context.Context, name string, minFreq int) (int64, error) {
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		return 0, err
	}
	res, err := s.stmtPruneModel.ExecContext(ctx, info.Id, minFreq)
	if err != nil {
		return 0, fmt.Errorf("could not prune model %d: %w", info.Id, err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Model pruned",
		slog.String("model_name", info.Name),
		slog.Int("model_id", info.Id),
		slog.Int("min_frequency", minFreq),
		slog.Int64("chains_removed", rowsAffected),
	)
	return rowsAffected, nil
}
