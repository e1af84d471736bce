package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrModelNotFound is returned when no model with the requested name has been
// saved.
var ErrModelNotFound = errors.New("model not found")

// SetupSchema initializes the necessary tables in the provided database. This
// function should be called once on a new database before any other
// operations are performed. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS chain_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    messages INTEGER NOT NULL DEFAULT 0,
    mean_length REAL NOT NULL DEFAULT 0,
    total_weight INTEGER NOT NULL DEFAULT 0
);
`
		schemaVocab = `
CREATE TABLE IF NOT EXISTS chain_vocabulary (
    model_id INTEGER NOT NULL,
    token TEXT NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (model_id, token)
);
`
		schemaNodes = `
CREATE TABLE IF NOT EXISTS chain_nodes (
    model_id INTEGER NOT NULL,
    path TEXT NOT NULL,
    weight INTEGER NOT NULL,
    terminal INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (model_id, path)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}

	if _, err = tx.Exec(schemaVocab); err != nil {
		return fmt.Errorf("could not create vocabulary schema: %w", err)
	}

	if _, err = tx.Exec(schemaNodes); err != nil {
		return fmt.Errorf("could not create nodes schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store persists named markov models in a SQLite database. It holds the
// database connection and prepared SQL statements for efficient database
// interaction. A Store is safe for concurrent use.
type Store struct {
	db                *sql.DB
	stmtGetModelInfo  *sql.Stmt
	stmtGetModels     *sql.Stmt
	stmtUpsertModel   *sql.Stmt
	stmtDeleteModel   *sql.Stmt
	stmtClearVocab    *sql.Stmt
	stmtClearNodes    *sql.Stmt
	stmtInsertVocab   *sql.Stmt
	stmtInsertNode    *sql.Stmt
	stmtGetVocabulary *sql.Stmt
	stmtGetNodes      *sql.Stmt
	logger            *slog.Logger
}

// New creates and returns a new Store. It pre-compiles all necessary SQL
// statements, returning an error if any preparation fails. SetupSchema must
// have been called on db.
func New(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtGetModelInfo, `SELECT model_id, messages, mean_length, total_weight FROM chain_models WHERE model_name = ?;`},
		{&s.stmtGetModels, `SELECT model_id, model_name, messages, mean_length, total_weight FROM chain_models ORDER BY model_name;`},
		{&s.stmtUpsertModel, `INSERT INTO chain_models (model_name, messages, mean_length, total_weight) VALUES (?, ?, ?, ?)
ON CONFLICT(model_name) DO UPDATE SET messages = excluded.messages, mean_length = excluded.mean_length, total_weight = excluded.total_weight
RETURNING model_id;`},
		{&s.stmtDeleteModel, `DELETE FROM chain_models WHERE model_id = ?;`},
		{&s.stmtClearVocab, `DELETE FROM chain_vocabulary WHERE model_id = ?;`},
		{&s.stmtClearNodes, `DELETE FROM chain_nodes WHERE model_id = ?;`},
		{&s.stmtInsertVocab, `INSERT INTO chain_vocabulary (model_id, token, count) VALUES (?, ?, ?);`},
		{&s.stmtInsertNode, `INSERT INTO chain_nodes (model_id, path, weight, terminal) VALUES (?, ?, ?, ?);`},
		{&s.stmtGetVocabulary, `SELECT token, count FROM chain_vocabulary WHERE model_id = ?;`},
		{&s.stmtGetNodes, `SELECT path, weight, terminal FROM chain_nodes WHERE model_id = ?;`},
	}

	for _, st := range statements {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not prepare statement: %w", err)
		}
		*st.dst = stmt
	}

	return s, nil
}

// Close releases all prepared SQL statements held by the Store. It does not
// close the underlying database.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetModelInfo,
		s.stmtGetModels,
		s.stmtUpsertModel,
		s.stmtDeleteModel,
		s.stmtClearVocab,
		s.stmtClearNodes,
		s.stmtInsertVocab,
		s.stmtInsertNode,
		s.stmtGetVocabulary,
		s.stmtGetNodes,
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
