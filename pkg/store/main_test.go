package store

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/CTAG07/wordchain/pkg/markov"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a new SQLite database in a temporary directory and a
// Store for testing. It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	require.NoError(t, err, "failed to open database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, SetupSchema(db), "failed to set up schema")

	s, err := New(db)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return db, s
}

// trainedModel returns a small model with a fixed random source.
func trainedModel(t *testing.T) *markov.Model {
	t.Helper()
	m := markov.New(markov.WithRand(rand.NewPCG(1, 2)))
	m.TrainText("Ich weiss schon. Ich weiss nicht! Der Hund bellt.")
	return m
}

// setupTestStoreWithModel is a convenience helper that also saves a default model.
func setupTestStoreWithModel(t *testing.T) (context.Context, *Store, *markov.Model) {
	t.Helper()
	_, s := setupTestStore(t)
	ctx := context.Background()
	m := trainedModel(t)
	require.NoError(t, s.Save(ctx, "test_model", m))
	return ctx, s, m
}

// setupBenchStore creates a database for benchmarking.
func setupBenchStore(b *testing.B) *Store {
	b.Helper()
	dbFile := filepath.Join(b.TempDir(), "bench.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=OFF&_cache_size=-16000")
	if err != nil {
		b.Fatalf("failed to open database: %v", err)
	}
	b.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		b.Fatalf("failed to set up schema: %v", err)
	}

	s, err := New(db)
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}
	b.Cleanup(s.Close)
	return s
}
