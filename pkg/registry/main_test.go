package registry

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/CTAG07/wordchain/pkg/markov"
	"github.com/CTAG07/wordchain/pkg/store"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// setupTestStore opens a fresh SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db")+"?_journal_mode=WAL")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.SetupSchema(db))

	s, err := store.New(db)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// setupTestRegistry creates a store-backed registry holding one trained model
// named "test_model".
func setupTestRegistry(t *testing.T, opts ...Option) (context.Context, *Registry, *store.Store) {
	t.Helper()
	s := setupTestStore(t)
	opts = append([]Option{WithModelOptions(markov.WithRand(rand.NewPCG(1, 2)))}, opts...)
	r := New(s, opts...)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, "test_model", false))
	require.NoError(t, r.Train(ctx, "test_model", ModeText, "ich weiss schon. ich weiss nicht."))
	return ctx, r, s
}
