package store

import (
	"context"
	"testing"

	"github.com/CTAG07/wordchain/pkg/markov"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupSchemaIdempotent(t *testing.T) {
	db, _ := setupTestStore(t)
	assert.NoError(t, SetupSchema(db))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx, s, m := setupTestStoreWithModel(t)

	loaded, err := s.Load(ctx, "test_model")
	require.NoError(t, err)

	assert.Equal(t, m.Snapshot(), loaded.Snapshot())
	assert.Equal(t, m.Stats(), loaded.Stats())

	want, err := m.Next(false, "ich", "weiss")
	require.NoError(t, err)
	got, err := loaded.Next(false, "ich", "weiss")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveReplaces(t *testing.T) {
	ctx, s, m := setupTestStoreWithModel(t)

	m.Train("ein neuer satz", true)
	require.NoError(t, s.Save(ctx, "test_model", m))

	loaded, err := s.Load(ctx, "test_model")
	require.NoError(t, err)
	assert.Equal(t, m.Snapshot(), loaded.Snapshot())

	models, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, models, 1, "saving twice under one name must not duplicate the model")
}

func TestSaveStartToken(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	m := markov.New()
	_, err := m.EnsurePath(markov.StartToken, "", "x")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "empty_tokens", m))

	loaded, err := s.Load(ctx, "empty_tokens")
	require.NoError(t, err)
	assert.NotNil(t, loaded.Lookup(markov.StartToken, "", "x"))
}

func TestList(t *testing.T) {
	ctx, s, m := setupTestStoreWithModel(t)
	require.NoError(t, s.Save(ctx, "another_model", markov.New()))

	models, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)

	assert.Equal(t, "another_model", models[0].Name)
	assert.Equal(t, 0, models[0].Messages)
	assert.Equal(t, "test_model", models[1].Name)
	assert.Equal(t, m.Messages(), models[1].Messages)
	assert.Equal(t, m.TotalWeight(), models[1].TotalWeight)
	assert.Equal(t, m.MeanLength(), models[1].MeanLength)
}

func TestLoadMissing(t *testing.T) {
	_, s := setupTestStore(t)

	_, err := s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestRemove(t *testing.T) {
	ctx, s, _ := setupTestStoreWithModel(t)

	require.NoError(t, s.Remove(ctx, "test_model"))

	_, err := s.Load(ctx, "test_model")
	assert.ErrorIs(t, err, ErrModelNotFound)

	assert.ErrorIs(t, s.Remove(ctx, "test_model"), ErrModelNotFound)

	models, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestRemoveLeavesOthers(t *testing.T) {
	ctx, s, _ := setupTestStoreWithModel(t)
	other := markov.New()
	other.Train("etwas anderes", true)
	require.NoError(t, s.Save(ctx, "other", other))

	require.NoError(t, s.Remove(ctx, "test_model"))

	loaded, err := s.Load(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, other.Snapshot(), loaded.Snapshot())
}

func BenchmarkSave(b *testing.B) {
	ctx := context.Background()
	m := markov.New()
	m.TrainText("one fish two fish. red fish blue fish. this one has a little star. this one has a little car.")

	s := setupBenchStore(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Save(ctx, "bench", m); err != nil {
			b.Fatal(err)
		}
	}
}
