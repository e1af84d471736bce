package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CTAG07/wordchain/pkg/markov"
)

// ModelInfo holds the counters saved alongside a model.
type ModelInfo struct {
	Id          int     `json:"id"`
	Name        string  `json:"name"`
	Messages    int     `json:"messages"`
	MeanLength  float64 `json:"mean_length"`
	TotalWeight int     `json:"total_weight"`
}

// Info retrieves the saved counters of a single model.
func (s *Store) Info(ctx context.Context, name string) (ModelInfo, error) {
	info := ModelInfo{Name: name}
	err := s.stmtGetModelInfo.QueryRowContext(ctx, name).Scan(&info.Id, &info.Messages, &info.MeanLength, &info.TotalWeight)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelInfo{}, fmt.Errorf("%w: '%s'", ErrModelNotFound, name)
	}
	if err != nil {
		return ModelInfo{}, err
	}
	return info, nil
}

// List retrieves the counters of every saved model, ordered by name.
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
		var info ModelInfo
		if err = rows.Scan(&info.Id, &info.Name, &info.Messages, &info.MeanLength, &info.TotalWeight); err != nil {
			return nil, err
		}
		models = append(models, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// Save writes m under name, replacing anything previously saved under that
// name. The entire operation is performed within a single transaction.
func (s *Store) Save(ctx context.Context, name string, m *markov.Model) error {
	snapshot := m.Snapshot()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	err = tx.StmtContext(ctx, s.stmtUpsertModel).
		QueryRowContext(ctx, name, snapshot.Messages, snapshot.MeanLength, snapshot.TotalWeight).
		Scan(&modelID)
	if err != nil {
		return fmt.Errorf("failed to upsert model '%s': %w", name, err)
	}

	if _, err = tx.StmtContext(ctx, s.stmtClearVocab).ExecContext(ctx, modelID); err != nil {
		return fmt.Errorf("failed to clear vocabulary for model %d: %w", modelID, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtClearNodes).ExecContext(ctx, modelID); err != nil {
		return fmt.Errorf("failed to clear nodes for model %d: %w", modelID, err)
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	for token, count := range snapshot.Vocabulary {
		if _, err = stmtInsertVocab.ExecContext(ctx, modelID, token, count); err != nil {
			return fmt.Errorf("failed to insert vocabulary item '%s': %w", token, err)
		}
	}

	stmtInsertNode := tx.StmtContext(ctx, s.stmtInsertNode)
	for _, node := range snapshot.Nodes {
		path, err := json.Marshal(node.Path)
		if err != nil {
			return fmt.Errorf("failed to encode node path %q: %w", node.Path, err)
		}
		if _, err = stmtInsertNode.ExecContext(ctx, modelID, string(path), node.Weight, node.Terminal); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", path, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit save of model '%s': %w", name, err)
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("vocab_items_saved", len(snapshot.Vocabulary)),
		slog.Int("nodes_saved", len(snapshot.Nodes)),
	)
	return nil
}

// Load rebuilds the model saved under name. The options are passed to
// markov.FromSnapshot.
func (s *Store) Load(ctx context.Context, name string, opts ...markov.Option) (*markov.Model, error) {
	info, err := s.Info(ctx, name)
	if err != nil {
		return nil, err
	}

	snapshot := markov.Snapshot{
		Messages:    info.Messages,
		MeanLength:  info.MeanLength,
		TotalWeight: info.TotalWeight,
		Vocabulary:  make(map[string]int),
	}

	vRows, err := s.stmtGetVocabulary.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query vocabulary for model '%s': %w", name, err)
	}
	for vRows.Next() {
		var token string
		var count int
		if err = vRows.Scan(&token, &count); err != nil {
			_ = vRows.Close()
			return nil, err
		}
		snapshot.Vocabulary[token] = count
	}
	err = vRows.Err()
	_ = vRows.Close()
	if err != nil {
		return nil, err
	}

	nRows, err := s.stmtGetNodes.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query nodes for model '%s': %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(nRows)

	for nRows.Next() {
		var path string
		var node markov.SnapshotNode
		if err = nRows.Scan(&path, &node.Weight, &node.Terminal); err != nil {
			return nil, err
		}
		if err = json.Unmarshal([]byte(path), &node.Path); err != nil {
			return nil, fmt.Errorf("%w: undecodable node path %s: %v", markov.ErrInvalidSnapshot, path, err)
		}
		snapshot.Nodes = append(snapshot.Nodes, node)
	}
	if err = nRows.Err(); err != nil {
		return nil, err
	}

	m, err := markov.FromSnapshot(snapshot, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not rebuild model '%s': %w", name, err)
	}

	s.logger.InfoContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.Int("model_id", info.Id),
		slog.Int("vocab_items_loaded", len(snapshot.Vocabulary)),
		slog.Int("nodes_loaded", len(snapshot.Nodes)),
	)
	return m, nil
}

// Remove deletes a model and all of its associated data from the database.
// The operation is performed within a transaction.
func (s *Store) Remove(ctx context.Context, name string) error {
	info, err := s.Info(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.StmtContext(ctx, s.stmtClearNodes).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove nodes for model %d: %w", info.Id, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtClearVocab).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove vocabulary for model %d: %w", info.Id, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDeleteModel).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", info.Id, err)
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", name),
		slog.Int("model_id", info.Id),
	)
	return nil
}
