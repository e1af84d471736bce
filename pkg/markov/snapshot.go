package markov

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
)

// ErrInvalidSnapshot is returned when snapshot data cannot describe a model.
var ErrInvalidSnapshot = errors.New("invalid model snapshot")

// Snapshot is the serializable representation of a trained model, used for
// JSON-based import and export and by the SQLite store.
type Snapshot struct {
	Messages    int            `json:"messages"`
	MeanLength  float64        `json:"mean_length"`
	TotalWeight int            `json:"total_weight"`
	Vocabulary  map[string]int `json:"vocabulary"` // token -> raw count
	Nodes       []SnapshotNode `json:"nodes"`
}

// SnapshotNode is a single trie node, addressed by its full path from the
// root.
type SnapshotNode struct {
	Path     []string `json:"path"`
	Weight   int      `json:"weight"`
	Terminal int      `json:"terminal,omitempty"`
}

// Snapshot returns a deep copy of the model's counts. Nodes are ordered by
// path so the output is deterministic.
func (m *Model) Snapshot() Snapshot {
	var nodes []SnapshotNode
	m.root.walk(nil, func(path []string, n *Node) {
		nodes = append(nodes, SnapshotNode{
			Path:     slices.Clone(path),
			Weight:   n.Weight,
			Terminal: n.Terminal,
		})
	})
	slices.SortFunc(nodes, func(a, b SnapshotNode) int {
		return slices.Compare(a.Path, b.Path)
	})

	return Snapshot{
		Messages:    m.messages,
		MeanLength:  m.meanLength,
		TotalWeight: m.root.Weight,
		Vocabulary:  maps.Clone(m.vocabulary),
		Nodes:       nodes,
	}
}

// FromSnapshot rebuilds a model from s. The options are applied as in New,
// before the snapshot data is loaded.
func FromSnapshot(s Snapshot, opts ...Option) (*Model, error) {
	if s.Messages < 0 || s.TotalWeight < 0 {
		return nil, fmt.Errorf("%w: negative counters", ErrInvalidSnapshot)
	}

	m := New(opts...)
	m.root = newNode()
	m.root.Weight = s.TotalWeight
	m.messages = s.Messages
	m.meanLength = s.MeanLength

	m.vocabulary = make(map[string]int, len(s.Vocabulary))
	for token, count := range s.Vocabulary {
		if count < 0 {
			return nil, fmt.Errorf("%w: negative count for token '%s'", ErrInvalidSnapshot, token)
		}
		m.vocabulary[token] = count
	}

	for _, sn := range s.Nodes {
		if len(sn.Path) == 0 || len(sn.Path) > 3 {
			return nil, fmt.Errorf("%w: node path %q has depth %d", ErrInvalidSnapshot, sn.Path, len(sn.Path))
		}
		if sn.Weight < 0 || sn.Terminal < 0 {
			return nil, fmt.Errorf("%w: negative weight on node %q", ErrInvalidSnapshot, sn.Path)
		}
		n := m.root.ensure(sn.Path...)
		n.Weight = sn.Weight
		n.Terminal = sn.Terminal
	}
	return m, nil
}

// Export serializes the model into a JSON format and writes it to the
// provided io.Writer. This is useful for backups or for transferring models.
func (m *Model) Export(w io.Writer) error {
	snapshot := m.Snapshot()

	m.logger.Info("Model exported",
		slog.Int("vocab_items_exported", len(snapshot.Vocabulary)),
		slog.Int("nodes_exported", len(snapshot.Nodes)),
		slog.Int("messages", snapshot.Messages),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshot)
}

// Import reads a JSON representation of a model from an io.Reader and builds
// a new model from it.
func Import(r io.Reader, opts ...Option) (*Model, error) {
	var snapshot Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode json model: %w", err)
	}

	m, err := FromSnapshot(snapshot, opts...)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Model imported",
		slog.Int("vocab_items_imported", len(snapshot.Vocabulary)),
		slog.Int("nodes_imported", len(snapshot.Nodes)),
		slog.Int("messages", snapshot.Messages),
	)
	return m, nil
}
