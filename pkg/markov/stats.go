package markov

// ModelStats holds aggregated statistics for a single model.
type ModelStats struct {
	Messages       int     `json:"messages"`        // The number of trained sequences.
	MeanLength     float64 `json:"mean_length"`     // The running mean sequence length.
	TotalWeight    int     `json:"total_weight"`    // The number of trained tokens.
	VocabularySize int     `json:"vocabulary_size"` // The number of distinct tokens, including registered unseen ones.
	StartTokens    int     `json:"start_tokens"`    // The number of distinct tokens that can start a sequence.
	Contexts       int     `json:"contexts"`        // The number of two-token contexts, including the start contexts.
	Nodes          int     `json:"nodes"`           // The number of trie nodes below the root.
}

// Stats returns a snapshot of the model's statistics.
func (m *Model) Stats() ModelStats {
	stats := ModelStats{
		Messages:       m.messages,
		MeanLength:     m.meanLength,
		TotalWeight:    m.root.Weight,
		VocabularySize: len(m.vocabulary),
	}
	if start := m.root.lookup(StartToken); start != nil {
		stats.StartTokens = len(start.Children)
	}
	m.root.walk(nil, func(path []string, _ *Node) {
		stats.Nodes++
		if len(path) == 2 {
			stats.Contexts++
		}
	})
	return stats
}
