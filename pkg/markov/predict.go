package markov

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Prior returns the unigram probability of token: its raw count divided by
// the total number of trained tokens. Unseen tokens are registered in the
// vocabulary with count 0 and score 0.
func (m *Model) Prior(token string) float64 {
	count, ok := m.vocabulary[token]
	if !ok {
		m.vocabulary[token] = 0
	}
	return ratio(count, m.root.Weight)
}

// Next returns the candidates that may follow context, sorted ascending by
// score. Each score is the candidate's relative frequency under the context
// multiplied by its prior.
//
// With no context, or the single start token, the candidates are the tokens
// that begin a sequence. A single token other than the start token is
// rejected with ErrInvalidContext. With two or more tokens only the last two
// are used; an unknown context yields no candidates. If improvise is set and
// the context yields nothing, every vocabulary token is scored by its prior
// alone.
func (m *Model) Next(improvise bool, context ...string) ([]Candidate, error) {
	var node *Node
	switch len(context) {
	case 0:
		node = m.root.lookup(StartToken)
	case 1:
		if context[0] != StartToken {
			return nil, fmt.Errorf("%w: got %q", ErrInvalidContext, context[0])
		}
		node = m.root.lookup(StartToken)
	default:
		node = m.root.lookup(context[len(context)-2:]...)
	}

	candidates := m.scoreChildren(node)
	if improvise && len(candidates) == 0 {
		candidates = m.improvise()
	}
	SortCandidates(candidates)
	return candidates, nil
}

// scoreChildren scores every child of node, plus EndMarker when sequences
// have ended at node. A nil node has no candidates.
func (m *Model) scoreChildren(node *Node) []Candidate {
	if node == nil {
		return nil
	}
	candidates := make([]Candidate, 0, len(node.Children)+1)
	for _, token := range slices.Sorted(maps.Keys(node.Children)) {
		child := node.Children[token]
		candidates = append(candidates, Candidate{
			Token: token,
			Score: ratio(child.Weight, node.Weight) * m.Prior(token),
		})
	}
	if node.Terminal > 0 {
		candidates = append(candidates, Candidate{
			Token: EndMarker,
			Score: ratio(node.Terminal, node.Weight) * m.Prior(EndMarker),
		})
	}
	return candidates
}

// improvise scores the whole vocabulary by prior alone.
func (m *Model) improvise() []Candidate {
	tokens := slices.Sorted(maps.Keys(m.vocabulary))
	candidates := make([]Candidate, 0, len(tokens))
	for _, token := range tokens {
		candidates = append(candidates, Candidate{Token: token, Score: m.Prior(token)})
	}
	return candidates
}

// SortCandidates sorts candidates ascending by score. Equal scores keep their
// relative order.
func SortCandidates(candidates []Candidate) {
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(a.Score, b.Score)
	})
}

// ratio divides a by b, returning 0 when b is 0.
func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
