package markov

import (
	"log/slog"
	"strings"
)

// Train tokenizes one sequence of raw text and adds it to the model. When
// recordEndings is true, the end of the sequence is counted as a terminal on
// the context formed by its last two tokens.
func (m *Model) Train(text string, recordEndings bool) {
	m.trainTokens(m.tokenizer.Tokens(text), recordEndings)
}

// TrainSequence trains an already tokenized sequence with endings disabled.
// It suits sequences that have no natural sentence end, such as a series of
// game results.
func (m *Model) TrainSequence(tokens []string) {
	m.Train(strings.Join(tokens, " "), false)
}

// TrainText splits text into sentences and trains each one with endings
// enabled. Every unit counts as one trained sequence, including empty ones.
func (m *Model) TrainText(text string) {
	sentences := m.tokenizer.Sentences(text)
	for _, sentence := range sentences {
		m.Train(sentence, true)
	}
	m.logger.Debug("Text trained",
		slog.Int("sentences_processed", len(sentences)),
		slog.Int("messages", m.messages),
	)
}

// trainTokens walks tokens with a rolling context of the last two tokens and
// updates the trie, the vocabulary and the global counters.
func (m *Model) trainTokens(tokens []string, recordEndings bool) {
	var prev2, prev1 string
	for i, token := range tokens {
		switch i {
		case 0:
			m.root.ensure(StartToken).Increment()
			m.root.ensure(StartToken, token).Increment()
		case 1:
			m.root.ensure(StartToken, prev1, token).Increment()
		default:
			m.root.ensure(prev2).Increment()
			m.root.ensure(prev2, prev1).Increment()
			m.root.ensure(prev2, prev1, token).Increment()
		}

		// Endings are counted on the (prev1, token) context node, one level
		// above the trigram node.
		if recordEndings && i == len(tokens)-1 {
			m.root.ensure(prev1, token).Terminal++
		}

		m.vocabulary[token]++
		prev2, prev1 = prev1, token
	}

	m.root.Weight += len(tokens)
	m.messages++
	n := float64(m.messages)
	m.meanLength = (m.meanLength + float64(len(tokens))/n) * n / (n + 1)
}
