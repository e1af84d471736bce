package markov

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
)

// initialMeanLength is the mean sequence length a fresh model assumes before
// any training has happened.
const initialMeanLength = 4

var (
	// ErrInvalidContext is returned by Next when it is given exactly one
	// context token that is not the start token.
	ErrInvalidContext = errors.New("single context token must be the start token")
	// ErrEmptyModel is returned by Generate when the model holds nothing to
	// draw from.
	ErrEmptyModel = errors.New("model has no data to generate from")
)

// Model is a second-order Markov chain over case-folded tokens. The zero value
// is not usable; create models with New or FromSnapshot.
type Model struct {
	root       *Node // root.Weight is the total number of trained tokens
	vocabulary map[string]int
	messages   int
	meanLength float64
	tokenizer  Tokenizer
	src        rand.Source
	logger     *slog.Logger
}

// Option configures a Model during construction.
type Option func(*Model)

// WithTokenizer replaces the DefaultTokenizer used by Train and TrainText.
func WithTokenizer(t Tokenizer) Option {
	return func(m *Model) {
		if t != nil {
			m.tokenizer = t
		}
	}
}

// WithRand sets the random source used for sampling. A nil source uses the
// global generator from math/rand/v2.
func WithRand(src rand.Source) Option {
	return func(m *Model) { m.src = src }
}

// WithLogger sets the logger used by the Model, as SetLogger does.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) { m.SetLogger(logger) }
}

// WithExampleSeed pre-fills the model with two small example sentences so it
// can generate something before any training.
func WithExampleSeed() Option {
	return func(m *Model) { m.seedExample() }
}

// New creates an empty model owning its own trie and vocabulary.
func New(opts ...Option) *Model {
	m := &Model{
		root:       newNode(),
		vocabulary: make(map[string]int),
		meanLength: initialMeanLength,
		tokenizer:  NewDefaultTokenizer(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetLogger sets the logger for the Model. By default, all logs are discarded.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// seedExample writes the built-in example: "yo was geht" as a sequence start
// and "ich weiss schon" / "ich weiss nicht" as a second-order context.
func (m *Model) seedExample() {
	m.root.ensure(StartToken).Weight = 1
	m.root.ensure(StartToken, "yo").Weight = 1
	m.root.ensure(StartToken, "yo", "was").Weight = 1
	m.root.ensure("yo").Weight = 1
	m.root.ensure("yo", "was").Weight = 1
	m.root.ensure("yo", "was", "geht").Weight = 1

	m.root.ensure("ich").Weight = 1
	m.root.ensure("ich", "weiss").Weight = 1
	m.root.ensure("ich", "weiss", "schon").Weight = 1
	m.root.ensure("ich", "weiss", "nicht").Weight = 1
}

// EnsurePath returns the node for a path of one to three tokens, creating any
// missing levels with weight 0. Existing nodes are returned untouched.
func (m *Model) EnsurePath(tokens ...string) (*Node, error) {
	if len(tokens) == 0 || len(tokens) > 3 {
		return nil, fmt.Errorf("path must hold 1 to 3 tokens, got %d", len(tokens))
	}
	return m.root.ensure(tokens...), nil
}

// Lookup returns the node for path, or nil if any level is missing.
func (m *Model) Lookup(tokens ...string) *Node {
	return m.root.lookup(tokens...)
}

// TotalWeight returns the number of tokens seen across all training.
func (m *Model) TotalWeight() int {
	return m.root.Weight
}

// Messages returns the number of sequences trained so far.
func (m *Model) Messages() int {
	return m.messages
}

// MeanLength returns the running mean sequence length.
func (m *Model) MeanLength() float64 {
	return m.meanLength
}

// Count returns the raw unigram count for token without registering it.
func (m *Model) Count(token string) int {
	return m.vocabulary[token]
}

// IsStartToken reports whether token has been seen at the first position of a
// sequence.
func (m *Model) IsStartToken(token string) bool {
	return m.root.lookup(StartToken, token) != nil
}
