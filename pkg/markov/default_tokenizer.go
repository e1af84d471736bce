package markov

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultPunctuation is the set of characters stripped from training text.
const DefaultPunctuation = `"'!?.,;+/:()`

// DefaultSentenceMarks are collapsed into EndMarker before text is split into
// sentences. Longer marks must come before their prefixes.
var DefaultSentenceMarks = []string{"!", "?", "...", "..", ";"}

// DefaultTokenizer is a default implementation of the Tokenizer interface.
// It strips a fixed punctuation set, replaces line breaks with spaces, splits
// on single spaces and lower-cases every token. Its behavior can be
// customized with functional options.
type DefaultTokenizer struct {
	punctuation   string
	sentenceMarks []string
	lang          language.Tag
}

// TokenizerOption is a function that configures a DefaultTokenizer.
type TokenizerOption func(*DefaultTokenizer)

// WithPunctuation sets the characters removed from text before splitting.
// Default: DefaultPunctuation
func WithPunctuation(chars string) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.punctuation = chars
	}
}

// WithSentenceMarks sets the marks treated as sentence ends by Sentences, in
// addition to EndMarker itself.
// Default: DefaultSentenceMarks
func WithSentenceMarks(marks ...string) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.sentenceMarks = marks
	}
}

// WithLanguage sets the language used for case folding.
// Default: language.Und
func WithLanguage(tag language.Tag) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.lang = tag
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more TokenizerOption functions.
func NewDefaultTokenizer(opts ...TokenizerOption) *DefaultTokenizer {
	t := &DefaultTokenizer{
		punctuation:   DefaultPunctuation,
		sentenceMarks: DefaultSentenceMarks,
		lang:          language.Und,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tokens returns the normalized tokens of text.
func (t *DefaultTokenizer) Tokens(text string) []string {
	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(t.punctuation, r) {
			return -1
		}
		return r
	}, text)
	text = strings.ReplaceAll(text, "\n", " ")

	caser := cases.Lower(t.lang)
	fields := strings.Split(text, " ")
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if field == "" {
			continue
		}
		tokens = append(tokens, caser.String(field))
	}
	return tokens
}

// Sentences collapses every sentence mark into EndMarker and splits on it.
func (t *DefaultTokenizer) Sentences(text string) []string {
	for _, mark := range t.sentenceMarks {
		text = strings.ReplaceAll(text, mark, EndMarker)
	}
	return strings.Split(text, EndMarker)
}
