package markov

import (
	"slices"
	"testing"

	"golang.org/x/text/language"
)

func TestDefaultTokenizerTokens(t *testing.T) {
	tokenizer := NewDefaultTokenizer()

	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "Simple", input: "Ich weiss schon.", want: []string{"ich", "weiss", "schon"}},
		{name: "Punctuation stripped", input: `"Hallo", (sagte) er: ja!`, want: []string{"hallo", "sagte", "er", "ja"}},
		{name: "Apostrophe joins", input: "geht's", want: []string{"gehts"}},
		{name: "Line breaks", input: "eins\nzwei", want: []string{"eins", "zwei"}},
		{name: "Repeated spaces", input: "a  b", want: []string{"a", "b"}},
		{name: "Only punctuation", input: "?!.", want: []string{}},
		{name: "Empty", input: "", want: []string{}},
		{name: "Unicode", input: "ÄPFEL Über", want: []string{"äpfel", "über"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tokenizer.Tokens(tc.input); !slices.Equal(got, tc.want) {
				t.Errorf("Tokens(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestDefaultTokenizerSentences(t *testing.T) {
	tokenizer := NewDefaultTokenizer()

	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "Marks", input: "a! b? c; d", want: []string{"a", " b", " c", " d"}},
		{name: "Ellipsis", input: "a... b", want: []string{"a", " b"}},
		{name: "No marks", input: "a b", want: []string{"a b"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tokenizer.Sentences(tc.input); !slices.Equal(got, tc.want) {
				t.Errorf("Sentences(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestTokenizerOptions(t *testing.T) {
	tokenizer := NewDefaultTokenizer(
		WithPunctuation("#"),
		WithSentenceMarks("|"),
		WithLanguage(language.Turkish),
	)

	if got := tokenizer.Tokens("#İSTANBUL, Ankara"); !slices.Equal(got, []string{"istanbul,", "ankara"}) {
		t.Errorf("unexpected tokens %q", got)
	}
	if got := tokenizer.Sentences("a|b!c"); !slices.Equal(got, []string{"a", "b!c"}) {
		t.Errorf("unexpected sentences %q", got)
	}
}

type upperTokenizer struct{ *DefaultTokenizer }

func (upperTokenizer) Tokens(text string) []string { return []string{"FIXED"} }

func TestWithTokenizer(t *testing.T) {
	m := newTestModel(t, WithTokenizer(upperTokenizer{NewDefaultTokenizer()}))
	m.Train("whatever it says", true)

	if m.Count("FIXED") != 1 {
		t.Errorf("expected custom tokenizer to be used, vocabulary is %v", m.vocabulary)
	}
}
