package markov

// Tokenizer is an interface that defines the contract for turning raw text
// into the normalized tokens the model stores. This allows the core training
// logic to be independent of the specific preprocessing strategy.
type Tokenizer interface {
	// Tokens splits one sequence of text into case-folded tokens. It never
	// returns empty tokens.
	Tokens(text string) []string
	// Sentences splits a longer text into the units passed to Tokens, one
	// per trained sequence. Empty units are preserved.
	Sentences(text string) []string
}

// Candidate is a possible next token together with its unnormalized score.
type Candidate struct {
	Token string  `json:"token"`
	Score float64 `json:"score"`
}
