package markov

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

const (
	// earlyStopChance is the per-step probability of ending a gap-filled
	// sequence once it is longer than twice the mean length.
	earlyStopChance = 0.3
	// defaultMaxSteps bounds the unbounded extension loop.
	defaultMaxSteps = 1000
)

// generateOptions Is used by Generate to configure default options.
type generateOptions struct {
	targetLength int
	gapFill      bool
	maxSteps     int
	onToken      func(string)
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		targetLength: 0,
		gapFill:      false,
		maxSteps:     defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// emit reports a token that has become part of the output.
func (o *generateOptions) emit(token string) {
	if o.onToken != nil {
		o.onToken(token)
	}
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument to Generate.
type GenerateOption func(*generateOptions)

// WithTargetLength makes Generate return exactly n tokens, improvising
// whenever the chain cannot continue. A value of 0 or less keeps the default
// unbounded mode, which runs until the end marker is drawn.
func WithTargetLength(n int) GenerateOption {
	return func(o *generateOptions) { o.targetLength = n }
}

// WithGapFill enables improvisation from the unigram priors in unbounded mode
// when a context has never been seen. It also lets a sequence that has grown
// past twice the mean length stop early.
func WithGapFill(enabled bool) GenerateOption {
	return func(o *generateOptions) { o.gapFill = enabled }
}

// WithMaxSteps caps the number of extension steps in unbounded mode. When the
// cap is hit the sequence is closed with the end marker. A value of 0 disables
// the cap.
func WithMaxSteps(n int) GenerateOption {
	return func(o *generateOptions) { o.maxSteps = n }
}

// Generate builds a sequence from seed and returns its tokens joined by single
// spaces. In unbounded mode the result always ends with EndMarker.
//
// With no seed the first two tokens are sampled from the sequence starts. A
// single seed token that is known to start sequences is continued from there;
// any other single token is followed by a draw weighted by raw vocabulary
// counts. Two or more seed tokens are used as given.
func (m *Model) Generate(ctx context.Context, seed []string, opts ...GenerateOption) (string, error) {
	options := newGenerateOptions(opts)

	sequence, err := m.seedSequence(seed)
	if err != nil {
		return "", err
	}
	if sequence, err = m.extend(ctx, sequence, options); err != nil {
		return "", err
	}
	return strings.Join(sequence, " "), nil
}

// extend emits the seeded sequence and runs the extension loop selected by
// options.
func (m *Model) extend(ctx context.Context, sequence []string, options *generateOptions) ([]string, error) {
	if options.targetLength > 0 && len(sequence) > options.targetLength {
		sequence = sequence[:options.targetLength]
	}
	for _, token := range sequence {
		options.emit(token)
	}

	if options.targetLength > 0 {
		return m.extendFixed(ctx, sequence, options)
	}
	return m.extendUnbounded(ctx, sequence, options)
}

// seedSequence turns the caller's seed into the initial sequence.
func (m *Model) seedSequence(seed []string) ([]string, error) {
	sequence := m.tokenizer.Tokens(strings.Join(seed, " "))

	switch len(sequence) {
	case 0:
		first := m.Sample(m.mustNext(false, StartToken))
		if first == "" || first == EndMarker {
			return nil, ErrEmptyModel
		}
		sequence = append(sequence, first)
		if second := m.Sample(m.mustNext(false, StartToken, first)); isToken(second) {
			sequence = append(sequence, second)
		}
	case 1:
		var second string
		if m.IsStartToken(sequence[0]) {
			second = m.Sample(m.mustNext(false, StartToken, sequence[0]))
		} else {
			second = m.Sample(m.vocabularyCounts())
		}
		if isToken(second) {
			sequence = append(sequence, second)
		}
	}
	return sequence, nil
}

// extendUnbounded appends tokens until the end marker or the empty token is
// drawn, or a gap-filled sequence that has grown too long stops by chance.
func (m *Model) extendUnbounded(ctx context.Context, sequence []string, options *generateOptions) ([]string, error) {
	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled after %d steps: %w", step, err)
		}
		if options.maxSteps > 0 && step >= options.maxSteps {
			m.logger.WarnContext(ctx, "Generation terminated by step limit",
				slog.Int("max_steps", options.maxSteps),
				slog.Int("generated_length", len(sequence)),
			)
			options.emit(EndMarker)
			return append(sequence, EndMarker), nil
		}

		next := m.Sample(m.mustNext(options.gapFill, m.contextOf(sequence)...))
		if !isToken(next) {
			m.logger.DebugContext(ctx, "Generation terminated by end marker",
				slog.Int("generated_length", len(sequence)),
			)
			options.emit(EndMarker)
			return append(sequence, EndMarker), nil
		}

		if options.gapFill && float64(len(sequence)) > 2*m.meanLength {
			if m.stop(earlyStopChance) {
				m.logger.DebugContext(ctx, "Generation terminated past mean length",
					slog.Float64("mean_length", m.meanLength),
					slog.Int("generated_length", len(sequence)),
				)
				options.emit(EndMarker)
				return append(sequence, EndMarker), nil
			}
			continue
		}
		options.emit(next)
		sequence = append(sequence, next)
	}
}

// extendFixed appends exactly one token per iteration until the sequence has
// the target length. A draw of the end marker or the empty token is replaced
// by a prior-weighted draw from the vocabulary.
func (m *Model) extendFixed(ctx context.Context, sequence []string, options *generateOptions) ([]string, error) {
	for len(sequence) < options.targetLength {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled at length %d: %w", len(sequence), err)
		}
		next := m.Sample(m.mustNext(true, m.contextOf(sequence)...))
		if !isToken(next) {
			next = m.Sample(m.vocabularyPriors())
		}
		if !isToken(next) {
			return nil, ErrEmptyModel
		}
		options.emit(next)
		sequence = append(sequence, next)
	}
	return sequence, nil
}

// contextOf returns the prediction context for the current sequence: its last
// two tokens, or the start token followed by its only token.
func (m *Model) contextOf(sequence []string) []string {
	switch len(sequence) {
	case 0:
		return []string{StartToken}
	case 1:
		return []string{StartToken, sequence[0]}
	default:
		return sequence[len(sequence)-2:]
	}
}

// mustNext calls Next with a context that is valid by construction.
func (m *Model) mustNext(improvise bool, context ...string) []Candidate {
	candidates, err := m.Next(improvise, context...)
	if err != nil {
		panic(fmt.Sprintf("markov: invalid internal context %q: %v", context, err))
	}
	return candidates
}

// vocabularyCounts returns every vocabulary token weighted by its raw count.
func (m *Model) vocabularyCounts() []Candidate {
	tokens := slices.Sorted(maps.Keys(m.vocabulary))
	candidates := make([]Candidate, 0, len(tokens))
	for _, token := range tokens {
		candidates = append(candidates, Candidate{Token: token, Score: float64(m.vocabulary[token])})
	}
	SortCandidates(candidates)
	return candidates
}

// vocabularyPriors returns the vocabulary scored by prior, leaving out the
// reserved tokens.
func (m *Model) vocabularyPriors() []Candidate {
	candidates := m.improvise()
	candidates = slices.DeleteFunc(candidates, func(c Candidate) bool {
		return !isToken(c.Token)
	})
	SortCandidates(candidates)
	return candidates
}

// isToken reports whether t is a real token rather than the empty token or
// the end marker.
func isToken(t string) bool {
	return t != "" && t != EndMarker
}
