package markov

import (
	"context"
	"log/slog"
)

// Token is a single generated token delivered by GenerateStream. A Token with
// a non-nil Err carries no text and is the last one sent.
type Token struct {
	Text string
	End  bool // Text is EndMarker
	Err  error
}

// GenerateStream runs Generate in a new goroutine and returns a read-only
// channel of Tokens. Each token is sent as soon as it becomes part of the
// output, seed tokens first. The channel is closed once generation is
// complete or the context is cancelled.
//
// Seeding errors, such as ErrEmptyModel, are returned directly. Errors during
// extension are delivered as a final Token with Err set, unless the context
// is already done. The model must not be used by the caller until the
// channel has been closed.
func (m *Model) GenerateStream(ctx context.Context, seed []string, opts ...GenerateOption) (<-chan Token, error) {
	options := newGenerateOptions(opts)

	sequence, err := m.seedSequence(seed)
	if err != nil {
		return nil, err
	}

	tokenChan := make(chan Token)
	options.onToken = func(text string) {
		select {
		case tokenChan <- Token{Text: text, End: text == EndMarker}:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(tokenChan)
		if _, err := m.extend(ctx, sequence, options); err != nil {
			m.logger.DebugContext(ctx, "Stream generation stopped early", slog.String("error", err.Error()))
			select {
			case tokenChan <- Token{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return tokenChan, nil
}
