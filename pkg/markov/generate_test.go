package markov

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestGenerateUnbounded(t *testing.T) {
	m := newTrainedModel(t)

	for i := 0; i < 20; i++ {
		text, err := m.Generate(context.Background(), nil)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if text != "ich weiss schon ." && text != "ich weiss nicht ." {
			t.Fatalf("unexpected output %q", text)
		}
	}
}

func TestGenerateSeeds(t *testing.T) {
	m := newTrainedModel(t)

	testCases := []struct {
		name   string
		seed   []string
		prefix string
	}{
		{name: "Known start token", seed: []string{"Ich"}, prefix: "ich weiss "},
		{name: "Two tokens", seed: []string{"ich", "weiss"}, prefix: "ich weiss "},
		{name: "Seed text", seed: []string{"Ich weiss"}, prefix: "ich weiss "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text, err := m.Generate(context.Background(), tc.seed)
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if !strings.HasPrefix(text, tc.prefix) || !strings.HasSuffix(text, " .") {
				t.Errorf("expected %q prefix and end marker, got %q", tc.prefix, text)
			}
		})
	}
}

func TestGenerateUnknownSingleSeed(t *testing.T) {
	m := newTrainedModel(t)

	text, err := m.Generate(context.Background(), []string{"hund"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	fields := strings.Fields(text)
	if len(fields) != 3 {
		t.Fatalf("expected 3 tokens, got %q", text)
	}
	if fields[0] != "hund" || fields[2] != EndMarker {
		t.Errorf("unexpected output %q", text)
	}
	if !slices.Contains([]string{"ich", "weiss", "schon", "nicht"}, fields[1]) {
		t.Errorf("expected second token drawn from the vocabulary, got %q", fields[1])
	}
}

func TestGenerateFixedLength(t *testing.T) {
	testCases := []struct {
		name  string
		train []string
		seed  []string
	}{
		{name: "Trained model", train: []string{"ich weiss schon.", "ich weiss nicht."}, seed: nil},
		{name: "Only end marker follows", train: []string{"a b"}, seed: []string{"a", "b"}},
		{name: "Seed longer than target", train: []string{"a b"}, seed: []string{"a", "b", "a", "b", "a", "b", "a"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestModel(t)
			for _, text := range tc.train {
				m.Train(text, true)
			}

			text, err := m.Generate(context.Background(), tc.seed, WithTargetLength(5))
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			fields := strings.Fields(text)
			if len(fields) != 5 {
				t.Fatalf("expected exactly 5 tokens, got %d: %q", len(fields), text)
			}
			for _, f := range fields {
				if f == EndMarker {
					t.Errorf("expected no end marker in fixed-length output, got %q", text)
				}
			}
		})
	}
}

func TestGenerateEmptyModel(t *testing.T) {
	m := newTestModel(t)

	if _, err := m.Generate(context.Background(), nil); !errors.Is(err, ErrEmptyModel) {
		t.Errorf("expected ErrEmptyModel, got %v", err)
	}
	if _, err := m.Generate(context.Background(), []string{"x"}, WithTargetLength(3)); !errors.Is(err, ErrEmptyModel) {
		t.Errorf("expected ErrEmptyModel in fixed-length mode, got %v", err)
	}
}

func TestGenerateMaxSteps(t *testing.T) {
	m := newTestModel(t)
	m.TrainSequence([]string{"a", "a", "a", "a", "a"})

	text, err := m.Generate(context.Background(), []string{"a", "a"}, WithMaxSteps(10))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	want := strings.Repeat("a ", 12) + EndMarker
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}

	text, err = m.Generate(context.Background(), []string{"a", "a"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got := len(strings.Fields(text)); got != 2+defaultMaxSteps+1 {
		t.Errorf("expected default step cap to bound output at %d tokens, got %d", 2+defaultMaxSteps+1, got)
	}
}

func TestGenerateGapFillStop(t *testing.T) {
	m := newTestModel(t)
	m.TrainSequence([]string{"a", "a", "a", "a", "a"})

	// mean length is 4.5, so the sequence grows to 10 tokens and then stops by chance
	text, err := m.Generate(context.Background(), []string{"a", "a"}, WithGapFill(true), WithMaxSteps(0))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	want := strings.Repeat("a ", 10) + EndMarker
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}
}

func TestGenerateGapFillImprovises(t *testing.T) {
	m := newTrainedModel(t)

	text, err := m.Generate(context.Background(), []string{"gar", "nichts"}, WithGapFill(true))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if fields := strings.Fields(text); len(fields) < 4 {
		t.Errorf("expected improvised continuation of the unknown context, got %q", text)
	}

	text, err = m.Generate(context.Background(), []string{"gar", "nichts"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "gar nichts ." {
		t.Errorf("expected immediate end without gap filling, got %q", text)
	}
}

func TestGenerateCancelled(t *testing.T) {
	m := newTrainedModel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Generate(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func BenchmarkGenerate(b *testing.B) {
	m := newTestModel(b)
	m.TrainText(createBenchmarkCorpus())
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Generate(ctx, nil, WithMaxSteps(100))
	}
}

func TestGenerateStream(t *testing.T) {
	m := newTrainedModel(t)

	tokens, err := m.GenerateStream(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}

	var texts []string
	ends := 0
	for token := range tokens {
		texts = append(texts, token.Text)
		if token.End {
			ends++
		}
	}
	text := strings.Join(texts, " ")
	if text != "ich weiss schon ." && text != "ich weiss nicht ." {
		t.Errorf("unexpected streamed output %q", text)
	}
	if ends != 1 || !strings.HasSuffix(text, EndMarker) {
		t.Errorf("expected exactly one end token at the end, got %d in %q", ends, text)
	}
}

func TestGenerateStreamFixedLength(t *testing.T) {
	m := newTrainedModel(t)

	tokens, err := m.GenerateStream(context.Background(), []string{"ich", "weiss", "schon", "nicht"}, WithTargetLength(3))
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}
	var texts []string
	for token := range tokens {
		texts = append(texts, token.Text)
	}
	if want := []string{"ich", "weiss", "schon"}; !slices.Equal(texts, want) {
		t.Errorf("expected truncated seed %v, got %v", want, texts)
	}
}

func TestGenerateStreamEmptyModel(t *testing.T) {
	m := newTestModel(t)

	if _, err := m.GenerateStream(context.Background(), nil); !errors.Is(err, ErrEmptyModel) {
		t.Errorf("expected ErrEmptyModel, got %v", err)
	}
}

func TestGenerateStreamExtensionError(t *testing.T) {
	m := newTestModel(t)

	tokens, err := m.GenerateStream(context.Background(), []string{"x", "y"}, WithTargetLength(4))
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}
	var texts []string
	var streamErr error
	for token := range tokens {
		if token.Err != nil {
			streamErr = token.Err
			continue
		}
		texts = append(texts, token.Text)
	}
	if !slices.Equal(texts, []string{"x", "y"}) {
		t.Errorf("expected the seed tokens before the error, got %v", texts)
	}
	if !errors.Is(streamErr, ErrEmptyModel) {
		t.Errorf("expected a final ErrEmptyModel token, got %v", streamErr)
	}
}

func TestGenerateStreamCancel(t *testing.T) {
	m := newTestModel(t)
	m.TrainSequence([]string{"a", "a", "a", "a", "a"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens, err := m.GenerateStream(ctx, []string{"a", "a"}, WithMaxSteps(0))
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}

	received := 0
	for range tokens {
		received++
		if received == 5 {
			cancel()
		}
	}
	if received < 5 {
		t.Errorf("expected at least 5 tokens before cancellation, got %d", received)
	}
}
