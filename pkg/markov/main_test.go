package markov

import (
	"go/build"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// newTestModel creates an empty model with a fixed random source so that
// sampling is reproducible.
func newTestModel(t testing.TB, opts ...Option) *Model {
	t.Helper()
	opts = append([]Option{WithRand(rand.NewPCG(1, 2))}, opts...)
	return New(opts...)
}

// newTrainedModel is a convenience helper that also trains the two example
// sentences used throughout the tests.
func newTrainedModel(t testing.TB) *Model {
	t.Helper()
	m := newTestModel(t)
	m.Train("ich weiss schon.", true)
	m.Train("ich weiss nicht.", true)
	return m
}

// candidateTokens returns the tokens of candidates in order.
func candidateTokens(candidates []Candidate) []string {
	tokens := make([]string, len(candidates))
	for i, c := range candidates {
		tokens[i] = c.Token
	}
	return tokens
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
