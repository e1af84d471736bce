package markov

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// Sample draws one token from candidates by inversion sampling over their
// unnormalized scores. Only the relative magnitude of the scores matters.
// An empty list yields the empty token. When every score is 0 the first
// candidate is returned.
func (m *Model) Sample(candidates []Candidate) string {
	if len(candidates) == 0 {
		return ""
	}

	cumulative := make([]float64, len(candidates))
	var total float64
	for i, c := range candidates {
		total += c.Score
		cumulative[i] = total
	}

	u := distuv.Uniform{Min: 0, Max: total, Src: m.src}.Rand()
	for i, sum := range cumulative {
		if u <= sum {
			return candidates[i].Token
		}
	}
	return candidates[len(candidates)-1].Token
}

// stop reports the outcome of a single Bernoulli draw with probability p.
func (m *Model) stop(p float64) bool {
	return distuv.Bernoulli{P: p, Src: m.src}.Rand() == 1
}
