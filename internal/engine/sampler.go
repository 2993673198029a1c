package engine

import (
	"math"
	"math/rand"
	"sort"

	"poolchat/internal/linalg"
)

// Sampler draws the next token from logits.
type Sampler struct {
	Temperature float32
	TopP        float32
	rng         *rand.Rand
}

// NewSampler returns a sampler seeded with seed.
func NewSampler(temperature, topP float32, seed int64) *Sampler {
	return &Sampler{Temperature: temperature, TopP: topP, rng: rand.New(rand.NewSource(seed))}
}

// Sample scales logits by the temperature, masks the tail beyond TopP
// cumulative probability and draws from what is left. logits is modified.
func (s *Sampler) Sample(logits []float32) int {
	if s.Temperature > 0 {
		for i := range logits {
			logits[i] /= s.Temperature
		}
	}
	if s.TopP > 0 && s.TopP < 1 {
		topP(logits, s.TopP)
	}
	probs := linalg.Softmax(logits)
	x := s.rng.Float32()
	var cum float32
	for i, p := range probs {
		cum += p
		if cum > x {
			return i
		}
	}
	return len(probs) - 1
}

// topP sets to -Inf every logit, except the most likely, whose cumulative
// probability in descending order exceeds p.
func topP(logits []float32, p float32) {
	probs := linalg.Softmax(logits)
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	var cum float32
	for rank, i := range idx {
		cum += probs[i]
		if rank > 0 && cum > p {
			logits[i] = float32(math.Inf(-1))
		}
	}
}
