// Package sampling provides the seeded random source bound to the construction
// of one tree group. All randomness used while growing a tree flows through a
// RandomSampler, so identical seeds and call sequences give identical draws.
package sampling

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// pcgStream is the fixed PCG increment; the seed alone selects the stream state.
const pcgStream = 0x9e3779b97f4a7c15

// RandomSampler is a seedable, reproducible random source. It is not safe for
// concurrent use; each worker owns its own sampler.
type RandomSampler struct {
	rng *rand.Rand
}

// NewRandomSampler creates a sampler seeded with seed.
func NewRandomSampler(seed uint64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewPCG(seed, pcgStream))}
}

// Subsample randomly partitions samples into a first part of size
// ceil(fraction*len(samples)) and the remainder.
func (s *RandomSampler) Subsample(samples []int, fraction float64) (subsamples, rest []int) {
	shuffled := make([]int, len(samples))
	copy(shuffled, samples)
	s.Shuffle(shuffled)

	size := int(math.Ceil(float64(len(samples)) * fraction))
	if size > len(shuffled) {
		size = len(shuffled)
	}
	if size < 0 {
		size = 0
	}
	return shuffled[:size:size], shuffled[size:]
}

// SampleClusters draws a subsample of [0, numRows) of the given fraction.
func (s *RandomSampler) SampleClusters(numRows int, fraction float64) (subsamples, rest []int) {
	all := make([]int, numRows)
	for i := range all {
		all[i] = i
	}
	return s.Subsample(all, fraction)
}

// Shuffle permutes samples in place.
func (s *RandomSampler) Shuffle(samples []int) {
	s.rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
}

// SamplePoisson draws a Poisson variate with the given mean. A non-positive mean
// yields 0.
func (s *RandomSampler) SamplePoisson(mean float64) int {
	if mean <= 0 {
		return 0
	}
	p := distuv.Poisson{Lambda: mean, Src: s.rng}
	return int(p.Rand())
}

// DrawWithoutReplacementSkip appends count distinct indices drawn uniformly from
// [0, universe) excluding skip.
func (s *RandomSampler) DrawWithoutReplacementSkip(out []int, universe int, skip []int, count int) ([]int, error) {
	if count <= 0 {
		return out, nil
	}

	skipped := make(map[int]struct{}, len(skip))
	for _, v := range skip {
		if v >= 0 && v < universe {
			skipped[v] = struct{}{}
		}
	}
	candidates := make([]int, 0, universe-len(skipped))
	for i := 0; i < universe; i++ {
		if _, ok := skipped[i]; !ok {
			candidates = append(candidates, i)
		}
	}
	if count > len(candidates) {
		return out, errors.NewInsufficientCandidatesError("DrawWithoutReplacementSkip", count, len(candidates))
	}

	picks := make([]int, count)
	sampleuv.WithoutReplacement(picks, len(candidates), s.rng)
	for _, p := range picks {
		out = append(out, candidates[p])
	}
	return out, nil
}

// DrawWithoutReplacementWeighted appends count distinct values of candidates,
// each drawn with probability proportional to its weight among those remaining.
// Candidates with a non-positive weight are never drawn.
func (s *RandomSampler) DrawWithoutReplacementWeighted(out []int, candidates []int, count int, weights []float64) ([]int, error) {
	if len(weights) != len(candidates) {
		return out, errors.NewDimensionError("DrawWithoutReplacementWeighted", len(candidates), len(weights), 0)
	}
	if count <= 0 {
		return out, nil
	}

	w := make([]float64, len(weights))
	available := 0
	for i, v := range weights {
		if v > 0 {
			w[i] = v
			available++
		}
	}
	if count > available {
		return out, errors.NewInsufficientCandidatesError("DrawWithoutReplacementWeighted", count, available)
	}

	sampler := sampleuv.NewWeighted(w, s.rng)
	for i := 0; i < count; i++ {
		idx, ok := sampler.Take()
		if !ok {
			return out, errors.NewInsufficientCandidatesError("DrawWithoutReplacementWeighted", count, i)
		}
		out = append(out, candidates[idx])
	}
	return out, nil
}

// Uint64 exposes the generator, e.g. to derive seeds for child samplers.
func (s *RandomSampler) Uint64() uint64 {
	return s.rng.Uint64()
}

// SortedCopy returns a sorted copy of v.
func SortedCopy(v []int) []int {
	out := make([]int, len(v))
	copy(out, v)
	sort.Ints(out)
	return out
}
