// Package splitting chooses the variable and threshold that split a tree node.
package splitting

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/grf/data"
	"gonum.org/v1/gonum/floats"
)

// SplittingRule searches the candidate variables of one node for the best split.
//
// On success the rule writes the chosen variable and threshold into
// splitVars[node] and splitValues[node] and returns false. Returning true
// marks the node terminal. Samples without a response take no part in the search.
type SplittingRule interface {
	FindBestSplit(node int, candidateVars []int, responses map[int][]float64,
		samplesByNode [][]int, splitVars []int, splitValues []float64) (stop bool)
}

// SplittingRuleFactory creates a fresh rule for every tree, so rule-local
// buffers are never shared between trainers.
type SplittingRuleFactory interface {
	Create(d data.Data) SplittingRule
}

// minChildSize is the smallest child allowed for a node of n samples.
func minChildSize(n int, alpha float64) int {
	m := int(math.Ceil(float64(n) * alpha))
	if m < 1 {
		m = 1
	}
	return m
}

// scanner holds the per-tree work buffers of the threshold search.
type scanner struct {
	d     data.Data
	alpha float64

	order  []int
	values []float64
	left   []float64
	total  []float64
}

type candidateSplit struct {
	variable    int
	value       float64
	improvement float64
	found       bool
}

// scan evaluates every distinct threshold of every candidate variable.
// rows[i] is the response vector of samples[i]. The score of a split is
// Σ_d (S_L,d²/n_L + S_R,d²/n_R) − Σ_d S_d²/n; the first strictly positive
// maximum wins.
func (s *scanner) scan(candidateVars []int, samples []int, rows [][]float64) candidateSplit {
	n := len(samples)
	best := candidateSplit{}
	if n < 2 || len(rows) == 0 {
		return best
	}
	width := len(rows[0])
	minChild := minChildSize(n, s.alpha)
	if n < 2*minChild {
		return best
	}

	s.total = resize(s.total, width)
	for i := range s.total {
		s.total[i] = 0
	}
	for _, r := range rows {
		floats.Add(s.total, r)
	}
	parentScore := sumSquares(s.total) / float64(n)
	tolerance := 1e-12 * math.Max(1, math.Abs(parentScore))

	for _, v := range candidateVars {
		s.order = s.order[:0]
		s.values = s.values[:0]
		for i, sample := range samples {
			s.order = append(s.order, i)
			s.values = append(s.values, s.d.Get(sample, v))
		}
		sort.SliceStable(s.order, func(a, b int) bool {
			return s.values[s.order[a]] < s.values[s.order[b]]
		})

		s.left = resize(s.left, width)
		for i := range s.left {
			s.left[i] = 0
		}
		for k := 0; k < n-1; k++ {
			idx := s.order[k]
			floats.Add(s.left, rows[idx])

			current := s.values[idx]
			next := s.values[s.order[k+1]]
			if current == next {
				continue
			}
			nLeft := k + 1
			nRight := n - nLeft
			if nLeft < minChild {
				continue
			}
			if nRight < minChild {
				break
			}

			score := 0.0
			for d := 0; d < width; d++ {
				right := s.total[d] - s.left[d]
				score += s.left[d]*s.left[d]/float64(nLeft) + right*right/float64(nRight)
			}
			improvement := score - parentScore
			if improvement > tolerance && improvement > best.improvement {
				best = candidateSplit{variable: v, value: current, improvement: improvement, found: true}
			}
		}
	}
	return best
}

func sumSquares(v []float64) float64 {
	return floats.Dot(v, v)
}

func resize(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}
