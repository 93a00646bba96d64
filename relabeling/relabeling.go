// Package relabeling turns the observations of a node's samples into the
// pseudo-outcomes that splitting rules score.
package relabeling

import (
	"github.com/YuminosukeSato/grf/data"
)

// RelabelingStrategy computes a pseudo-outcome vector for each sample of a node.
//
// The returned map may cover only part of samples; omitted samples take no
// part in the split search. An empty map means the node must not be split.
type RelabelingStrategy interface {
	Relabel(samples []int, obs *data.Observations) map[int][]float64
}

// NoopRelabelingStrategy uses the outcome row unchanged.
type NoopRelabelingStrategy struct{}

// NewNoopRelabelingStrategy creates a NoopRelabelingStrategy.
func NewNoopRelabelingStrategy() *NoopRelabelingStrategy {
	return &NoopRelabelingStrategy{}
}

// Relabel implements RelabelingStrategy.
func (NoopRelabelingStrategy) Relabel(samples []int, obs *data.Observations) map[int][]float64 {
	out := make(map[int][]float64, len(samples))
	for _, s := range samples {
		out[s] = obs.Get(data.Outcome, s)
	}
	return out
}
