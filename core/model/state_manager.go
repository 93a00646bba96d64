package model

import (
	"sync"

	"github.com/YuminosukeSato/grf/pkg/errors"
)

// StateManager tracks whether an estimator has been fitted and the shape it was
// fitted on. It is safe for concurrent use.
type StateManager struct {
	// Exported for gob encoding.
	Fitted    bool
	NFeatures int
	NSamples  int
	NTargets  int

	mu sync.RWMutex
}

// NewStateManager creates an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted on data of the given shape.
func (s *StateManager) SetFitted(nFeatures, nSamples, nTargets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NFeatures = nFeatures
	s.NSamples = nSamples
	s.NTargets = nTargets
}

// Reset forgets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
	s.NTargets = 0
}

// GetDimensions returns the number of features, samples and targets seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples, nTargets int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples, s.NTargets
}

// RequireFitted returns a NotFittedError naming modelName and method when the
// model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// RequireFeatures returns a DimensionError when X's column count differs from
// the one seen during Fit.
func (s *StateManager) RequireFeatures(op string, nFeatures int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if nFeatures != s.NFeatures {
		return errors.NewDimensionError(op, s.NFeatures, nFeatures, 1)
	}
	return nil
}

// ModelState is a lock-free copy of the state, suitable for serialization.
type ModelState struct {
	Fitted    bool
	NFeatures int
	NSamples  int
	NTargets  int
}

// GetState returns a snapshot of the current state.
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ModelState{Fitted: s.Fitted, NFeatures: s.NFeatures, NSamples: s.NSamples, NTargets: s.NTargets}
}

// SetState replaces the state with a snapshot.
func (s *StateManager) SetState(state ModelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = state.Fitted
	s.NFeatures = state.NFeatures
	s.NSamples = state.NSamples
	s.NTargets = state.NTargets
}
