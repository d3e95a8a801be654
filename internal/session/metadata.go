package session

import (
	"sync"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/samber/lo"
)

// MetadataStore holds SessionMetadata and merges deltas into it.
type MetadataStore struct {
	mu   sync.Mutex
	meta domain.SessionMetadata
}

// NewMetadataStore creates a store with empty metadata.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{meta: domain.SessionMetadata{}.Clone()}
}

// Get returns a read-only snapshot.
func (s *MetadataStore) Get() domain.SessionMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.Clone()
}

// ApplyDelta merges d and returns the resulting snapshot.
//
// Strategy is last-write-wins. SolutionUnlocked only moves from false to true.
// Patterns and tags are unions that keep first-seen order. Related problems and
// exercises are appended as given.
func (s *MetadataStore) ApplyDelta(d domain.MetadataDelta) domain.SessionMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.Strategy != nil {
		s.meta.Strategy = *d.Strategy
	}
	if d.SolutionUnlocked != nil && *d.SolutionUnlocked {
		s.meta.SolutionUnlocked = true
	}
	if len(d.Patterns) > 0 {
		s.meta.Patterns = lo.Uniq(append(s.meta.Patterns, d.Patterns...))
	}
	if len(d.Tags) > 0 {
		s.meta.Tags = lo.Uniq(append(s.meta.Tags, d.Tags...))
	}
	s.meta.RelatedProblems = append(s.meta.RelatedProblems, d.RelatedProblems...)
	s.meta.MiniExercises = append(s.meta.MiniExercises, d.MiniExercises...)

	return s.meta.Clone()
}
