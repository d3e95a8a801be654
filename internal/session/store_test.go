package session

import (
	"fmt"
	"testing"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageStoreAppendOnly(t *testing.T) {
	t.Parallel()

	s := NewMessageStore(nil)
	var prev []domain.ChatMessage
	for i := 0; i < 20; i++ {
		s.Append(domain.NewMessage(domain.RoleUser, "", fmt.Sprintf("msg %d", i)))
		all := s.All()
		require.Len(t, all, i+1)
		assert.Equal(t, prev, all[:len(prev)], "earlier entries must never change")
		prev = all
	}
}

func TestMessageStoreAllReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewMessageStore(nil)
	s.Append(domain.NewMessage(domain.RoleUser, "", "original"))

	all := s.All()
	all[0].Content = "tampered"

	assert.Equal(t, "original", s.All()[0].Content)
}

func TestMessageStoreObserverGetsFullSequence(t *testing.T) {
	t.Parallel()

	var seen [][]domain.ChatMessage
	s := NewMessageStore(func(msgs []domain.ChatMessage) {
		seen = append(seen, msgs)
	})
	s.Append(domain.NewMessage(domain.RoleMentor, "", "hello"))
	s.Append(domain.NewMessage(domain.RoleUser, "", "hi"))

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 1)
	assert.Len(t, seen[1], 2)
	assert.Equal(t, "hi", seen[1][1].Content)
}

func TestMetadataStoreMergeSemantics(t *testing.T) {
	t.Parallel()

	s := NewMetadataStore()
	strategy := "Use hash table to store complements"
	got := s.ApplyDelta(domain.MetadataDelta{
		Strategy:        &strategy,
		Patterns:        []string{"Hash Table Lookup"},
		Tags:            []string{"Array", "Hash Table"},
		RelatedProblems: []string{"3Sum"},
	})
	assert.Equal(t, strategy, got.Strategy)

	next := "Sort then sweep"
	got = s.ApplyDelta(domain.MetadataDelta{
		Strategy:        &next,
		Patterns:        []string{"Hash Table Lookup", "Sort Then Sweep"},
		Tags:            []string{"Hash Table", "Sorting"},
		RelatedProblems: []string{"3Sum"},
		MiniExercises:   []string{"Find complement in array"},
	})

	assert.Equal(t, next, got.Strategy)
	assert.Equal(t, []string{"Hash Table Lookup", "Sort Then Sweep"}, got.Patterns)
	assert.Equal(t, []string{"Array", "Hash Table", "Sorting"}, got.Tags)
	assert.Equal(t, []string{"3Sum", "3Sum"}, got.RelatedProblems, "sequences keep duplicates as given")
	assert.Equal(t, []string{"Find complement in array"}, got.MiniExercises)
}

func TestMetadataStoreEmptyDeltaKeepsStrategy(t *testing.T) {
	t.Parallel()

	s := NewMetadataStore()
	strategy := "Two pointers"
	s.ApplyDelta(domain.MetadataDelta{Strategy: &strategy})
	got := s.ApplyDelta(domain.MetadataDelta{})

	assert.Equal(t, strategy, got.Strategy)
}

func TestMetadataStoreSolutionUnlockedIsMonotonic(t *testing.T) {
	t.Parallel()

	s := NewMetadataStore()
	yes, no := true, false

	assert.False(t, s.ApplyDelta(domain.MetadataDelta{SolutionUnlocked: &no}).SolutionUnlocked)
	assert.True(t, s.ApplyDelta(domain.MetadataDelta{SolutionUnlocked: &yes}).SolutionUnlocked)
	assert.True(t, s.ApplyDelta(domain.MetadataDelta{SolutionUnlocked: &no}).SolutionUnlocked)
}

func TestMetadataStoreSizesNeverDecrease(t *testing.T) {
	t.Parallel()

	s := NewMetadataStore()
	deltas := []domain.MetadataDelta{
		{Patterns: []string{"a"}, Tags: []string{"x"}},
		{},
		{Patterns: []string{"a"}, MiniExercises: []string{"e1"}},
		{Tags: []string{"x", "y"}, RelatedProblems: []string{"p"}},
		{Patterns: []string{"b"}},
	}

	prev := s.Get()
	for _, d := range deltas {
		cur := s.ApplyDelta(d)
		assert.GreaterOrEqual(t, len(cur.Patterns), len(prev.Patterns))
		assert.GreaterOrEqual(t, len(cur.Tags), len(prev.Tags))
		assert.GreaterOrEqual(t, len(cur.RelatedProblems), len(prev.RelatedProblems))
		assert.GreaterOrEqual(t, len(cur.MiniExercises), len(prev.MiniExercises))
		prev = cur
	}
}

func TestMetadataStoreGetIsSnapshot(t *testing.T) {
	t.Parallel()

	s := NewMetadataStore()
	s.ApplyDelta(domain.MetadataDelta{Patterns: []string{"Stack Matching"}})

	snap := s.Get()
	snap.Patterns[0] = "tampered"

	assert.Equal(t, "Stack Matching", s.Get().Patterns[0])
}
