package domain

import "slices"

// SessionMetadata holds the facts accumulated during one problem-solving session.
type SessionMetadata struct {
	Strategy         string   `json:"strategy"`
	Patterns         []string `json:"patterns"`
	Tags             []string `json:"tags"`
	RelatedProblems  []string `json:"related_problems"`
	MiniExercises    []string `json:"mini_exercises"`
	SolutionUnlocked bool     `json:"solution_unlocked"`
}

// Clone returns a copy that shares no backing arrays with m.
func (m SessionMetadata) Clone() SessionMetadata {
	return SessionMetadata{
		Strategy:         m.Strategy,
		Patterns:         cloneNonNil(m.Patterns),
		Tags:             cloneNonNil(m.Tags),
		RelatedProblems:  cloneNonNil(m.RelatedProblems),
		MiniExercises:    cloneNonNil(m.MiniExercises),
		SolutionUnlocked: m.SolutionUnlocked,
	}
}

// MetadataDelta is a partial SessionMetadata. Nil pointers and empty slices
// leave the corresponding field untouched.
type MetadataDelta struct {
	Strategy         *string  `json:"strategy,omitempty"`
	Patterns         []string `json:"patterns,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	RelatedProblems  []string `json:"related_problems,omitempty"`
	MiniExercises    []string `json:"mini_exercises,omitempty"`
	SolutionUnlocked *bool    `json:"solution_unlocked,omitempty"`
}

// IsEmpty reports whether applying d would change nothing.
func (d MetadataDelta) IsEmpty() bool {
	return d.Strategy == nil &&
		len(d.Patterns) == 0 &&
		len(d.Tags) == 0 &&
		len(d.RelatedProblems) == 0 &&
		len(d.MiniExercises) == 0 &&
		d.SolutionUnlocked == nil
}

func cloneNonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
