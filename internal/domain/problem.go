package domain

import "slices"

// Difficulty is the canonical difficulty of a problem.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// CurrentProblem is the problem recognized for the session. It is replaced,
// never merged, when another problem is recognized.
type CurrentProblem struct {
	Title      string     `json:"title"`
	Difficulty Difficulty `json:"difficulty"`
	Tags       []string   `json:"tags"`
	HintsGiven int        `json:"hints_given"`
}

// Clone returns a deep copy. A nil receiver yields nil.
func (p *CurrentProblem) Clone() *CurrentProblem {
	if p == nil {
		return nil
	}
	return &CurrentProblem{
		Title:      p.Title,
		Difficulty: p.Difficulty,
		Tags:       slices.Clone(p.Tags),
		HintsGiven: p.HintsGiven,
	}
}
