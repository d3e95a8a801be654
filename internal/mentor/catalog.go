// Package mentor implements the scripted mentor: a YAML rule catalog and the
// ordered, first-match-wins dispatcher built from it.
package mentor

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ashureev/crackd/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	errNoFallback   = errors.New("catalog has no fallback reply")
	errEmptyCatalog = errors.New("catalog has no problems and no rules")
)

// Problem is a canonical problem definition.
type Problem struct {
	Slug          string            `yaml:"slug" json:"slug"`
	Title         string            `yaml:"title" json:"title"`
	Difficulty    domain.Difficulty `yaml:"difficulty" json:"difficulty"`
	Keywords      []string          `yaml:"keywords" json:"keywords"`
	Tags          []string          `yaml:"tags" json:"tags"`
	Strategy      string            `yaml:"strategy" json:"strategy"`
	Patterns      []string          `yaml:"patterns" json:"patterns"`
	SessionTags   []string          `yaml:"session_tags" json:"session_tags"`
	Related       []string          `yaml:"related" json:"related"`
	Hints         []string          `yaml:"hints" json:"-"`
	FirstQuestion string            `yaml:"first_question" json:"-"`
}

// KeywordRule is a catalog rule triggered by any of its keywords.
type KeywordRule struct {
	Name           string      `yaml:"name"`
	Keywords       []string    `yaml:"keywords"`
	Kind           domain.Kind `yaml:"kind"`
	Reply          string      `yaml:"reply"`
	Exercises      []string    `yaml:"exercises"`
	UnlockSolution bool        `yaml:"unlock_solution"`
	// Hint fills {hint} with the current problem's next hint.
	Hint           bool        `yaml:"hint"`
}

// Catalog is the data behind the dispatcher's rule table.
type Catalog struct {
	Problems []Problem     `yaml:"problems"`
	Rules    []KeywordRule `yaml:"rules"`
	Fallback string        `yaml:"fallback"`
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog from path, or the embedded one if path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog. Keywords and slugs are
// normalized to lower case.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.normalize(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) normalize() error {
	if len(c.Problems) == 0 && len(c.Rules) == 0 {
		return errEmptyCatalog
	}
	if strings.TrimSpace(c.Fallback) == "" {
		return errNoFallback
	}
	for i := range c.Problems {
		p := &c.Problems[i]
		if p.Title == "" {
			return fmt.Errorf("problem %d: title is required", i)
		}
		if !p.Difficulty.Valid() {
			return fmt.Errorf("problem %q: unknown difficulty %q", p.Title, p.Difficulty)
		}
		p.Slug = strings.ToLower(strings.TrimSpace(p.Slug))
		p.Keywords = normalizeKeywords(p.Keywords)
		if len(p.Keywords) == 0 && p.Slug == "" {
			return fmt.Errorf("problem %q: needs a slug or at least one keyword", p.Title)
		}
		if strings.TrimSpace(p.FirstQuestion) == "" {
			return fmt.Errorf("problem %q: first_question is required", p.Title)
		}
	}
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule-%d", i)
		}
		r.Keywords = normalizeKeywords(r.Keywords)
		if len(r.Keywords) == 0 {
			return fmt.Errorf("rule %q: at least one keyword is required", r.Name)
		}
		if strings.TrimSpace(r.Reply) == "" {
			return fmt.Errorf("rule %q: reply is required", r.Name)
		}
		if r.Kind == "" {
			r.Kind = domain.KindText
		}
	}
	return nil
}

// ProblemByTitle finds a problem by exact title.
func (c *Catalog) ProblemByTitle(title string) (Problem, bool) {
	for _, p := range c.Problems {
		if p.Title == title {
			return p, true
		}
	}
	return Problem{}, false
}

// ProblemBySlug finds a problem by slug.
func (c *Catalog) ProblemBySlug(slug string) (Problem, bool) {
	slug = strings.ToLower(slug)
	for _, p := range c.Problems {
		if p.Slug != "" && p.Slug == slug {
			return p, true
		}
	}
	return Problem{}, false
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
