package mentor

import (
	"strings"

	"github.com/ashureev/crackd/internal/domain"
)

// Input is what a rule sees: the raw text, its lower-cased form and the
// problem recognized so far.
type Input struct {
	Raw        string
	Normalized string
	Slug       string
	Current    *domain.CurrentProblem
}

// Rule pairs a predicate with an outcome builder. A nil Match always matches.
type Rule struct {
	Name  string
	Match func(in Input) bool
	Build func(in Input) domain.Response
}

// BuildRules turns a catalog into the ordered rule table: one recognition
// rule per problem, then keyword rules, then the fallback.
func BuildRules(c *Catalog) []Rule {
	rules := make([]Rule, 0, len(c.Problems)+len(c.Rules)+1)
	for _, p := range c.Problems {
		rules = append(rules, problemRule(p))
	}
	for _, kr := range c.Rules {
		rules = append(rules, keywordRule(kr, c))
	}
	return append(rules, fallbackRule(c.Fallback))
}

func problemRule(p Problem) Rule {
	return Rule{
		Name: "problem:" + p.Title,
		Match: func(in Input) bool {
			if p.Slug != "" && in.Slug == p.Slug {
				return true
			}
			return containsAny(in.Normalized, p.Keywords)
		},
		Build: func(Input) domain.Response {
			strategy := p.Strategy
			delta := domain.MetadataDelta{
				Patterns:        p.Patterns,
				Tags:            p.SessionTags,
				RelatedProblems: p.Related,
			}
			if strategy != "" {
				delta.Strategy = &strategy
			}
			return domain.Response{
				Reply: domain.NewMessage(domain.RoleMentor, domain.KindText, p.FirstQuestion),
				Delta: delta,
				Problem: &domain.CurrentProblem{
					Title:      p.Title,
					Difficulty: p.Difficulty,
					Tags:       append([]string(nil), p.Tags...),
				},
			}
		},
	}
}

func keywordRule(kr KeywordRule, c *Catalog) Rule {
	return Rule{
		Name: kr.Name,
		Match: func(in Input) bool {
			return containsAny(in.Normalized, kr.Keywords)
		},
		Build: func(in Input) domain.Response {
			var (
				delta   domain.MetadataDelta
				hint    string
				problem *domain.CurrentProblem
			)
			if kr.Hint {
				hint, problem = nextHint(in, c)
			}
			for _, e := range kr.Exercises {
				delta.MiniExercises = append(delta.MiniExercises, strings.ReplaceAll(e, "{problem}", problemTitle(in)))
			}
			if kr.UnlockSolution {
				unlocked := true
				delta.SolutionUnlocked = &unlocked
			}
			return domain.Response{
				Reply:   domain.NewMessage(domain.RoleMentor, kr.Kind, expand(kr.Reply, in, c, hint)),
				Delta:   delta,
				Problem: problem,
			}
		},
	}
}

const (
	noProblemHint = "Tell me which problem you're working on first, then I can point you in the right direction."
	genericHint   = "Start from the brute force, then ask which repeated work a data structure could remember for you."
)

// nextHint returns the current problem's next hint and the problem with that
// hint counted. Once every hint is given the last one repeats.
func nextHint(in Input, c *Catalog) (string, *domain.CurrentProblem) {
	if in.Current == nil {
		return noProblemHint, nil
	}
	p, ok := c.ProblemByTitle(in.Current.Title)
	if !ok || len(p.Hints) == 0 {
		return genericHint, nil
	}
	hint := p.Hints[min(in.Current.HintsGiven, len(p.Hints)-1)]
	next := in.Current.Clone()
	next.HintsGiven++
	return hint, next
}

func problemTitle(in Input) string {
	if in.Current == nil {
		return "this problem"
	}
	return in.Current.Title
}

func fallbackRule(template string) Rule {
	return Rule{
		Name: "fallback",
		Build: func(in Input) domain.Response {
			return domain.Response{
				Reply: domain.NewMessage(domain.RoleMentor, domain.KindText, strings.ReplaceAll(template, "{input}", in.Raw)),
			}
		},
	}
}

// expand fills reply placeholders. {input} is substituted last so user text
// is never itself expanded.
func expand(template string, in Input, c *Catalog, hint string) string {
	problem := "this problem"
	strategy := "Tell me which problem you're working on and we'll build one together."
	if in.Current != nil {
		problem = "**" + in.Current.Title + "**"
		if p, ok := c.ProblemByTitle(in.Current.Title); ok && p.Strategy != "" {
			strategy = p.Strategy
		}
	}
	out := strings.NewReplacer("{problem}", problem, "{strategy}", strategy, "{hint}", hint).Replace(template)
	return strings.ReplaceAll(out, "{input}", in.Raw)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
