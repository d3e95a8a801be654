package mentor

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// ProblemSummary is the public view of a catalog problem.
type ProblemSummary struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
}

func summarize(p Problem) ProblemSummary {
	return ProblemSummary{
		Slug:       p.Slug,
		Title:      p.Title,
		Difficulty: string(p.Difficulty),
		Tags:       p.Tags,
	}
}

// Search ranks catalog problems by fuzzy match against their titles. An empty
// query returns every problem in catalog order.
func (c *Catalog) Search(query string) []ProblemSummary {
	query = strings.TrimSpace(query)
	if query == "" {
		return lo.Map(c.Problems, func(p Problem, _ int) ProblemSummary { return summarize(p) })
	}

	titles := lo.Map(c.Problems, func(p Problem, _ int) string { return p.Title })
	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Stable(ranks)

	out := make([]ProblemSummary, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, summarize(c.Problems[r.OriginalIndex]))
	}
	return out
}
