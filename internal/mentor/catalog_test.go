package mentor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalCatalog = `
problems:
  - slug: Climbing-Stairs
    title: Climbing Stairs
    difficulty: Easy
    keywords: ["  Climbing Stairs "]
    first_question: "**First Question:** how many ways to reach step 1?"
rules:
  - keywords: [memo]
    reply: "Memoize it, {problem}."
fallback: "You said {input}"
`

func TestParseCatalogNormalizes(t *testing.T) {
	t.Parallel()

	c, err := ParseCatalog([]byte(minimalCatalog))
	require.NoError(t, err)

	require.Len(t, c.Problems, 1)
	assert.Equal(t, "climbing-stairs", c.Problems[0].Slug)
	assert.Equal(t, []string{"climbing stairs"}, c.Problems[0].Keywords)
	require.Len(t, c.Rules, 1)
	assert.Equal(t, "rule-0", c.Rules[0].Name)
	assert.Equal(t, domain.KindText, c.Rules[0].Kind)
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no fallback":        "problems: [{title: A, difficulty: Easy, keywords: [a], first_question: q}]",
		"empty":              "fallback: hi",
		"bad difficulty":     "problems: [{title: A, difficulty: Trivial, keywords: [a], first_question: q}]\nfallback: hi",
		"no keywords":        "problems: [{title: A, difficulty: Easy, first_question: q}]\nfallback: hi",
		"no first question":  "problems: [{title: A, difficulty: Easy, keywords: [a]}]\nfallback: hi",
		"rule no keywords":   "rules: [{name: r, reply: hi}]\nfallback: hi",
		"rule no reply":      "rules: [{name: r, keywords: [x]}]\nfallback: hi",
		"not yaml":           "problems: [",
		"problem no title":   "problems: [{difficulty: Easy, keywords: [a], first_question: q}]\nfallback: hi",
	}
	for name, body := range cases {
		_, err := ParseCatalog([]byte(body))
		assert.Error(t, err, name)
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalCatalog), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	d := NewDispatcher(c, nil)
	resp := d.Respond("https://leetcode.com/problems/climbing-stairs/", nil)
	require.NotNil(t, resp.Problem)
	assert.Equal(t, "Climbing Stairs", resp.Problem.Title)

	resp = d.Respond("add memo", resp.Problem)
	assert.Equal(t, "Memoize it, **Climbing Stairs**.", resp.Reply.Content)

	resp = d.Respond("hmm", nil)
	assert.Equal(t, "You said hmm", resp.Reply.Content)
}

func TestLoadCatalogDefaultsToEmbedded(t *testing.T) {
	t.Parallel()

	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(c.Problems), 1)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProblemLookups(t *testing.T) {
	t.Parallel()

	c, err := DefaultCatalog()
	require.NoError(t, err)

	p, ok := c.ProblemBySlug("TWO-SUM")
	require.True(t, ok)
	assert.Equal(t, "Two Sum", p.Title)

	_, ok = c.ProblemByTitle("Nope")
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	c, err := DefaultCatalog()
	require.NoError(t, err)

	all := c.Search("  ")
	assert.Len(t, all, len(c.Problems))

	hits := c.Search("islnds")
	require.NotEmpty(t, hits)
	assert.Equal(t, "Number of Islands", hits[0].Title)

	assert.Empty(t, c.Search("zzzzzz"))
}

func TestExtractSlug(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://leetcode.com/problems/two-sum/":           "two-sum",
		"see https://www.leetcode.com/problems/Two-Sum?x=1": "two-sum",
		"@valid-parentheses":                                "valid-parentheses",
		"  number-of-islands  ":                             "number-of-islands",
		"two sum please":                                    "",
		"":                                                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, extractSlug(in), in)
	}
}
