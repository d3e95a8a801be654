package mentor

import (
	"context"
	"strings"
	"testing"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return NewDispatcher(c, nil)
}

func TestRespondRecognizesTwoSum(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	resp := d.Respond("Can you help with the two sum problem?", nil)

	require.NotNil(t, resp.Problem)
	assert.Equal(t, domain.CurrentProblem{
		Title:      "Two Sum",
		Difficulty: domain.DifficultyEasy,
		Tags:       []string{"Array", "Hash Table"},
	}, *resp.Problem)
	require.NotNil(t, resp.Delta.Strategy)
	assert.Equal(t, "Use hash table to store complements", *resp.Delta.Strategy)
	assert.Equal(t, []string{"Hash Table Lookup"}, resp.Delta.Patterns)
	assert.Equal(t, []string{"Array", "Hash Table", "One Pass"}, resp.Delta.Tags)
	assert.Equal(t, []string{"3Sum", "Two Sum II", "Two Sum BST"}, resp.Delta.RelatedProblems)
	assert.Contains(t, resp.Reply.Content, "First Question")
	assert.Equal(t, domain.RoleMentor, resp.Reply.Role)
	assert.Equal(t, domain.KindText, resp.Reply.Kind)
}

func TestRespondTargetSumAlias(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	resp := d.Respond("TARGET SUM over an array", nil)

	require.NotNil(t, resp.Problem)
	assert.Equal(t, "Two Sum", resp.Problem.Title)
}

func TestRespondRecognizesProblemURL(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	cases := []string{
		"https://leetcode.com/problems/merge-intervals/",
		"@https://leetcode.com/problems/merge-intervals/description/",
		"please look at @merge-intervals",
		"merge-intervals",
	}
	for _, in := range cases {
		resp := d.Respond(in, nil)
		require.NotNil(t, resp.Problem, in)
		assert.Equal(t, "Merge Intervals", resp.Problem.Title, in)
		assert.Equal(t, domain.DifficultyMedium, resp.Problem.Difficulty, in)
	}
}

func TestRespondBruteForce(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	current := &domain.CurrentProblem{Title: "Two Sum", Difficulty: domain.DifficultyEasy}

	resp := d.Respond("I think it's brute force, nested loops", current)

	assert.Equal(t, domain.KindCode, resp.Reply.Kind)
	assert.True(t, resp.Delta.IsEmpty())
	assert.Nil(t, resp.Problem)
	assert.Contains(t, resp.Reply.Content, "O(n²)")
	assert.Contains(t, resp.Reply.Content, "```python")
}

func TestRespondHashAddsExercises(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	for _, in := range []string{"maybe a hash map?", "use a Dictionary"} {
		resp := d.Respond(in, nil)
		assert.Equal(t, []string{"Implement hash table lookup", "Find complement in array"}, resp.Delta.MiniExercises, in)
		assert.Contains(t, resp.Reply.Content, "Challenge Question", in)
		assert.Nil(t, resp.Problem, in)
	}
}

func TestRespondProblemBeatsLaterRules(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	resp := d.Respond("two sum, brute force or a hash table?", nil)

	require.NotNil(t, resp.Problem)
	assert.Equal(t, "Two Sum", resp.Problem.Title)
	assert.Empty(t, resp.Delta.MiniExercises)
	assert.Equal(t, domain.KindText, resp.Reply.Kind)
}

func TestRespondBruteForceBeatsHash(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	resp := d.Respond("brute force before hash", nil)

	assert.Equal(t, domain.KindCode, resp.Reply.Kind)
	assert.True(t, resp.Delta.IsEmpty())
}

func TestRespondSolutionUnlock(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	current := &domain.CurrentProblem{Title: "Two Sum", Difficulty: domain.DifficultyEasy}

	resp := d.Respond("ok I give up, show me the solution", current)

	require.NotNil(t, resp.Delta.SolutionUnlocked)
	assert.True(t, *resp.Delta.SolutionUnlocked)
	assert.Equal(t, domain.KindStrategy, resp.Reply.Kind)
	assert.Contains(t, resp.Reply.Content, "**Two Sum**")
	assert.Contains(t, resp.Reply.Content, "Use hash table to store complements")
}

func TestRespondFallbackEchoesInput(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	current := &domain.CurrentProblem{Title: "Two Sum"}

	resp := d.Respond("I'm stuck", current)

	assert.True(t, strings.HasPrefix(resp.Reply.Content, `I see you mentioned: "I'm stuck"`))
	assert.Contains(t, resp.Reply.Content, "**Step 2:** What constraints do we have?")
	assert.True(t, resp.Delta.IsEmpty())
	assert.Nil(t, resp.Problem, "problem stays unchanged")
}

func TestRespondFallbackDoesNotExpandUserPlaceholders(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	resp := d.Respond("what is {problem} and {strategy}?", nil)

	assert.Contains(t, resp.Reply.Content, "what is {problem} and {strategy}?")
}

func TestRespondTotalOverOddInput(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	inputs := []string{
		"x",
		"日本語で説明してください",
		"🤖🔥💡",
		"!@#$%^&*()_+{}|:<>?",
		"@",
		"https://leetcode.com/problems/",
		strings.Repeat("very long input ", 10000),
		"\x00\x01\x02",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			resp := d.Respond(in, nil)
			assert.NotEmpty(t, resp.Reply.ID)
			assert.NotEmpty(t, resp.Reply.Content)
			assert.Equal(t, domain.RoleMentor, resp.Reply.Role)
		})
	}
}

func TestRespondDoesNotMutateCurrent(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	current := &domain.CurrentProblem{Title: "Two Sum", Tags: []string{"Array"}}

	d.Respond("show me the solution", current)

	assert.Equal(t, []string{"Array"}, current.Tags)
}

func TestRespondSkipsPanickingRule(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	bad := Rule{
		Name:  "explodes",
		Match: func(Input) bool { panic("bad rule") },
	}
	d.rules = append([]Rule{bad}, d.rules...)

	resp := d.Respond("two sum", nil)

	require.NotNil(t, resp.Problem)
	assert.Equal(t, "Two Sum", resp.Problem.Title)
}

func TestDispatchNeverErrors(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	resp, err := d.Dispatch(context.Background(), "hash", nil)

	require.NoError(t, err)
	assert.Len(t, resp.Delta.MiniExercises, 2)
}

func TestRulesOrder(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	names := d.Rules()

	require.NotEmpty(t, names)
	assert.Equal(t, "problem:Two Sum", names[0])
	assert.Equal(t, "fallback", names[len(names)-1])
	assert.Less(t, indexOf(names, "brute-force"), indexOf(names, "hash-lookup"))
	assert.Less(t, indexOf(names, "hash-lookup"), indexOf(names, "solution-unlock"))
	assert.Less(t, indexOf(names, "hash-lookup"), indexOf(names, "hint"))
	assert.Less(t, indexOf(names, "hash-lookup"), indexOf(names, "mini-exercise"))
}

func TestRespondHintsProgressThroughProblem(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	current := d.Respond("two sum", nil).Problem
	require.NotNil(t, current)

	first := d.Respond("Can I get a hint?", current)
	require.NotNil(t, first.Problem)
	assert.Equal(t, 1, first.Problem.HintsGiven)
	assert.Equal(t, 0, current.HintsGiven, "input problem untouched")
	assert.Contains(t, first.Reply.Content, "**Hint** for **Two Sum**:")
	assert.Contains(t, first.Reply.Content, "target minus that number")
	assert.True(t, first.Delta.IsEmpty())

	second := d.Respond("another HINT please", first.Problem)
	assert.Contains(t, second.Reply.Content, "hash map from value to index")
	assert.Equal(t, 2, second.Problem.HintsGiven)

	third := d.Respond("hint", second.Problem)
	fourth := d.Respond("hint", third.Problem)
	assert.Contains(t, fourth.Reply.Content, "never pairs with itself", "last hint repeats")
	assert.Equal(t, "Two Sum", fourth.Problem.Title)
}

func TestRespondHintWithoutProblem(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	resp := d.Respond("give me a hint", nil)

	assert.Nil(t, resp.Problem)
	assert.Contains(t, resp.Reply.Content, "**Hint** for this problem:")
	assert.Contains(t, resp.Reply.Content, "which problem you're working on")
}

func TestRespondMiniExercise(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)
	current := &domain.CurrentProblem{Title: "Merge Intervals", Difficulty: domain.DifficultyMedium}

	resp := d.Respond("Give me a mini exercise", current)

	assert.Equal(t, domain.KindDrill, resp.Reply.Kind)
	assert.Contains(t, resp.Reply.Content, "**Mini Exercise** for **Merge Intervals**")
	assert.Equal(t, []string{"Dry-run Merge Intervals by hand on a three-element input"}, resp.Delta.MiniExercises)
	assert.Nil(t, resp.Problem)

	resp = d.Respond("drill me", nil)
	assert.Equal(t, []string{"Dry-run this problem by hand on a three-element input"}, resp.Delta.MiniExercises)
}

func TestRespondHashBeatsHint(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	resp := d.Respond("hint: should I use a hash?", nil)

	assert.Len(t, resp.Delta.MiniExercises, 2)
	assert.Nil(t, resp.Problem)
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestBruteForceReplySegments(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	segs := d.Respond("brute force", nil).Reply.Segments()

	require.Len(t, segs, 3)
	assert.False(t, segs[0].Code)
	assert.Contains(t, segs[0].Text, "Brute Force = Nested Loops")
	assert.True(t, segs[1].Code)
	assert.True(t, strings.HasPrefix(segs[1].Text, "python\n"))
	assert.Contains(t, segs[1].Text, "for j in range(i+1, len(nums)):")
	assert.False(t, segs[2].Code)
	assert.Contains(t, segs[2].Text, "O(n²)")
}
