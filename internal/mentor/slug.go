package mentor

import (
	"regexp"
	"strings"
)

var (
	problemURLPattern = regexp.MustCompile(`@?https?://(?:www\.)?leetcode\.com/problems/([^/\s?#]+)/?`)
	atSlugPattern     = regexp.MustCompile(`@([a-z0-9-]+)`)
	bareSlugPattern   = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// extractSlug pulls a problem slug out of a LeetCode URL, an @slug mention, or
// input that is nothing but a slug. It returns "" when none is present.
func extractSlug(input string) string {
	if m := problemURLPattern.FindStringSubmatch(input); m != nil {
		return strings.ToLower(m[1])
	}
	lower := strings.ToLower(input)
	if m := atSlugPattern.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	cleaned := strings.TrimSpace(lower)
	if bareSlugPattern.MatchString(cleaned) {
		return cleaned
	}
	return ""
}
