// Package panel projects session metadata into the side-panel sections.
package panel

import (
	"slices"

	"github.com/ashureev/crackd/internal/domain"
)

// Section identifiers, in display order.
const (
	SectionStrategy = "strategy"
	SectionPatterns = "patterns"
	SectionTags     = "tags"
	SectionRelated  = "related"
)

// Placeholders shown while a section has nothing to display.
const (
	StrategyPlaceholder = "Start solving to see your strategy develop..."
	PatternsPlaceholder = "Patterns will appear as you solve..."
	TagsPlaceholder     = "Tags will appear once we recognize your problem..."
	RelatedPlaceholder  = "Related problems will show up here..."
)

// TextView is a single-value section.
type TextView struct {
	Title       string `json:"title"`
	Text        string `json:"text,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Empty reports whether the placeholder should be rendered.
func (v TextView) Empty() bool { return v.Text == "" }

// ListView is a multi-value section.
type ListView struct {
	Title       string   `json:"title"`
	Items       []string `json:"items"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// Empty reports whether the placeholder should be rendered.
func (v ListView) Empty() bool { return len(v.Items) == 0 }

// Views holds the four panel sections.
type Views struct {
	Strategy TextView `json:"strategy"`
	Patterns ListView `json:"patterns"`
	Tags     ListView `json:"tags"`
	Related  ListView `json:"related"`
}

// Project renders metadata into panel views. It does not retain or modify m.
func Project(m domain.SessionMetadata) Views {
	return Views{
		Strategy: textView("⚡ Current Strategy", m.Strategy, StrategyPlaceholder),
		Patterns: listView("🧩 Patterns", m.Patterns, PatternsPlaceholder),
		Tags:     listView("🧠 Tags", m.Tags, TagsPlaceholder),
		Related:  listView("📚 Related Problems", m.RelatedProblems, RelatedPlaceholder),
	}
}

// Section returns the named section and whether the name is known.
func (v Views) Section(name string) (any, bool) {
	switch name {
	case SectionStrategy:
		return v.Strategy, true
	case SectionPatterns:
		return v.Patterns, true
	case SectionTags:
		return v.Tags, true
	case SectionRelated:
		return v.Related, true
	default:
		return nil, false
	}
}

func textView(title, text, placeholder string) TextView {
	v := TextView{Title: title, Text: text}
	if text == "" {
		v.Placeholder = placeholder
	}
	return v
}

func listView(title string, items []string, placeholder string) ListView {
	v := ListView{Title: title, Items: slices.Clone(items)}
	if v.Items == nil {
		v.Items = []string{}
	}
	if len(items) == 0 {
		v.Placeholder = placeholder
	}
	return v
}
