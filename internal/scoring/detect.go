package scoring

import (
	"regexp"
	"slices"
	"strings"
)

var (
	percentPattern  = regexp.MustCompile(`\p{Nd}+%`)
	currencyPattern = regexp.MustCompile(`\$\p{Nd}+`)
)

// DetectSections reports which canonical sections appear in raw (un-normalized) text.
// Results follow the declared section order, not the order headings appear in the text.
func DetectSections(tables Tables, raw string) []string {
	lower := strings.ToLower(raw)
	found := make([]string, 0, len(tables.Sections))
	for _, section := range tables.Sections {
		for _, kw := range section.Keywords {
			if strings.Contains(lower, kw) {
				found = append(found, section.Name)
				break
			}
		}
	}
	return found
}

// MissingSections returns the canonical sections absent from found, in declared order.
func MissingSections(tables Tables, found []string) []string {
	missing := make([]string, 0, len(tables.Sections))
	for _, section := range tables.Sections {
		if !slices.Contains(found, section.Name) {
			missing = append(missing, section.Name)
		}
	}
	return missing
}

// MatchSkills returns the vocabulary skills contained in normalized text, in vocabulary order.
// Containment is by substring, so "java" also hits inside "javascript".
func MatchSkills(tables Tables, normalized string) []string {
	matched := make([]string, 0)
	for _, skill := range tables.Skills {
		if strings.Contains(normalized, skill) {
			matched = append(matched, skill)
		}
	}
	return matched
}

// countVerbs counts how many distinct impact verbs occur in normalized text.
func countVerbs(tables Tables, normalized string) int {
	n := 0
	for _, verb := range tables.ImpactVerbs {
		if strings.Contains(normalized, verb) {
			n++
		}
	}
	return n
}

// hasMetrics reports whether raw text quantifies something with a percentage or a dollar amount.
func hasMetrics(raw string) bool {
	return percentPattern.MatchString(raw) || currencyPattern.MatchString(raw)
}
