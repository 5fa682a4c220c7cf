package ai

import (
	"fmt"
	"strings"

	"resumescore/internal/scoring"
)

// DefaultSystemPrompt is used when ai.systemPrompt is not configured.
const DefaultSystemPrompt = `You are a concise resume coach. You answer follow-up questions about an automated resume
score. Your core principles are:

- Base every answer on the score report you are given
- NEVER invent experience, employers or credentials for the candidate
- Answer in at most five short sentences or bullet points
- Prefer concrete edits the candidate can make today`

const advicePromptTemplate = `The candidate's resume was scored automatically.

**Score Report:**
-----
%s
-----

**Question:**
%s`

// BuildAdvicePrompt renders the user prompt for a question about result.
func BuildAdvicePrompt(question string, result scoring.Result) string {
	return fmt.Sprintf(advicePromptTemplate, describeResult(result), strings.TrimSpace(question))
}

// describeResult flattens a result into the few lines the model needs.
func describeResult(result scoring.Result) string {
	base := result.Base()

	var b strings.Builder
	fmt.Fprintf(&b, "Mode: %s\n", result.Mode())
	fmt.Fprintf(&b, "Score: %.1f (%s)\n", base.Score, base.Recommendation)
	fmt.Fprintf(&b, "Sections found: %s\n", listOrNone(base.SectionsFound))
	fmt.Fprintf(&b, "Missing sections: %s\n", listOrNone(base.MissingSections))

	switch r := result.(type) {
	case *scoring.MatchResult:
		fmt.Fprintf(&b, "Semantic overlap with the job description: %.1f%%\n", r.MatchDetails.SemanticOverlap)
		fmt.Fprintf(&b, "Missing skills: %s\n", listOrNone(r.MissingSkills))
	case *scoring.AuditResult:
		fmt.Fprintf(&b, "Pillars (max 25 each): structure %.1f, skills %.1f, experience %.1f, readability %.1f\n",
			r.Breakdown.Structure, r.Breakdown.Skills, r.Breakdown.Experience, r.Breakdown.Readability)
	}

	for _, s := range base.Suggestions {
		fmt.Fprintf(&b, "Suggestion: %s\n", s)
	}
	return strings.TrimRight(b.String(), "\n")
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// resolvePrompt returns the configured prompt, or the default when none was set.
func resolvePrompt(fromConfig, fromDefault string) string {
	if strings.TrimSpace(fromConfig) != "" {
		return fromConfig
	}
	return fromDefault
}
