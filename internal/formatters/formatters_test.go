package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"resumescore/internal/scoring"
	"resumescore/internal/types"
)

func sampleMatch() *scoring.MatchResult {
	return &scoring.MatchResult{
		Summary: scoring.Summary{
			Score:           68.4,
			Recommendation:  scoring.StrongMatch,
			SectionsFound:   []string{"Experience", "Skills"},
			MissingSections: []string{"Projects"},
			Suggestions:     []string{"Add missing section: Projects"},
		},
		MatchDetails:  scoring.MatchDetails{SemanticOverlap: 40.2, StructureScore: 50},
		MissingSkills: []string{"docker", "kubernetes"},
	}
}

func sampleAudit() *scoring.AuditResult {
	return &scoring.AuditResult{
		Summary: scoring.Summary{
			Score:          52,
			Recommendation: scoring.NeedsPolish,
			Suggestions:    []string{"Quantify your impact."},
		},
		Breakdown: scoring.Breakdown{Structure: 10, Skills: 12, Experience: 15, Readability: 15},
	}
}

func TestFormatterRegistry(t *testing.T) {
	registry := NewFormatterRegistry()

	tests := []struct {
		name   string
		data   any
		format string
		want   []string
	}{
		{"match text", sampleMatch(), "text", []string{"=== MATCH SCORE ===", "Score: 68.4/100", "Semantic overlap: 40.2%", "- docker", "1. Add missing section: Projects"}},
		{"match markdown", sampleMatch(), "markdown", []string{"# Match Score", "| Semantic overlap | 40.2% |", "- `kubernetes`", "- **Missing:** Projects"}},
		{"audit text", sampleAudit(), "text", []string{"=== RESUME AUDIT ===", "Structure:   10.0", "Sections found:\n- None"}},
		{"audit markdown", sampleAudit(), "markdown", []string{"# Resume Audit", "| Readability | 15.0 |"}},
		{"batch text", []types.BatchItem{{Rank: 1, File: "a.pdf", Result: sampleMatch()}, {File: "b.pdf", Error: "unsupported"}}, "text", []string{" 1. a.pdf", "missing: docker, kubernetes", "error: unsupported"}},
		{"batch markdown", []types.BatchItem{{Rank: 1, File: "a.pdf", Result: sampleAudit()}}, "markdown", []string{"| 1 | a.pdf | 52.0 | Needs Polish |  |"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := registry.Format(tt.data, tt.format)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestJSONFormatterKeepsMode(t *testing.T) {
	got, err := NewFormatterRegistry().Format(sampleMatch(), "json")
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := scoring.DecodeResult([]byte(got))
	if err != nil {
		t.Fatalf("DecodeResult() error = %v", err)
	}
	if decoded.Mode() != scoring.ModeMatch {
		t.Errorf("mode = %s, want match", decoded.Mode())
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(got), &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["missingSkills"]; !ok {
		t.Error("missingSkills missing from JSON output")
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := NewFormatterRegistry().Format(sampleMatch(), "yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
	// text has no generic fallback
	if _, err := NewFormatterRegistry().Format(map[string]int{"a": 1}, "text"); err == nil {
		t.Error("expected error for unregistered type")
	}
}
