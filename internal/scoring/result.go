package scoring

import (
	"encoding/json"
	"fmt"
)

// Mode discriminates the two result variants.
type Mode string

const (
	ModeMatch Mode = "match"
	ModeAudit Mode = "audit"
)

// Recommendation labels.
const (
	StrongMatch  = "Strong Match"
	PotentialFit = "Potential Fit"
	Professional = "Professional"
	NeedsPolish  = "Needs Polish"
)

// Result is either a *MatchResult or an *AuditResult. Callers switch on the concrete type
// (or on Mode) instead of probing for optional fields.
type Result interface {
	Mode() Mode
	Base() *Summary
	isResult()
}

// Summary carries the fields both variants share.
type Summary struct {
	Score           float64  `json:"score"`
	Recommendation  string   `json:"recommendation"`
	SectionsFound   []string `json:"sectionsFound"`
	MissingSections []string `json:"missingSections"`
	Suggestions     []string `json:"suggestions"`
}

// MatchDetails explains a match-mode score. Both values are percentages.
type MatchDetails struct {
	SemanticOverlap float64 `json:"semanticOverlap"`
	StructureScore  float64 `json:"structureScore"`
}

// MatchResult is produced when a job description was supplied.
type MatchResult struct {
	Summary
	MatchDetails  MatchDetails `json:"matchDetails"`
	MissingSkills []string     `json:"missingSkills"`
}

// Breakdown holds the four audit pillars, each capped at 25.
type Breakdown struct {
	Structure   float64 `json:"structure"`
	Skills      float64 `json:"skills"`
	Experience  float64 `json:"experience"`
	Readability float64 `json:"readability"`
}

// Total sums the pillars.
func (b Breakdown) Total() float64 {
	return b.Structure + b.Skills + b.Experience + b.Readability
}

// AuditResult is produced when no job description was supplied.
type AuditResult struct {
	Summary
	Breakdown Breakdown `json:"breakdown"`
}

func (*MatchResult) Mode() Mode       { return ModeMatch }
func (r *MatchResult) Base() *Summary { return &r.Summary }
func (*MatchResult) isResult()        {}

func (*AuditResult) Mode() Mode       { return ModeAudit }
func (r *AuditResult) Base() *Summary { return &r.Summary }
func (*AuditResult) isResult()        {}

// MissingSkillsOf returns the skill gap of a match result and nil for an audit.
func MissingSkillsOf(r Result) []string {
	if m, ok := r.(*MatchResult); ok {
		return m.MissingSkills
	}
	return nil
}

// MarshalJSON adds the mode tag so stored reports can be decoded back into the right variant.
func (r *MatchResult) MarshalJSON() ([]byte, error) {
	type plain MatchResult
	return json.Marshal(struct {
		Mode Mode `json:"mode"`
		*plain
	}{ModeMatch, (*plain)(r)})
}

// MarshalJSON adds the mode tag so stored reports can be decoded back into the right variant.
func (r *AuditResult) MarshalJSON() ([]byte, error) {
	type plain AuditResult
	return json.Marshal(struct {
		Mode Mode `json:"mode"`
		*plain
	}{ModeAudit, (*plain)(r)})
}

// DecodeResult parses a serialized report into its variant.
func DecodeResult(data []byte) (Result, error) {
	var head struct {
		Mode Mode `json:"mode"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read report mode: %w", err)
	}

	switch head.Mode {
	case ModeMatch:
		var r MatchResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode match report: %w", err)
		}
		return &r, nil
	case ModeAudit:
		var r AuditResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode audit report: %w", err)
		}
		return &r, nil
	default:
		return nil, fmt.Errorf("unknown report mode %q", head.Mode)
	}
}
