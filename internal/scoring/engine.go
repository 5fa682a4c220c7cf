// Package scoring turns resume text, and optionally a job description, into a score,
// a recommendation label and a list of suggestions.
//
// Two modes exist. Match mode weighs semantic overlap, skill intersection and structure
// against a job description. Audit mode rates a resume on its own using four independently
// capped pillars. Engine is safe for concurrent use; it keeps no state between calls.
package scoring

import (
	"fmt"
	"slices"
	"strings"
)

// Similarity scores two normalized texts in [0, 1].
type Similarity interface {
	Similarity(a, b string) (float64, error)
}

// ReadyChecker is implemented by similarity backends that can fail before any comparison is
// made, such as one whose artifacts are missing. Engine consults it before scoring in either mode.
type ReadyChecker interface {
	Ready() error
}

// SimilarityFunc adapts a plain function to the Similarity interface.
type SimilarityFunc func(a, b string) (float64, error)

func (f SimilarityFunc) Similarity(a, b string) (float64, error) { return f(a, b) }

// Engine composes the final score.
type Engine struct {
	tables Tables
	oracle Similarity
}

// Option customizes an Engine.
type Option func(*Engine)

// WithTables replaces the compiled-in vocabularies and weights.
func WithTables(t Tables) Option {
	return func(e *Engine) {
		e.tables = t
	}
}

// NewEngine creates an engine backed by the given similarity oracle.
func NewEngine(oracle Similarity, opts ...Option) *Engine {
	e := &Engine{
		tables: DefaultTables(),
		oracle: oracle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tables returns the tables the engine scores with.
func (e *Engine) Tables() Tables {
	return e.tables
}

// Score picks the mode from the job description: blank means audit, anything else means match.
// An oracle that is not ready fails the call in both modes.
func (e *Engine) Score(resume, jobDescription string) (Result, error) {
	if rc, ok := e.oracle.(ReadyChecker); ok {
		if err := rc.Ready(); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(jobDescription) == "" {
		return e.Audit(resume), nil
	}
	return e.Match(resume, jobDescription)
}

// Match scores a resume against a job description.
func (e *Engine) Match(resume, jobDescription string) (*MatchResult, error) {
	t := e.tables
	w := t.Weights

	cleanResume := Normalize(resume)
	cleanJD := Normalize(jobDescription)
	found := DetectSections(t, resume)

	overlap, err := e.oracle.Similarity(cleanResume, cleanJD)
	if err != nil {
		return nil, err
	}
	overlap = clamp(overlap, 0, 1)

	jdSkills := MatchSkills(t, cleanJD)
	resumeSkills := MatchSkills(t, cleanResume)

	missing := make([]string, 0)
	matched := 0
	for _, skill := range jdSkills {
		if slices.Contains(resumeSkills, skill) {
			matched++
		} else {
			missing = append(missing, skill)
		}
	}

	skillScore := 1.0
	if len(jdSkills) > 0 {
		skillScore = float64(matched) / float64(len(jdSkills))
	}
	structScore := float64(len(found)) / float64(len(t.Sections))

	final := overlap*w.Semantic + skillScore*w.Skills + structScore*w.Structure
	switch {
	case len(missing) >= 3:
		final -= w.ThreeMissingPenalty
	case len(missing) == 2:
		final -= w.TwoMissingPenalty
	}

	suggestions := make([]string, 0, 2)
	if len(missing) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Hard Skill Gap: Add %s.", strings.Join(firstN(missing, 3), ", ")))
	}
	if overlap < 0.3 {
		suggestions = append(suggestions, "Industry Language: Use more keywords from the JD in your summary.")
	}

	recommendation := PotentialFit
	if final >= w.StrongMatch {
		recommendation = StrongMatch
	}

	return &MatchResult{
		Summary: Summary{
			Score:           round1(clamp(final, w.Floor, w.Ceiling)),
			Recommendation:  recommendation,
			SectionsFound:   found,
			MissingSections: MissingSections(t, found),
			Suggestions:     suggestions,
		},
		MatchDetails: MatchDetails{
			SemanticOverlap: round1(overlap * 100),
			StructureScore:  round1(structScore * 100),
		},
		MissingSkills: missing,
	}, nil
}

// Audit rates a resume without a job description. It never fails.
func (e *Engine) Audit(resume string) *AuditResult {
	t := e.tables
	a := t.Audit

	cleanResume := Normalize(resume)
	found := DetectSections(t, resume)
	missingSections := MissingSections(t, found)
	suggestions := make([]string, 0, 4)

	structure := float64(len(found)) / float64(len(t.Sections)) * a.PillarMax
	if len(found) < len(t.Sections) {
		suggestions = append(suggestions, fmt.Sprintf("Structure: missing %s sections.", strings.Join(missingSections, ", ")))
	}

	skillCount := len(MatchSkills(t, cleanResume))
	skills := min(float64(skillCount)*a.SkillPoints, a.PillarMax)
	if skillCount < a.MinSkills {
		suggestions = append(suggestions, "Skills: Increase technical keyword density.")
	}

	experience := min(float64(countVerbs(t, cleanResume))*a.VerbPoints, a.VerbCap)
	if hasMetrics(resume) {
		experience += a.MetricBonus
	} else {
		suggestions = append(suggestions, "Experience: Use numbers (%, $) to quantify achievements.")
	}

	var readability float64
	words := WordCount(resume)
	switch {
	case words >= a.IdealWordsMin && words <= a.IdealWordsMax:
		readability = a.PillarMax
	case words >= a.ThinWordsMin && words < a.IdealWordsMin:
		readability = a.ThinPoints
		suggestions = append(suggestions, "Readability: Content is thin. Expand your details.")
	default:
		readability = a.OffLengthPoints
		suggestions = append(suggestions, "Readability: Resume length is sub-optimal.")
	}

	breakdown := Breakdown{
		Structure:   round1(structure),
		Skills:      round1(skills),
		Experience:  round1(experience),
		Readability: round1(readability),
	}
	total := round1(breakdown.Total())

	recommendation := NeedsPolish
	if total >= a.Professional {
		recommendation = Professional
	}

	return &AuditResult{
		Summary: Summary{
			Score:           total,
			Recommendation:  recommendation,
			SectionsFound:   found,
			MissingSections: missingSections,
			Suggestions:     suggestions,
		},
		Breakdown: breakdown,
	}
}

func firstN(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
