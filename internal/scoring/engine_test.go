package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescore/internal/model"
)

// exactOracle returns 1 for identical texts and a fixed value otherwise.
func exactOracle(otherwise float64) SimilarityFunc {
	return func(a, b string) (float64, error) {
		if a == b {
			return 1, nil
		}
		return otherwise, nil
	}
}

type brokenOracle struct{ err error }

func (o brokenOracle) Ready() error                               { return o.err }
func (o brokenOracle) Similarity(string, string) (float64, error) { return 0, o.err }

const strongResume = `Experience
Led the platform team, managed releases, developed services, optimized queries,
created dashboards, increased throughput and reduced costs by 30% saving $12000.
Education
BSc Computer Science
Skills
python java javascript sql php flask html css git mysql
Projects
portfolio site`

func TestDetectSections(t *testing.T) {
	tables := DefaultTables()

	found := DetectSections(tables, "PROJECTS\nMy Portfolio\nWORK HISTORY\nDegree in CS")
	assert.Equal(t, []string{SectionExperience, SectionEducation, SectionProjects}, found)
	assert.Equal(t, []string{SectionSkills}, MissingSections(tables, found))

	assert.Empty(t, DetectSections(tables, ""))
	assert.Equal(t, tables.SectionNames(), MissingSections(tables, nil))
}

func TestMatchSkills_VocabularyOrder(t *testing.T) {
	tables := DefaultTables()

	got := MatchSkills(tables, "mysql and javascript then git")
	assert.Equal(t, []string{"java", "javascript", "c", "sql", "git", "mysql"}, got)
	assert.Empty(t, MatchSkills(tables, ""))
}

func TestEngine_Audit_EmptyScenario(t *testing.T) {
	engine := NewEngine(exactOracle(0))

	result, err := engine.Score("hello world", "")
	require.NoError(t, err)

	audit, ok := result.(*AuditResult)
	require.True(t, ok, "expected audit result, got %T", result)

	assert.Equal(t, ModeAudit, audit.Mode())
	assert.Equal(t, 0.0, audit.Breakdown.Structure)
	assert.Equal(t, 0.0, audit.Breakdown.Skills)
	assert.Equal(t, 0.0, audit.Breakdown.Experience)
	assert.Equal(t, 10.0, audit.Breakdown.Readability)
	assert.Equal(t, 10.0, audit.Score)
	assert.Equal(t, NeedsPolish, audit.Recommendation)
	assert.Empty(t, audit.SectionsFound)
	assert.Equal(t, []string{"Experience", "Education", "Skills", "Projects"}, audit.MissingSections)
	assert.Equal(t, []string{
		"Structure: missing Experience, Education, Skills, Projects sections.",
		"Skills: Increase technical keyword density.",
		"Experience: Use numbers (%, $) to quantify achievements.",
		"Readability: Resume length is sub-optimal.",
	}, audit.Suggestions)
}

func TestEngine_Audit_ExperienceMetrics(t *testing.T) {
	engine := NewEngine(exactOracle(0))

	audit := engine.Audit("Increased revenue by 20%\nLed a team of 5")

	assert.Equal(t, 16.0, audit.Breakdown.Experience)
	for _, s := range audit.Suggestions {
		assert.NotContains(t, s, "quantify")
	}
}

func TestEngine_Audit_CurrencyCountsAsMetric(t *testing.T) {
	engine := NewEngine(exactOracle(0))

	audit := engine.Audit("Reduced spend by $400")
	assert.Equal(t, 13.0, audit.Breakdown.Experience)
}

func TestEngine_Audit_Readability(t *testing.T) {
	engine := NewEngine(exactOracle(0))

	tests := []struct {
		words      int
		want       float64
		suggestion string
	}{
		{words: 0, want: 10, suggestion: "Readability: Resume length is sub-optimal."},
		{words: 199, want: 10, suggestion: "Readability: Resume length is sub-optimal."},
		{words: 200, want: 15, suggestion: "Readability: Content is thin. Expand your details."},
		{words: 399, want: 15, suggestion: "Readability: Content is thin. Expand your details."},
		{words: 400, want: 25},
		{words: 800, want: 25},
		{words: 801, want: 10, suggestion: "Readability: Resume length is sub-optimal."},
	}

	for _, tt := range tests {
		audit := engine.Audit(strings.Repeat("word ", tt.words))
		assert.Equal(t, tt.want, audit.Breakdown.Readability, "words=%d", tt.words)
		if tt.suggestion != "" {
			assert.Contains(t, audit.Suggestions, tt.suggestion, "words=%d", tt.words)
		} else {
			for _, s := range audit.Suggestions {
				assert.NotContains(t, s, "Readability", "words=%d", tt.words)
			}
		}
	}
}

func TestEngine_Audit_Maximal(t *testing.T) {
	engine := NewEngine(exactOracle(0))
	resume := strongResume + strings.Repeat(" filler", 450-WordCount(strongResume))

	audit := engine.Audit(resume)

	assert.Equal(t, Breakdown{Structure: 25, Skills: 25, Experience: 25, Readability: 25}, audit.Breakdown)
	assert.Equal(t, 100.0, audit.Score)
	assert.Equal(t, Professional, audit.Recommendation)
	assert.Empty(t, audit.Suggestions)
	assert.Empty(t, audit.MissingSections)
}

func TestEngine_Audit_ScoreIsSumOfPillars(t *testing.T) {
	engine := NewEngine(exactOracle(0))
	resumes := []string{
		"",
		"Experience only",
		"Experience Education Projects python",
		strongResume,
		strings.Repeat("Skills java sql ", 150),
	}

	for _, r := range resumes {
		audit := engine.Audit(r)
		assert.InDelta(t, audit.Breakdown.Total(), audit.Score, 1e-9)
		assert.GreaterOrEqual(t, audit.Score, 0.0)
		assert.LessOrEqual(t, audit.Score, 100.0)
	}
}

func TestEngine_Audit_PartialStructure(t *testing.T) {
	engine := NewEngine(exactOracle(0))

	audit := engine.Audit("Experience and Education")
	assert.Equal(t, 12.5, audit.Breakdown.Structure)
	assert.Equal(t, "Structure: missing Skills, Projects sections.", audit.Suggestions[0])
}

func TestEngine_Match_IdenticalText(t *testing.T) {
	engine := NewEngine(exactOracle(0))

	result, err := engine.Score(strongResume, strongResume)
	require.NoError(t, err)

	match, ok := result.(*MatchResult)
	require.True(t, ok, "expected match result, got %T", result)

	assert.Equal(t, ModeMatch, match.Mode())
	assert.Equal(t, 98.0, match.Score)
	assert.Equal(t, StrongMatch, match.Recommendation)
	assert.Equal(t, MatchDetails{SemanticOverlap: 100, StructureScore: 100}, match.MatchDetails)
	assert.Empty(t, match.MissingSkills)
	assert.Empty(t, match.Suggestions)
}

func TestEngine_Match_NoSkillJobDescription(t *testing.T) {
	engine := NewEngine(exactOracle(0.2))

	match, err := engine.Match("hello world", "We want a great teammate who loves shipping")
	require.NoError(t, err)

	// 0.2*45 + 1.0*35 + 0*20
	assert.InDelta(t, 44.0, match.Score, 1e-9)
	assert.Empty(t, match.MissingSkills)
	assert.Equal(t, PotentialFit, match.Recommendation)
	assert.Equal(t, []string{"Industry Language: Use more keywords from the JD in your summary."}, match.Suggestions)
}

func TestEngine_Match_Penalties(t *testing.T) {
	engine := NewEngine(exactOracle(0.5))

	tests := []struct {
		name        string
		jd          string
		wantScore   float64
		wantMissing []string
	}{
		{name: "one missing", jd: "python java", wantScore: 40, wantMissing: []string{"java"}},
		{name: "two missing", jd: "python java sql", wantScore: 19.2, wantMissing: []string{"java", "sql"}},
		{name: "three missing", jd: "python java sql php", wantScore: 6.2, wantMissing: []string{"java", "sql", "php"}},
		{name: "floor", jd: "python java sql php html css", wantScore: 5, wantMissing: []string{"java", "c", "sql", "php", "html", "css"}},
	}

	var previous float64 = 100
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := engine.Match("python", tt.jd)
			require.NoError(t, err)

			assert.InDelta(t, tt.wantScore, match.Score, 1e-9)
			assert.Equal(t, tt.wantMissing, match.MissingSkills)
			assert.LessOrEqual(t, match.Score, previous)
			previous = match.Score
		})
	}
}

func TestEngine_Match_SkillGapSuggestionNamesFirstThree(t *testing.T) {
	engine := NewEngine(exactOracle(0.1))

	match, err := engine.Match("", "python java sql php")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Hard Skill Gap: Add python, java, sql.",
		"Industry Language: Use more keywords from the JD in your summary.",
	}, match.Suggestions)
	assert.Equal(t, 5.0, match.Score)
}

func TestEngine_Match_ScoreAlwaysBounded(t *testing.T) {
	pairs := [][2]string{
		{"", "x"},
		{"", "python java sql php html css"},
		{strongResume, "anything at all"},
		{strongResume, strongResume},
	}

	for _, sim := range []float64{0, 0.5, 1, 1.7, -3, math.NaN(), math.Inf(1)} {
		engine := NewEngine(SimilarityFunc(func(string, string) (float64, error) { return sim, nil }))
		for _, p := range pairs {
			match, err := engine.Match(p[0], p[1])
			require.NoError(t, err)
			assert.GreaterOrEqual(t, match.Score, 5.0)
			assert.LessOrEqual(t, match.Score, 98.0)
			assert.GreaterOrEqual(t, match.MatchDetails.SemanticOverlap, 0.0)
			assert.LessOrEqual(t, match.MatchDetails.SemanticOverlap, 100.0)
		}
	}
}

func TestEngine_Match_IdenticalTextWithFittedVectorizer(t *testing.T) {
	vectorizer := model.FitVectorizer([]string{strongResume, "Marketing coordinator, social media campaigns"}, 0)
	engine := NewEngine(model.NewStoreFromArtifacts(&model.Artifacts{Vectorizer: vectorizer}))

	result, err := engine.Score(strongResume, strongResume)
	require.NoError(t, err)
	match, ok := result.(*MatchResult)
	require.True(t, ok)

	assert.Equal(t, 100.0, match.MatchDetails.SemanticOverlap)
	assert.Empty(t, match.MissingSkills)
	assert.Equal(t, 98.0, match.Score)
	assert.Equal(t, StrongMatch, match.Recommendation)
}

func TestEngine_PartitionsAreComplementary(t *testing.T) {
	engine := NewEngine(exactOracle(0.4))
	tables := engine.Tables()

	match, err := engine.Match("Skills: python, git. Projects: portfolio", "python java git nlp")
	require.NoError(t, err)

	jdSkills := MatchSkills(tables, Normalize("python java git nlp"))
	resumeSkills := MatchSkills(tables, Normalize("Skills: python, git. Projects: portfolio"))
	for _, s := range jdSkills {
		inResume := false
		for _, r := range resumeSkills {
			if r == s {
				inResume = true
			}
		}
		assert.NotEqual(t, inResume, contains(match.MissingSkills, s), "skill %q", s)
	}

	all := append(append([]string{}, match.SectionsFound...), match.MissingSections...)
	assert.ElementsMatch(t, tables.SectionNames(), all)
	for _, s := range match.SectionsFound {
		assert.NotContains(t, match.MissingSections, s)
	}
}

func TestEngine_WhitespaceJobDescriptionMeansAudit(t *testing.T) {
	engine := NewEngine(exactOracle(0))

	result, err := engine.Score("Experience", " \n\t ")
	require.NoError(t, err)
	assert.Equal(t, ModeAudit, result.Mode())
	assert.Nil(t, MissingSkillsOf(result))
}

func TestEngine_ArtifactFailureIsFatal(t *testing.T) {
	failure := errors.New("model files missing or corrupted")
	engine := NewEngine(brokenOracle{err: failure})

	for _, jd := range []string{"", "python developer"} {
		result, err := engine.Score("Experience python", jd)
		assert.ErrorIs(t, err, failure)
		assert.Nil(t, result)
	}
}

func TestEngine_SimilarityErrorPropagates(t *testing.T) {
	failure := errors.New("transform failed")
	engine := NewEngine(SimilarityFunc(func(string, string) (float64, error) { return 0, failure }))

	_, err := engine.Match("resume", "jd")
	assert.ErrorIs(t, err, failure)
}

func TestEngine_WithTables(t *testing.T) {
	tables := DefaultTables()
	tables.Skills = []string{"golang", "kubernetes"}
	engine := NewEngine(exactOracle(0), WithTables(tables))

	match, err := engine.Match("golang", "golang kubernetes")
	require.NoError(t, err)
	assert.Equal(t, []string{"kubernetes"}, match.MissingSkills)

	// Defaults are unaffected by the copy.
	assert.Contains(t, DefaultTables().Skills, "python")
}

func TestDecodeResult(t *testing.T) {
	engine := NewEngine(exactOracle(0.5))
	original, err := engine.Score("Experience python", "python java sql")
	require.NoError(t, err)

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mode":"match"`)
	assert.Contains(t, string(data), `"missingSkills":["java","sql"]`)

	decoded, err := DecodeResult(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	audit := engine.Audit("Education")
	data, err = json.Marshal(audit)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "matchDetails")
	decoded, err = DecodeResult(data)
	require.NoError(t, err)
	assert.Equal(t, ModeAudit, decoded.Mode())

	_, err = DecodeResult([]byte(`{"mode":"other"}`))
	assert.Error(t, err)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func BenchmarkEngine_Audit(b *testing.B) {
	engine := NewEngine(exactOracle(0))
	for b.Loop() {
		engine.Audit(strongResume)
	}
}
