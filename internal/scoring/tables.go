package scoring

// Section is one canonical resume heading and the lowercase keywords that reveal it.
type Section struct {
	Name     string
	Keywords []string
}

// Canonical section names.
const (
	SectionExperience = "Experience"
	SectionEducation  = "Education"
	SectionSkills     = "Skills"
	SectionProjects   = "Projects"
)

// Weights holds the match-mode weighting and penalty constants.
type Weights struct {
	Semantic  float64
	Skills    float64
	Structure float64

	// Penalties are applied after the weighted sum, keyed by the number of missing skills.
	TwoMissingPenalty   float64
	ThreeMissingPenalty float64

	Floor   float64
	Ceiling float64

	StrongMatch float64
}

// AuditRules holds the audit-mode pillar caps and thresholds.
type AuditRules struct {
	PillarMax       float64
	SkillPoints     float64
	MinSkills       int
	VerbPoints      float64
	VerbCap         float64
	MetricBonus     float64
	IdealWordsMin   int
	IdealWordsMax   int
	ThinWordsMin    int
	ThinPoints      float64
	OffLengthPoints float64
	Professional    float64
}

// Tables is the complete set of vocabularies and constants the composer reads.
// The zero value is not usable; start from DefaultTables.
type Tables struct {
	Skills      []string
	Sections    []Section
	ImpactVerbs []string
	Weights     Weights
	Audit       AuditRules
}

// DefaultTables returns the compiled-in vocabularies and weights.
// Each call returns fresh slices so callers may modify their copy.
func DefaultTables() Tables {
	return Tables{
		Skills: []string{
			"python", "java", "javascript", "c", "sql", "php", "flask", "html", "css",
			"machine learning", "random forest", "xgboost", "knn", "data preprocessing", "eda",
			"cybersecurity", "ethical hacking", "networking", "operating systems", "dbms",
			"encryption", "firewalls", "vpn", "git", "github", "mysql", "nlp",
		},
		Sections: []Section{
			{Name: SectionExperience, Keywords: []string{"experience", "work history", "internship"}},
			{Name: SectionEducation, Keywords: []string{"education", "academic", "degree"}},
			{Name: SectionSkills, Keywords: []string{"skills", "technical proficiency", "tools"}},
			{Name: SectionProjects, Keywords: []string{"projects", "portfolio"}},
		},
		ImpactVerbs: []string{"led", "managed", "developed", "optimized", "created", "increased", "reduced"},
		Weights: Weights{
			Semantic:            45,
			Skills:              35,
			Structure:           20,
			TwoMissingPenalty:   15,
			ThreeMissingPenalty: 25,
			Floor:               5,
			Ceiling:             98,
			StrongMatch:         70,
		},
		Audit: AuditRules{
			PillarMax:       25,
			SkillPoints:     2.5,
			MinSkills:       6,
			VerbPoints:      3,
			VerbCap:         15,
			MetricBonus:     10,
			IdealWordsMin:   400,
			IdealWordsMax:   800,
			ThinWordsMin:    200,
			ThinPoints:      15,
			OffLengthPoints: 10,
			Professional:    75,
		},
	}
}

// SectionNames lists the canonical section names in declared order.
func (t Tables) SectionNames() []string {
	names := make([]string, len(t.Sections))
	for i, s := range t.Sections {
		names[i] = s.Name
	}
	return names
}
