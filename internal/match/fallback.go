package match

import (
	"strings"
)

const (
	noStrengthsPlaceholder = "Some basic alignment"
	noGapsPlaceholder      = "No major gaps"
)

// keyword is one tracked skill term. Category is informational only.
type keyword struct {
	Term     string
	Category string
	// Foundational terms count as a strong match when present.
	Foundational bool
	// Core terms carry high importance.
	Core bool
}

// catalogue order fixes the order of strengths, gaps and breakdown entries.
// Terms are matched as case-insensitive substrings; keep them long enough
// not to hit inside unrelated words.
var catalogue = []keyword{
	{Term: "python", Category: "language", Foundational: true, Core: true},
	{Term: "sql", Category: "language", Foundational: true, Core: true},
	{Term: "etl", Category: "data", Foundational: true},
	{Term: "dbt", Category: "tooling"},
	{Term: "airflow", Category: "orchestration"},
	{Term: "snowflake", Category: "warehouse"},
	{Term: "bigquery", Category: "warehouse"},
	{Term: "data engineer", Category: "role"},
	{Term: "streamlit", Category: "visualization"},
	{Term: "dashboard", Category: "visualization"},
	{Term: "tableau", Category: "visualization"},
	{Term: "pipeline", Category: "data"},
	{Term: "pandas", Category: "library"},
	{Term: "spark", Category: "processing"},
	{Term: "kafka", Category: "streaming"},
	{Term: "docker", Category: "infrastructure"},
	{Term: "kubernetes", Category: "infrastructure"},
	{Term: "terraform", Category: "infrastructure"},
}

func (k keyword) presentLevel() MatchLevel {
	if k.Foundational {
		return LevelStrong
	}
	return LevelGood
}

func (k keyword) importance() Importance {
	if k.Core {
		return ImportanceHigh
	}
	return ImportanceMedium
}

// fallbackAssessment scores by keyword overlap. It is pure and deterministic.
func fallbackAssessment(resumeText, jobDescription string) Assessment {
	resume := strings.ToLower(resumeText)
	job := strings.ToLower(jobDescription)

	var (
		strengths []string
		gaps      []string
		breakdown = []SkillAssessment{}
	)

	for _, kw := range catalogue {
		if !strings.Contains(job, kw.Term) {
			continue
		}
		if strings.Contains(resume, kw.Term) {
			strengths = append(strengths, kw.Term)
			breakdown = append(breakdown, SkillAssessment{
				Skill:      kw.Term,
				MatchLevel: kw.presentLevel(),
				Reason:     "Mentioned in both the resume and the job description",
				Importance: kw.importance(),
			})
			continue
		}
		gaps = append(gaps, kw.Term)
		breakdown = append(breakdown, SkillAssessment{
			Skill:      kw.Term,
			MatchLevel: LevelMissing,
			Reason:     "Required by the job description but not found in the resume",
			Importance: kw.importance(),
		})
	}

	total := len(strengths) + len(gaps)
	score := DefaultScore
	if total > 0 {
		score = len(strengths) * 100 / total
	}

	return Assessment{
		Score:          score,
		Strengths:      joinOr(strengths, noStrengthsPlaceholder),
		Gaps:           joinOr(gaps, noGapsPlaceholder),
		SkillBreakdown: breakdown,
	}
}

func joinOr(items []string, placeholder string) string {
	if len(items) == 0 {
		return placeholder
	}
	return strings.Join(items, ", ")
}
