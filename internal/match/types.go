package match

import "strings"

// DefaultScore is used whenever no score can be derived: a remote response
// without a usable match_score, a parse failure, or a job description that
// names none of the tracked keywords.
const DefaultScore = 50

const UnknownSkill = "Unknown"

type MatchLevel string

const (
	LevelStrong  MatchLevel = "strong"
	LevelGood    MatchLevel = "good"
	LevelPartial MatchLevel = "partial"
	LevelMissing MatchLevel = "missing"
)

type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// SkillAssessment rates one skill from the job description against the resume.
type SkillAssessment struct {
	Skill      string     `json:"skill"`
	MatchLevel MatchLevel `json:"match_level"`
	Reason     string     `json:"reason"`
	Importance Importance `json:"importance"`
}

// Assessment is the result of scoring a resume against a job description.
// It is built fresh for every request and not modified afterwards.
type Assessment struct {
	Score          int               `json:"match_score"`
	Strengths      string            `json:"strengths"`
	Gaps           string            `json:"gaps"`
	SkillBreakdown []SkillAssessment `json:"skill_breakdown"`
}

var matchLevelAliases = map[string]MatchLevel{
	"strong":    LevelStrong,
	"excellent": LevelStrong,
	"exact":     LevelStrong,
	"expert":    LevelStrong,
	"good":      LevelGood,
	"solid":     LevelGood,
	"partial":   LevelPartial,
	"moderate":  LevelPartial,
	"some":      LevelPartial,
	"weak":      LevelPartial,
	"missing":   LevelMissing,
	"none":      LevelMissing,
	"absent":    LevelMissing,
	"no":        LevelMissing,
}

var importanceAliases = map[string]Importance{
	"high":         ImportanceHigh,
	"critical":     ImportanceHigh,
	"required":     ImportanceHigh,
	"must":         ImportanceHigh,
	"must have":    ImportanceHigh,
	"medium":       ImportanceMedium,
	"moderate":     ImportanceMedium,
	"preferred":    ImportanceMedium,
	"low":          ImportanceLow,
	"optional":     ImportanceLow,
	"bonus":        ImportanceLow,
	"nice to have": ImportanceLow,
}

// ParseMatchLevel maps free text onto the match level vocabulary.
// Anything unrecognised is treated as missing.
func ParseMatchLevel(s string) MatchLevel {
	key := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", " ")))
	if lvl, ok := matchLevelAliases[key]; ok {
		return lvl
	}
	return LevelMissing
}

// ParseImportance maps free text onto the importance vocabulary.
// Anything unrecognised is treated as medium.
func ParseImportance(s string) Importance {
	key := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", " ")))
	if imp, ok := importanceAliases[key]; ok {
		return imp
	}
	return ImportanceMedium
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Normalize returns a copy with the score clamped, enum fields mapped onto
// their vocabularies and empty skill names replaced. Normalizing an already
// normalized assessment returns an equal value.
func (a Assessment) Normalize() Assessment {
	out := Assessment{
		Score:          clampScore(a.Score),
		Strengths:      a.Strengths,
		Gaps:           a.Gaps,
		SkillBreakdown: make([]SkillAssessment, 0, len(a.SkillBreakdown)),
	}
	for _, s := range a.SkillBreakdown {
		out.SkillBreakdown = append(out.SkillBreakdown, s.normalize())
	}
	return out
}

func (s SkillAssessment) normalize() SkillAssessment {
	skill := strings.TrimSpace(s.Skill)
	if skill == "" {
		skill = UnknownSkill
	}
	return SkillAssessment{
		Skill:      skill,
		MatchLevel: ParseMatchLevel(string(s.MatchLevel)),
		Reason:     strings.TrimSpace(s.Reason),
		Importance: ParseImportance(string(s.Importance)),
	}
}
