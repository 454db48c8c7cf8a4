package match

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	parseFailedStrengths = "Parsing failed"
	parseFailedGaps      = "Check output format"
)

// rawResponse is the model output after JSON decoding but before any value
// is trusted. Text fields are coerced to strings while decoding.
type rawResponse struct {
	MatchScore     any    `mapstructure:"match_score"`
	Strengths      string `mapstructure:"strengths"`
	Gaps           string `mapstructure:"gaps"`
	SkillBreakdown any    `mapstructure:"skill_breakdown"`
}

type rawSkill struct {
	Skill      string `mapstructure:"skill"`
	MatchLevel string `mapstructure:"match_level"`
	Reason     string `mapstructure:"reason"`
	Importance string `mapstructure:"importance"`
}

func parsingFailed() Assessment {
	return Assessment{
		Score:          DefaultScore,
		Strengths:      parseFailedStrengths,
		Gaps:           parseFailedGaps,
		SkillBreakdown: []SkillAssessment{},
	}
}

// ExtractJSON returns the text between the first '{' and the last '}'.
// Models often wrap the object in prose or a code fence.
func ExtractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// parseResponse turns raw model text into a normalized assessment. The
// boolean is false when no JSON object could be recovered, in which case the
// parsing-failed sentinel is returned.
func parseResponse(raw string) (Assessment, bool) {
	body, ok := ExtractJSON(raw)
	if !ok {
		return parsingFailed(), false
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil || doc == nil {
		return parsingFailed(), false
	}

	var resp rawResponse
	if err := decodeLoose(doc, &resp); err != nil {
		return parsingFailed(), false
	}

	return Assessment{
		Score:          coerceScore(resp.MatchScore),
		Strengths:      resp.Strengths,
		Gaps:           resp.Gaps,
		SkillBreakdown: coerceBreakdown(resp.SkillBreakdown),
	}.Normalize(), true
}

func coerceBreakdown(v any) []SkillAssessment {
	items, ok := v.([]any)
	if !ok {
		return []SkillAssessment{}
	}

	out := make([]SkillAssessment, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var rs rawSkill
		if err := decodeLoose(entry, &rs); err != nil {
			continue
		}
		out = append(out, SkillAssessment{
			Skill:      rs.Skill,
			MatchLevel: MatchLevel(rs.MatchLevel),
			Reason:     rs.Reason,
			Importance: Importance(rs.Importance),
		})
	}
	return out
}

func decodeLoose(input map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(stringifyHook),
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// stringifyHook lets any JSON value land in a string field.
func stringifyHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() == reflect.String {
		return coerceText(data), nil
	}
	return data, nil
}

func coerceScore(v any) int {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(val), "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return DefaultScore
		}
		f = parsed
	default:
		return DefaultScore
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultScore
	}
	return clampScore(int(math.Max(-1, math.Min(101, math.Round(f)))))
}

func coerceText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
