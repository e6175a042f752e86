package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/health-assessment/internal/types"
)

// BaseScores computes the per-pillar base scores. Each pillar is the sum of
// its question scores divided by the total number of questions in the
// assessment, not the pillar's own count, so sparse pillars stay lower.
func BaseScores(def *types.AssessmentDefinition, answers map[string]any) types.PillarScores {
	scores := emptyScores()
	if def == nil || len(def.Questions) == 0 {
		return scores
	}

	for i := range def.Questions {
		q := &def.Questions[i]
		answer, ok := answers[q.Key]
		if !ok {
			continue
		}
		if !q.Pillar.Valid() {
			continue
		}
		scores[q.Pillar] += QuestionScore(q, answer)
	}

	total := float64(len(def.Questions))
	for _, pillar := range types.Pillars() {
		scores[pillar] = scores[pillar] / total
	}
	return finish(scores, round1)
}

// QuestionScore scores a single answer. Unknown options, unparsable values and
// unsupported kinds score 0.
func QuestionScore(q *types.Question, answer any) float64 {
	switch q.Kind {
	case types.KindSingleChoice, types.KindMultiChoice:
		return choiceScore(q, answer)
	case types.KindRange:
		value, ok := Numeric(answer)
		if !ok || q.Range == nil {
			return 0
		}
		return rangeScore(q.MaxScore, *q.Range, value)
	default:
		return 0
	}
}

func choiceScore(q *types.Question, answer any) float64 {
	total := 0.0
	for _, value := range choiceValues(answer) {
		total += q.Options[value]
	}
	return total
}

// choiceValues flattens a choice answer into its selected option values.
func choiceValues(answer any) []string {
	switch v := answer.(type) {
	case string:
		return []string{strings.TrimSpace(v)}
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			out = append(out, strings.TrimSpace(s))
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}

// rangeScore awards maxScore inside the optimal band and decays linearly with
// the distance to the nearest optimal bound, reaching 0 at the farther domain edge.
func rangeScore(maxScore float64, spec types.RangeSpec, value float64) float64 {
	if value >= spec.OptimalMin && value <= spec.OptimalMax {
		return maxScore
	}

	var distance float64
	if value < spec.OptimalMin {
		distance = spec.OptimalMin - value
	} else {
		distance = value - spec.OptimalMax
	}

	maxDistance := math.Max(spec.OptimalMin-spec.Min, spec.Max-spec.OptimalMax)
	if maxDistance <= 0 {
		return 0
	}

	score := maxScore * (1 - distance/maxDistance)
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// Numeric converts a JSON number, Go numeric or numeric string to float64.
func Numeric(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
