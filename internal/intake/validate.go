package intake

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/health-assessment/internal/scoring"
	"github.com/jonathan/health-assessment/internal/types"
)

// validateStage checks a payload against the fields a stage declares and
// returns the normalized answers to merge. Field errors are sorted by key.
// Empty values for non-required fields are dropped rather than merged.
func validateStage(v *validator.Validate, def *types.AssessmentDefinition, stage types.Stage, payload map[string]any) (map[string]any, []FieldError) {
	declared := make(map[string]bool, len(stage.Questions))
	for _, key := range stage.Questions {
		declared[key] = true
	}

	var errs []FieldError
	for key := range payload {
		if !declared[key] {
			errs = append(errs, FieldError{Field: key, Message: "unknown field for stage " + stage.Name})
		}
	}

	normalized := make(map[string]any, len(stage.Questions))
	for _, key := range stage.Questions {
		q, ok := def.Question(key)
		if !ok {
			continue
		}
		required := stage.Required && !q.Optional

		value, present := payload[key]
		if !present || isEmpty(value) {
			if required {
				errs = append(errs, FieldError{Field: key, Message: "is required"})
			}
			continue
		}

		answer, fe := validateAnswer(v, q, value)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		normalized[key] = answer
	}

	sort.Slice(errs, func(i, j int) bool {
		return errs[i].Field < errs[j].Field
	})
	return normalized, errs
}

func validateAnswer(v *validator.Validate, q *types.Question, value any) (any, *FieldError) {
	switch q.Kind {
	case types.KindSingleChoice:
		s, ok := value.(string)
		if !ok {
			return nil, &FieldError{Field: q.Key, Message: "must be a string"}
		}
		s = strings.TrimSpace(s)
		if err := v.Var(s, "required"); err != nil {
			return nil, &FieldError{Field: q.Key, Message: "must not be empty"}
		}
		return s, nil

	case types.KindMultiChoice:
		values, ok := stringList(value)
		if !ok {
			return nil, &FieldError{Field: q.Key, Message: "must be a string or a list of strings"}
		}
		if err := v.Var(values, "min=1,dive,required"); err != nil {
			return nil, &FieldError{Field: q.Key, Message: "must not contain empty values"}
		}
		out := make([]any, len(values))
		for i, s := range values {
			out[i] = s
		}
		return out, nil

	case types.KindRange:
		f, ok := scoring.Numeric(value)
		if !ok {
			return nil, &FieldError{Field: q.Key, Message: "must be numeric"}
		}
		if q.Range == nil {
			return f, nil
		}
		tag := fmt.Sprintf("gte=%s,lte=%s", formatFloat(q.Range.Min), formatFloat(q.Range.Max))
		if err := v.Var(f, tag); err != nil {
			return nil, &FieldError{
				Field:   q.Key,
				Message: fmt.Sprintf("must be between %s and %s", formatFloat(q.Range.Min), formatFloat(q.Range.Max)),
			}
		}
		return f, nil

	default:
		return nil, &FieldError{Field: q.Key, Message: fmt.Sprintf("unsupported question kind %q", q.Kind)}
	}
}

func stringList(value any) ([]string, bool) {
	switch v := value.(type) {
	case string:
		return []string{strings.TrimSpace(v)}, true
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = strings.TrimSpace(s)
		}
		return out, true
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = strings.TrimSpace(s)
		}
		return out, true
	default:
		return nil, false
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
