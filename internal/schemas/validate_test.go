package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "answers", Message: "is required"},
			{Field: "biomarkers.0.value", Message: "must be a number"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "answers")
	assert.Contains(t, errorMsg, "biomarkers.0.value")
}

func TestValidateDocument_AssessmentDefinition(t *testing.T) {
	doc := map[string]any{
		"type":       "hair",
		"min_stages": 1,
		"questions": []any{
			map[string]any{
				"key":       "hair_q1",
				"pillar":    "body",
				"kind":      "single-choice",
				"max_score": 2,
				"options":   map[string]any{"male": 2, "female": 1},
			},
		},
		"stages": []any{
			map[string]any{"name": "basics", "required": true, "questions": []any{"hair_q1"}},
		},
	}

	assert.NoError(t, ValidateDocument(AssessmentDefinition, doc))

	doc["questions"].([]any)[0].(map[string]any)["pillar"] = "spirit"
	err := ValidateDocument(AssessmentDefinition, doc)
	require.Error(t, err)
	_, ok := err.(*ValidationError)
	assert.True(t, ok, "error should be ValidationError, got %T", err)
}

func TestValidateDocument_UnknownSchema(t *testing.T) {
	err := ValidateDocument("missing.schema.json", map[string]any{})
	require.Error(t, err)
	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok)
}

func TestValidateBytes_ScoreRequest(t *testing.T) {
	valid := []byte(`{"assessment_type": "hair", "answers": {"hair_q1": "male", "hair_q3": ["a", "b"]}, "goals": ["longevity"]}`)
	assert.NoError(t, ValidateBytes(ScoreRequest, valid))

	invalid := []byte(`{"answers": {"hair_q1": {"nested": true}}}`)
	err := ValidateBytes(ScoreRequest, invalid)
	require.Error(t, err)
	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(validationErr.Errors), 2)
}

func TestValidateBytes_ReferenceRanges(t *testing.T) {
	valid := []byte(`{"biomarkers": [{"name": "vitamin_d", "min": 30, "max": 100, "optimal_min": 40, "optimal_max": 80}]}`)
	assert.NoError(t, ValidateBytes(ReferenceRanges, valid))

	badGender := []byte(`{"biomarkers": [{"name": "ferritin", "min": 30, "max": 400, "variants": [{"gender": "other", "min": 1, "max": 2}]}]}`)
	err := ValidateBytes(ReferenceRanges, badGender)
	require.Error(t, err)
	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.NotEmpty(t, validationErr.Errors)
}

func TestValidateBytes_MalformedDocument(t *testing.T) {
	err := ValidateBytes(ScoreRequest, []byte("{ invalid json }"))
	require.Error(t, err)
	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok, "malformed input surfaces as a load error, got %T", err)
}
