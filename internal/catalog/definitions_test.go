package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/health-assessment/internal/types"
)

func hairDefinition() types.AssessmentDefinition {
	return types.AssessmentDefinition{
		Type:      "hair",
		MinStages: 1,
		Questions: []types.Question{
			{Key: "hair_q1", Pillar: types.PillarBody, Kind: types.KindSingleChoice, MaxScore: 2, Options: map[string]float64{"male": 2, "female": 1}},
		},
		Stages: []types.Stage{{Name: "profile", Required: true, Questions: []string{"hair_q1"}}},
	}
}

func TestDefaultDefinitions_Load(t *testing.T) {
	defs, err := DefaultDefinitions()
	require.NoError(t, err)

	assert.Equal(t, []string{"hair", "health", "skin"}, defs.Types())

	hair, err := defs.Definition("hair")
	require.NoError(t, err)
	assert.Len(t, hair.Questions, 2)
	assert.Equal(t, 2, hair.TotalStages())
	assert.Equal(t, 2, hair.MinStages)

	q, ok := hair.Question("hair_q1")
	require.True(t, ok)
	assert.Equal(t, 2.0, q.Options["male"])

	health, err := defs.Definition("health")
	require.NoError(t, err)
	assert.Equal(t, 4, health.TotalStages())
	bmi, ok := health.Question("health_bmi")
	require.True(t, ok)
	require.NotNil(t, bmi.Range)
	assert.Equal(t, 18.5, bmi.Range.OptimalMin)
}

func TestDefinitions_UnknownType(t *testing.T) {
	defs, err := DefaultDefinitions()
	require.NoError(t, err)

	_, err = defs.Definition("dental")
	require.Error(t, err)

	var unknown *UnknownAssessmentTypeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "dental", unknown.Type)
}

func TestNewDefinitions_StructuralChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *types.AssessmentDefinition)
		errMsg string
	}{
		{
			name:   "min stages too high",
			mutate: func(d *types.AssessmentDefinition) { d.MinStages = 2 },
			errMsg: "min_stages",
		},
		{
			name: "stage references unknown question",
			mutate: func(d *types.AssessmentDefinition) {
				d.Stages[0].Questions = append(d.Stages[0].Questions, "hair_q9")
			},
			errMsg: "unknown question",
		},
		{
			name: "choice without options",
			mutate: func(d *types.AssessmentDefinition) {
				d.Questions[0].Options = nil
			},
			errMsg: "without options",
		},
		{
			name: "range outside domain",
			mutate: func(d *types.AssessmentDefinition) {
				d.Questions[0].Kind = types.KindRange
				d.Questions[0].Range = &types.RangeSpec{Min: 0, Max: 10, OptimalMin: 8, OptimalMax: 12}
			},
			errMsg: "range bounds",
		},
		{
			name: "unknown pillar",
			mutate: func(d *types.AssessmentDefinition) {
				d.Questions[0].Pillar = "spirit"
			},
			errMsg: "unknown pillar",
		},
		{
			name: "question in two stages",
			mutate: func(d *types.AssessmentDefinition) {
				d.Stages = append(d.Stages, types.Stage{Name: "again", Questions: []string{"hair_q1"}})
			},
			errMsg: "collected by both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := hairDefinition()
			tt.mutate(&def)
			_, err := NewDefinitions(def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewDefinitions_Duplicate(t *testing.T) {
	_, err := NewDefinitions(hairDefinition(), hairDefinition())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate assessment type")
}

func TestLoadDefinitions_SchemaViolation(t *testing.T) {
	content := `
assessments:
  - type: hair
    min_stages: 1
    questions:
      - key: hair_q1
        pillar: body
        kind: free-text
        max_score: 2
    stages:
      - name: profile
        questions: [hair_q1]
`
	_, err := LoadDefinitions("inline", []byte(content))
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "assessment #0")
}

func TestLoadDefinitions_Empty(t *testing.T) {
	_, err := LoadDefinitions("inline", []byte("assessments: []"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no assessments defined")
}

func TestLoadDefinitionsFile(t *testing.T) {
	content := `
assessments:
  - type: sleep
    min_stages: 1
    questions:
      - key: sleep_hours
        pillar: lifestyle
        kind: range
        max_score: 4
        range: {min: 0, max: 12, optimal_min: 7, optimal_max: 9}
    stages:
      - name: sleep
        required: true
        questions: [sleep_hours]
`
	path := filepath.Join(t.TempDir(), "assessments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	defs, err := LoadDefinitionsFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"sleep"}, defs.Types())

	_, err = LoadDefinitionsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}
