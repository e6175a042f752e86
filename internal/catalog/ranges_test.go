package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/health-assessment/internal/types"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "vitamin_d", NormalizeName(" Vitamin D "))
	assert.Equal(t, "vitamin_d", NormalizeName("vitamin-d"))
	assert.Equal(t, "ldl_cholesterol", NormalizeName("LDL Cholesterol"))
}

func TestDefaultRanges_Generic(t *testing.T) {
	ranges, err := DefaultRanges()
	require.NoError(t, err)

	r, ok := ranges.Range("Vitamin D", nil)
	require.True(t, ok)
	assert.Equal(t, 30.0, r.Min)
	assert.Equal(t, 100.0, r.Max)
	require.NotNil(t, r.CriticalLow)
	assert.Equal(t, 10.0, *r.CriticalLow)

	require.NotNil(t, r.OptimalMin)
	require.NotNil(t, r.OptimalMax)
	assert.True(t, r.Optimal(50))
	assert.False(t, r.Optimal(35))

	ldl, ok := ranges.Range("ldl_cholesterol", nil)
	require.True(t, ok)
	assert.False(t, ldl.Optimal(80), "no band declared")

	_, ok = ranges.Range("unobtainium", nil)
	assert.False(t, ok)
}

func TestDefaultRanges_Variants(t *testing.T) {
	ranges, err := DefaultRanges()
	require.NoError(t, err)

	female, ok := ranges.Range("testosterone_total", &types.Demographics{Gender: "Female", Age: 30})
	require.True(t, ok)
	assert.Equal(t, 15.0, female.Min)
	assert.Equal(t, 70.0, female.Max)

	olderMale, ok := ranges.Range("testosterone_total", &types.Demographics{Gender: "male", Age: 60})
	require.True(t, ok)
	assert.Equal(t, 250.0, olderMale.Min)

	youngerMale, ok := ranges.Range("testosterone_total", &types.Demographics{Gender: "male", Age: 35})
	require.True(t, ok)
	assert.Equal(t, 300.0, youngerMale.Min, "no variant matches, generic range applies")

	unknownAge, ok := ranges.Range("testosterone_total", &types.Demographics{Gender: "male"})
	require.True(t, ok)
	assert.Equal(t, 300.0, unknownAge.Min, "age-bounded variants need a known age")
}

func TestLoadRanges_Invalid(t *testing.T) {
	_, err := LoadRanges("inline", []byte(`
biomarkers:
  - name: glucose
    min: 100
    max: 70
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min greater than max")

	_, err = LoadRanges("inline", []byte(`
biomarkers:
  - name: glucose
    max: 70
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")

	_, err = LoadRanges("inline", []byte(`
biomarkers:
  - {name: glucose, min: 70, max: 99}
  - {name: Glucose, min: 70, max: 99}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate biomarker")

	_, err = LoadRanges("inline", []byte(`
biomarkers:
  - {name: glucose, min: 70, max: 99, optimal_min: 60, optimal_max: 90}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "optimal band outside")

	_, err = LoadRanges("inline", []byte(`
biomarkers:
  - {name: glucose, min: 70, max: 99, optimal_min: 75}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs both")
}
