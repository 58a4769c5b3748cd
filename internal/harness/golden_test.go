package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_QualifierOrder(t *testing.T) {
	h := New()
	scenario := loadTestdataScenario(t, "qualifier_order.yaml")

	result, err := h.RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestGolden_DerivedReuse(t *testing.T) {
	h := New()
	scenario := loadTestdataScenario(t, "derived_reuse.yaml")

	result, err := h.RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestGolden_SnapshotIsDeterministic(t *testing.T) {
	h := New()
	scenario := loadTestdataScenario(t, "derived_reuse.yaml")

	first, err := h.Run(scenario)
	require.NoError(t, err)
	second, err := h.Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Journal, second.Journal)
}
