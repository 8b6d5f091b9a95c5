package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphcfg/internal/status"
)

const scenarioDir = "../../testdata/scenarios"

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join(scenarioDir, name+".yaml"))
	require.NoError(t, err)
	return s
}

// TestScenarios runs every checked-in scenario. These serve as end-to-end
// validation of loading, expansion, indexing and type resolution.
func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_RecordsHashAndCanonical(t *testing.T) {
	result, err := Run(loadScenario(t, "passthrough"))
	require.NoError(t, err)

	assert.Equal(t, status.OK, result.Code)
	assert.Len(t, result.Hash, 64)
	assert.Contains(t, string(result.Canonical), `"calculator":"PassThroughCalculator"`)
}

func TestRun_Deterministic(t *testing.T) {
	s := loadScenario(t, "pose_landmark")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, first.Canonical, second.Canonical)
}

func TestRun_RejectedGraphHasNoCanonical(t *testing.T) {
	result, err := Run(loadScenario(t, "unknown_calculator"))
	require.NoError(t, err)

	assert.True(t, result.Pass)
	assert.Equal(t, status.NotFound, result.Code)
	assert.Empty(t, result.Hash)
	assert.Nil(t, result.Canonical)
}

func TestRun_FailingAssertions(t *testing.T) {
	s := loadScenario(t, "passthrough")
	s.Assertions = []Assertion{
		{Type: AssertStatus, Code: "INTERNAL"},
		{Type: AssertOutputStreams, Names: []string{"out", "in"}},
		{Type: AssertStreamType, Name: "out1", Expect: "ImageFrame"},
		{Type: AssertStreamType, Name: "missing"},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Expected: INTERNAL")
	assert.Contains(t, result.Errors[1], "Expected: [out in]")
	assert.Contains(t, result.Errors[1], "Actual: [in out1 out]")
	assert.Contains(t, result.Errors[2], "out1: ImageFrame")
	assert.Contains(t, result.Errors[3], "missing to be untyped")
}

func TestRun_AssertionsAfterRejection(t *testing.T) {
	s := loadScenario(t, "unknown_calculator")
	s.Assertions = append(s.Assertions, Assertion{Type: AssertOutputStreams, Names: []string{}})

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expected: an initialized graph")
}

func TestRun_MissingGraph(t *testing.T) {
	s := loadScenario(t, "passthrough")
	s.Graph = "Nope"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `graph "Nope" is not declared`)
}

func TestRun_UnknownType(t *testing.T) {
	s := loadScenario(t, "switch_container_type")
	s.Type = "Nope"
	s.Assertions = []Assertion{{Type: AssertStatus, Code: "NOT_FOUND"}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BadSource(t *testing.T) {
	s := loadScenario(t, "passthrough")
	s.Sources = []string{filepath.Join(t.TempDir(), "missing.yaml")}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load sources")
}
