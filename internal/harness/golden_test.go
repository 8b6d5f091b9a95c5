package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"passthrough", "limited_back_edge"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestAssertGolden_RejectedGraph(t *testing.T) {
	result, err := Run(loadScenario(t, "recursive_template"))
	require.NoError(t, err)

	err = AssertGolden(t, "recursive_template", result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no canonical config (code INTERNAL)")
}
