package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSource creates a minimal YAML graph source for testing.
func writeSource(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "graphs.yaml")
	content := `
graph:
  Chain:
    input_stream: [in]
    output_stream: [out]
    node:
      - calculator: PassThroughCalculator
        input_stream: [in]
        output_stream: [out]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir)

	path := writeScenario(t, dir, `
name: chain
description: "One pass-through node"
sources:
  - graphs.yaml
graph: Chain
side_packets:
  threshold: 3
assertions:
  - type: status
    code: ok
  - type: output_streams
    names: [in, out]
  - type: input_streams
    edges:
      - {name: in, upstream: 0, node: "Calculator#0"}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "chain", scenario.Name)
	assert.Equal(t, "One pass-through node", scenario.Description)
	assert.Equal(t, []string{filepath.Join(dir, "graphs.yaml")}, scenario.Sources)
	assert.Equal(t, "Chain", scenario.Graph)
	assert.Equal(t, 3, scenario.SidePackets["threshold"])
	assert.Equal(t, path, scenario.Path())
	require.Len(t, scenario.Assertions, 3)
	assert.Equal(t, []EdgeExpect{{Name: "in", Upstream: 0, Node: "Calculator#0"}}, scenario.Assertions[2].Edges)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir)

	path := writeScenario(t, dir, `
name: chain
description: "typo"
sources: [graphs.yaml]
graph: Chain
assertion:
  - type: status
    code: OK
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
sources: [graphs.yaml]
graph: Chain
assertions: [{type: status, code: OK}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
sources: [graphs.yaml]
graph: Chain
assertions: [{type: status, code: OK}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing sources",
			content: `
name: n
description: d
sources: []
graph: Chain
assertions: [{type: status, code: OK}]
`,
			wantErr: "sources list is required",
		},
		{
			name: "source not found",
			content: `
name: n
description: d
sources: [missing.yaml]
graph: Chain
assertions: [{type: status, code: OK}]
`,
			wantErr: "source not found",
		},
		{
			name: "neither graph nor type",
			content: `
name: n
description: d
sources: [graphs.yaml]
assertions: [{type: status, code: OK}]
`,
			wantErr: "exactly one of graph or type is required",
		},
		{
			name: "both graph and type",
			content: `
name: n
description: d
sources: [graphs.yaml]
graph: Chain
type: Chain
assertions: [{type: status, code: OK}]
`,
			wantErr: "exactly one of graph or type is required",
		},
		{
			name: "no assertions",
			content: `
name: n
description: d
sources: [graphs.yaml]
graph: Chain
assertions: []
`,
			wantErr: "assertions list is required",
		},
		{
			name: "missing type",
			content: `
name: n
description: d
sources: [graphs.yaml]
graph: Chain
assertions: [{code: OK}]
`,
			wantErr: "assertions[0]: type is required",
		},
		{
			name: "unknown type",
			content: `
name: n
description: d
sources: [graphs.yaml]
graph: Chain
assertions: [{type: trace_contains}]
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "unknown code",
			content: `
name: n
description: d
sources: [graphs.yaml]
graph: Chain
assertions: [{type: status, code: BROKEN}]
`,
			wantErr: `unknown status code "BROKEN"`,
		},
		{
			name: "status without code",
			content: `
name: n
description: d
sources: [graphs.yaml]
graph: Chain
assertions: [{type: status}]
`,
			wantErr: "code is required for status",
		},
		{
			name: "stream_type without name",
			content: `
name: n
description: d
sources: [graphs.yaml]
graph: Chain
assertions: [{type: stream_type, expect: ImageFrame}]
`,
			wantErr: "name is required for stream_type",
		},
		{
			name: "output_streams without names",
			content: `
name: n
description: d
sources: [graphs.yaml]
graph: Chain
assertions: [{type: output_streams}]
`,
			wantErr: "names is required for output_streams",
		},
		{
			name: "input_streams without edges",
			content: `
name: n
description: d
sources: [graphs.yaml]
graph: Chain
assertions: [{type: input_streams}]
`,
			wantErr: "edges is required for input_streams",
		},
		{
			name: "required_side_packets without packets",
			content: `
name: n
description: d
sources: [graphs.yaml]
graph: Chain
assertions: [{type: required_side_packets}]
`,
			wantErr: "packets is required for required_side_packets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSource(t, dir)
			path := writeScenario(t, dir, tt.content)

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "graphs")
	require.NoError(t, os.MkdirAll(srcDir, 0755))
	writeSource(t, srcDir)

	scenarioDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarioDir, 0755))
	path := writeScenario(t, scenarioDir, `
name: chain
description: d
sources: [graphs/graphs.yaml]
graph: Chain
assertions: [{type: status, code: OK}]
`)

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(srcDir, "graphs.yaml")}, scenario.Sources)
}

func TestLoadScenarios_Directory(t *testing.T) {
	scenarios, err := LoadScenarios("../../testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"limited_back_edge",
		"limited_bad_side_packet",
		"passthrough",
		"pose_landmark",
		"recursive_template",
		"switch_container_type",
		"unknown_calculator",
	}, names)
}

func TestLoadScenarios_SingleFile(t *testing.T) {
	scenarios, err := LoadScenarios("../../testdata/scenarios/passthrough.yaml")
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "passthrough", scenarios[0].Name)
}

func TestLoadScenarios_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: x\n"), 0644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}
