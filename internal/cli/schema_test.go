package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// yamlInstance decodes YAML and round-trips it through JSON so the
// validator sees the same value types a JSON document would produce.
func yamlInstance(t *testing.T, src []byte) any {
	t.Helper()
	var doc any
	require.NoError(t, yaml.Unmarshal(src, &doc))
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	var instance any
	require.NoError(t, json.Unmarshal(data, &instance))
	return instance
}

func resolvedSchema(t *testing.T) *jsonschema.Resolved {
	t.Helper()
	resolved, err := SourceSchema().Resolve(nil)
	require.NoError(t, err)
	return resolved
}

func TestSourceSchemaAcceptsSources(t *testing.T) {
	src, err := os.ReadFile(pipelineFile)
	require.NoError(t, err)

	assert.NoError(t, resolvedSchema(t).Validate(yamlInstance(t, src)))
}

func TestSourceSchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown section", "graphs:\n  A: {}\n"},
		{"unknown graph field", "graph:\n  A:\n    nodes: []\n"},
		{"node without calculator", "graph:\n  A:\n    node:\n      - input_stream: [in]\n"},
		{"malformed edge", "graph:\n  A:\n    input_stream: [\"bad:name\"]\n"},
		{"unknown port field", "contract:\n  C:\n    input_stream:\n      - {tag: IN, kind: ImageFrame}\n"},
		{"non-integer num_threads", "graph:\n  A:\n    num_threads: two\n"},
	}

	resolved := resolvedSchema(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, resolved.Validate(yamlInstance(t, []byte(tt.src))))
		})
	}
}

func TestSchemaCommand(t *testing.T) {
	out, _, err := execute(t, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["properties"], "graph")
	assert.Contains(t, schema["properties"], "template")
	assert.Contains(t, schema["properties"], "contract")
}

func TestSchemaCommandOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphcfg.schema.json")

	out, _, err := execute(t, "schema", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote schema to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var schema jsonschema.Schema
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "graphcfg source", schema.Title)
}
