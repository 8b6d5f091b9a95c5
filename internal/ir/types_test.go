package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSizeOfZeroConfig(t *testing.T) {
	assert.Equal(t, 0, GraphConfig{}.Size())
}

// TestSizeGrowsWithDefaultExecutor verifies adding an empty executor entry
// never shrinks the canonical encoding.
func TestSizeGrowsWithDefaultExecutor(t *testing.T) {
	cfg := GraphConfig{InputStreams: []string{"in"}}
	withExecutor := cfg.Clone()
	withExecutor.Executors = append(withExecutor.Executors, Executor{})

	assert.Positive(t, cfg.Size())
	assert.Greater(t, withExecutor.Size(), cfg.Size())
}

func TestCloneIsDeep(t *testing.T) {
	cfg := GraphConfig{
		InputStreams: []string{"in"},
		Nodes: []Node{{
			Calculator:   "PassThroughCalculator",
			InputStreams: []string{"in"},
			Options:      map[string]string{"k": "v"},
		}},
		Executors: []Executor{{Name: "pool", Options: map[string]string{"threads": "4"}}},
		Subgraphs: []SubgraphInstance{{Prefix: "det", Node: Node{Calculator: "Det", InputStreams: []string{"IN:in"}}}},
	}

	clone := cfg.Clone()
	assert.Empty(t, cmp.Diff(cfg, clone))

	clone.InputStreams[0] = "changed"
	clone.Nodes[0].InputStreams[0] = "changed"
	clone.Nodes[0].Options["k"] = "changed"
	clone.Executors[0].Options["threads"] = "8"
	clone.Subgraphs[0].Node.InputStreams[0] = "changed"

	assert.Equal(t, "in", cfg.InputStreams[0])
	assert.Equal(t, "in", cfg.Nodes[0].InputStreams[0])
	assert.Equal(t, "v", cfg.Nodes[0].Options["k"])
	assert.Equal(t, "4", cfg.Executors[0].Options["threads"])
	assert.Equal(t, "IN:in", cfg.Subgraphs[0].Node.InputStreams[0])
}

// TestSizeCountsSubgraphInstances verifies moving a node into the recorded
// instances grows the encoding.
func TestSizeCountsSubgraphInstances(t *testing.T) {
	caller := Node{Name: "a_rather_long_caller_node_name", Calculator: "AVeryLongSubgraphTemplateTypeName"}
	before := GraphConfig{Nodes: []Node{caller}}
	after := GraphConfig{Subgraphs: []SubgraphInstance{{Prefix: "a_rather_long_caller_node_name", Node: caller}}}

	assert.Greater(t, after.Size(), before.Size())
}

func TestIsZero(t *testing.T) {
	assert.True(t, GraphConfig{}.IsZero())
	assert.False(t, GraphConfig{Package: "demo"}.IsZero())
	assert.False(t, GraphConfig{Executors: []Executor{{}}}.IsZero())
	assert.False(t, GraphConfig{Subgraphs: []SubgraphInstance{{Prefix: "p"}}}.IsZero())
}
