package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/status"
	"github.com/roach88/graphcfg/internal/subgraph"
	"github.com/roach88/graphcfg/internal/testutil"
)

func passThrough(in, out []string) ir.Node {
	return ir.Node{Calculator: "PassThroughCalculator", InputStreams: in, OutputStreams: out}
}

// TestInitializeRejectsMalformedGraphs covers the structural checks; each
// case must fail with the listed code and mention the listed fragment.
func TestInitializeRejectsMalformedGraphs(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ir.GraphConfig
		code     status.Code
		contains string
	}{
		{
			name:     "unknown calculator",
			cfg:      ir.GraphConfig{Nodes: []ir.Node{{Calculator: "NoSuchCalculator"}}},
			code:     status.NotFound,
			contains: "NoSuchCalculator",
		},
		{
			name:     "empty calculator",
			cfg:      ir.GraphConfig{Nodes: []ir.Node{{}}},
			code:     status.Internal,
			contains: "calculator is empty",
		},
		{
			name: "duplicate producer",
			cfg: ir.GraphConfig{
				InputStreams: []string{"in"},
				Nodes:        []ir.Node{passThrough([]string{"in"}, []string{"x"}), passThrough([]string{"in"}, []string{"x"})},
			},
			code:     status.Internal,
			contains: `stream "x" is already produced`,
		},
		{
			name: "graph input also produced by a node",
			cfg: ir.GraphConfig{
				InputStreams: []string{"in"},
				Nodes:        []ir.Node{passThrough([]string{"in"}, []string{"in"})},
			},
			code:     status.Internal,
			contains: "already produced by GraphInputStream#1",
		},
		{
			name:     "dangling input",
			cfg:      ir.GraphConfig{Nodes: []ir.Node{passThrough([]string{"nowhere"}, nil)}},
			code:     status.Internal,
			contains: `input stream "nowhere" has no producer`,
		},
		{
			name:     "graph output without producer",
			cfg:      ir.GraphConfig{OutputStreams: []string{"out"}},
			code:     status.Internal,
			contains: `graph output stream "out" has no producer`,
		},
		{
			name:     "graph output side packet without producer",
			cfg:      ir.GraphConfig{OutputSidePackets: []string{"p"}},
			code:     status.Internal,
			contains: `graph output side packet "p" has no producer`,
		},
		{
			name: "duplicate side packet producer",
			cfg: ir.GraphConfig{Nodes: []ir.Node{
				{Calculator: "ConstantSidePacketCalculator", OutputSidePackets: []string{"PACKET:p"}},
				{Calculator: "ConstantSidePacketCalculator", OutputSidePackets: []string{"PACKET:p"}},
			}},
			code:     status.Internal,
			contains: `side packet "p" is already produced`,
		},
		{
			name:     "duplicate graph input",
			cfg:      ir.GraphConfig{InputStreams: []string{"in", "in"}},
			code:     status.Internal,
			contains: "declared more than once",
		},
		{
			name:     "malformed edge",
			cfg:      ir.GraphConfig{InputStreams: []string{"in"}, Nodes: []ir.Node{passThrough([]string{"lower:in"}, nil)}},
			code:     status.Internal,
			contains: "tag must match",
		},
		{
			name: "undeclared port",
			cfg: ir.GraphConfig{
				InputStreams: []string{"in"},
				Nodes:        []ir.Node{{Calculator: "PacketPresenceCalculator", InputStreams: []string{"FRAME:in"}}},
			},
			code:     status.Internal,
			contains: "FRAME:0 is not a port of PacketPresenceCalculator",
		},
		{
			name:     "required port unbound",
			cfg:      ir.GraphConfig{Nodes: []ir.Node{{Calculator: "PacketPresenceCalculator"}}},
			code:     status.Internal,
			contains: "required input_stream PACKET:0 is not bound",
		},
		{
			name: "duplicate node name",
			cfg: ir.GraphConfig{
				InputStreams: []string{"in"},
				Nodes: []ir.Node{
					{Name: "a", Calculator: "PassThroughCalculator", InputStreams: []string{"in"}},
					{Name: "a", Calculator: "PassThroughCalculator", InputStreams: []string{"in"}},
				},
			},
			code:     status.Internal,
			contains: `name "a" already used by node 0`,
		},
		{
			name:     "reserved executor",
			cfg:      ir.GraphConfig{Executors: []ir.Executor{{Name: "gpu"}}},
			code:     status.Internal,
			contains: `name "gpu" is reserved`,
		},
		{
			name:     "duplicate executor",
			cfg:      ir.GraphConfig{Executors: []ir.Executor{{Name: "pool"}, {Name: "pool"}}},
			code:     status.Internal,
			contains: "declared more than once",
		},
		{
			name: "undeclared executor",
			cfg: ir.GraphConfig{
				InputStreams: []string{"in"},
				Nodes:        []ir.Node{{Calculator: "PassThroughCalculator", InputStreams: []string{"in"}, Executor: "pool"}},
			},
			code:     status.Internal,
			contains: `executor "pool" is not declared`,
		},
		{
			name: "back edge not permitted",
			cfg: ir.GraphConfig{
				InputStreams: []string{"in"},
				Nodes: []ir.Node{
					passThrough([]string{"in", "loop"}, []string{"a"}),
					passThrough([]string{"a"}, []string{"loop"}),
				},
			},
			code:     status.Internal,
			contains: "declare it as a back edge",
		},
		{
			name: "self loop not permitted",
			cfg: ir.GraphConfig{
				Nodes: []ir.Node{passThrough([]string{"x"}, []string{"x"})},
			},
			code:     status.Internal,
			contains: "declare it as a back edge",
		},
		{
			name: "input_stream_info on unbound port",
			cfg: ir.GraphConfig{
				InputStreams: []string{"in"},
				Nodes: []ir.Node{{
					Calculator:      "PassThroughCalculator",
					InputStreams:    []string{"in"},
					InputStreamInfo: []ir.InputStreamInfo{{TagIndex: "LOOP", BackEdge: true}},
				}},
			},
			code:     status.Internal,
			contains: "names unbound input LOOP:0",
		},
		{
			name: "type conflict",
			cfg: ir.GraphConfig{
				InputStreams: []string{"in"},
				Nodes: []ir.Node{
					{Calculator: "PacketPresenceCalculator", InputStreams: []string{"PACKET:in"}, OutputStreams: []string{"PRESENCE:p"}},
					{Calculator: "ImageToTensorCalculator", InputStreams: []string{"IMAGE:p"}},
				},
			},
			code:     status.Internal,
			contains: `expects type "ImageFrame" but the edge already carries "bool"`,
		},
		{
			name: "undeclared template port",
			cfg: ir.GraphConfig{
				InputStreams: []string{"in"},
				Nodes:        []ir.Node{{Calculator: "SwitchContainer", InputStreams: []string{"SELECT:in"}}},
			},
			code:     status.Internal,
			contains: "no input_stream port SELECT:0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newValidated(t)
			err := v.Initialize(tt.cfg)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.CodeOf(err), "error: %v", err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.False(t, v.Initialized())
		})
	}
}

func TestInitializeRejectsRecursiveTemplates(t *testing.T) {
	templates := subgraph.NewRegistry()
	require.NoError(t, templates.Register(ir.GraphConfig{
		Type:         "Loop",
		InputStreams: []string{"in"},
		Nodes:        []ir.Node{{Calculator: "Loop", InputStreams: []string{"in"}}},
	}))
	v := New(WithTemplates(templates), WithLogger(discardLogger()))

	err := v.Initialize(ir.GraphConfig{
		InputStreams: []string{"x"},
		Nodes:        []ir.Node{{Calculator: "Loop", InputStreams: []string{"x"}}},
	})
	assert.True(t, status.IsInternal(err))
	assert.Contains(t, err.Error(), "Loop → Loop")
}

// TestBackEdgePermittedByContract verifies a contract port flagged as a
// back edge may read from a later node.
func TestBackEdgePermittedByContract(t *testing.T) {
	v := initialized(t, ir.GraphConfig{
		InputStreams: []string{"in"},
		Nodes: []ir.Node{
			{Calculator: "FlowLimiterCalculator", InputStreams: []string{"in", "FINISHED:out"}, OutputStreams: []string{"gated"}},
			passThrough([]string{"gated"}, []string{"out"}),
		},
	})

	assert.Equal(t, []EdgeInfo{
		{Name: "in", Upstream: 0, ParentNode: NodeRef{Kind: KindCalculator, Index: 0}},
		{Name: "out", Upstream: 2, ParentNode: NodeRef{Kind: KindCalculator, Index: 0}, BackEdge: true, Port: ir.TagIndex{Tag: "FINISHED"}},
		{Name: "gated", Upstream: 1, ParentNode: NodeRef{Kind: KindCalculator, Index: 1}},
	}, v.InputStreamInfos())
}

func TestBackEdgePermittedByInputStreamInfo(t *testing.T) {
	v := initialized(t, ir.GraphConfig{
		InputStreams: []string{"in"},
		Nodes: []ir.Node{
			{
				Calculator:      "PassThroughCalculator",
				InputStreams:    []string{"in", "loop"},
				OutputStreams:   []string{"a"},
				InputStreamInfo: []ir.InputStreamInfo{{TagIndex: ":1", BackEdge: true}},
			},
			passThrough([]string{"a"}, []string{"loop"}),
		},
	})

	infos := v.InputStreamInfos()
	require.Len(t, infos, 3)
	assert.False(t, infos[0].BackEdge)
	assert.True(t, infos[1].BackEdge)
	assert.False(t, infos[2].BackEdge, "forward edges are never flagged")
}

// TestGraphInputIsNeverBackEdge verifies boundary producers do not count,
// although their node index is higher than every calculator's.
func TestGraphInputIsNeverBackEdge(t *testing.T) {
	v := initialized(t, testutil.PassThroughGraph())
	for _, info := range v.InputStreamInfos() {
		assert.False(t, info.BackEdge, info.Name)
	}
}

func TestDeclaredExecutorsKept(t *testing.T) {
	cfg := ir.GraphConfig{
		InputStreams: []string{"in"},
		Executors:    []ir.Executor{{Name: "pool", Type: "ThreadPoolExecutor", Options: map[string]string{"num_threads": "4"}}},
		Nodes:        []ir.Node{{Calculator: "PassThroughCalculator", InputStreams: []string{"in"}, Executor: "pool"}},
	}
	v := initialized(t, cfg)

	execs := v.Config().Executors
	require.Len(t, execs, 1, "no default executor is added when one is declared")
	assert.Equal(t, "pool", execs[0].Name)
	assert.Equal(t, "pool", v.Nodes()[0].Executor)
}
