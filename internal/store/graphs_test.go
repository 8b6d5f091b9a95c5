package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphcfg/internal/graph"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/status"
	"github.com/roach88/graphcfg/internal/testutil"
)

func TestWriteGraph_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v := validated(t, testutil.PassThroughGraph())

	hash, err := s.WriteGraph(ctx, "passthrough", v)
	require.NoError(t, err)
	assert.Equal(t, v.Hash(), hash)

	g, err := s.ReadGraph(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "passthrough", g.Name)
	assert.Equal(t, 4, g.NodeCount, "two calculators plus one graph input and one graph output")
	assert.Equal(t, ir.SchemaVersion, g.SchemaVersion)
	assert.Equal(t, v.Config().Size(), g.Size)

	want, err := ir.MarshalCanonical(v.Config().Object())
	require.NoError(t, err)
	assert.Equal(t, string(want), g.Canonical)
}

func TestWriteGraph_EdgeTables(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v := validated(t, testutil.PoseLandmarkGraph())

	hash, err := s.WriteGraph(ctx, "pose", v)
	require.NoError(t, err)

	tables := map[string][]graph.EdgeInfo{
		EdgeInputStream:      v.InputStreamInfos(),
		EdgeOutputStream:     v.OutputStreamInfos(),
		EdgeInputSidePacket:  v.InputSidePacketInfos(),
		EdgeOutputSidePacket: v.OutputSidePacketInfos(),
	}
	for kind, want := range tables {
		got, err := s.ReadEdges(ctx, hash, kind)
		require.NoError(t, err, kind)
		assert.Equal(t, want, got, kind)
	}
}

func TestWriteGraph_BackEdgeRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v := validated(t, ir.GraphConfig{
		InputStreams: []string{"in"},
		Nodes: []ir.Node{
			{Calculator: "FlowLimiterCalculator", InputStreams: []string{"in", "FINISHED:out"}, OutputStreams: []string{"gated"}},
			{Calculator: "PassThroughCalculator", InputStreams: []string{"gated"}, OutputStreams: []string{"out"}},
		},
	})

	hash, err := s.WriteGraph(ctx, "limited", v)
	require.NoError(t, err)

	edges, err := s.ReadEdges(ctx, hash, EdgeInputStream)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.True(t, edges[1].BackEdge)
	assert.Equal(t, ir.TagIndex{Tag: "FINISHED"}, edges[1].Port)
}

func TestWriteGraph_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v := validated(t, testutil.PassThroughGraph())

	h1, err := s.WriteGraph(ctx, "first", v)
	require.NoError(t, err)
	h2, err := s.WriteGraph(ctx, "second", v)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	graphs, err := s.ListGraphs(ctx)
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	assert.Equal(t, "first", graphs[0].Name, "the first name is kept")

	edges, err := s.ReadEdges(ctx, h1, EdgeOutputStream)
	require.NoError(t, err)
	assert.Len(t, edges, 3, "edges are not duplicated")
}

func TestWriteGraph_Uninitialized(t *testing.T) {
	s := createTestStore(t)

	_, err := s.WriteGraph(context.Background(), "nothing", graph.New())
	assert.True(t, status.IsInvalidArgument(err))
}

func TestReadGraph_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadGraph(context.Background(), "deadbeef")
	assert.True(t, status.IsNotFound(err))
}

func TestListGraphs_Ordering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListGraphs(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = s.WriteGraph(ctx, "zeta", validated(t, testutil.PassThroughGraph()))
	require.NoError(t, err)
	_, err = s.WriteGraph(ctx, "alpha", validated(t, testutil.ConstantSidePacketGraph()))
	require.NoError(t, err)

	graphs, err := s.ListGraphs(ctx)
	require.NoError(t, err)
	require.Len(t, graphs, 2)
	assert.Equal(t, "alpha", graphs[0].Name)
	assert.Equal(t, "zeta", graphs[1].Name)
}

func TestReadEdges_UnknownGraph(t *testing.T) {
	s := createTestStore(t)

	edges, err := s.ReadEdges(context.Background(), "missing", EdgeInputStream)
	require.NoError(t, err)
	assert.Empty(t, edges)
}
