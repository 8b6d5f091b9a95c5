package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/status"
	"github.com/roach88/graphcfg/internal/testutil"
)

func TestValidationRuns_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ids := testutil.NewFixedIDGenerator("run-b", "run-a", "run-c")

	v := validated(t, testutil.PassThroughGraph())
	hash, err := s.WriteGraph(ctx, "passthrough", v)
	require.NoError(t, err)

	ok := NewValidationRun(ids.Generate(), "passthrough", hash, 1, ir.ToolVersion, nil)
	failed := NewValidationRun(ids.Generate(), "broken", "", 1, ir.ToolVersion,
		status.Internalf("graph output stream %q has no producer", "out"))
	later := NewValidationRun(ids.Generate(), "passthrough", hash, 2, ir.ToolVersion, nil)

	for _, run := range []ValidationRun{later, failed, ok} {
		require.NoError(t, s.WriteValidationRun(ctx, run))
	}

	all, err := s.ReadValidationRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	// seq ASC, then id COLLATE BINARY ASC
	assert.Equal(t, []string{"run-a", "run-b", "run-c"}, []string{all[0].ID, all[1].ID, all[2].ID})

	assert.Equal(t, status.Internal, all[0].Code)
	assert.Empty(t, all[0].GraphHash)
	assert.Contains(t, all[0].Message, "has no producer")
	assert.Equal(t, status.OK, all[1].Code)
	assert.Equal(t, hash, all[1].GraphHash)
	assert.Empty(t, all[1].Message)

	mine, err := s.ReadValidationRuns(ctx, "passthrough")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestValidationRuns_DuplicateIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := NewValidationRun("run-1", "g", "", 1, ir.ToolVersion, status.NotFoundf("no calculator"))
	require.NoError(t, s.WriteValidationRun(ctx, run))
	run.Message = "changed"
	require.NoError(t, s.WriteValidationRun(ctx, run))

	runs, err := s.ReadValidationRuns(ctx, "g")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "no calculator", runs[0].Message)
	assert.Equal(t, status.NotFound, runs[0].Code)
}

func TestValidationRuns_UnknownGraphHash(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteValidationRun(context.Background(), NewValidationRun("run-1", "g", "not-stored", 1, ir.ToolVersion, nil))
	assert.Error(t, err, "graph_hash must reference a stored graph")
}

func TestNextSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	require.NoError(t, s.WriteValidationRun(ctx, NewValidationRun("a", "g", "", 7, ir.ToolVersion, nil)))

	seq, err = s.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), seq)
}

func TestUUIDv7Generator(t *testing.T) {
	var gen IDGenerator = UUIDv7Generator{}

	a, b := gen.Generate(), gen.Generate()
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
