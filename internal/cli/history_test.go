package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphcfg/internal/status"
)

func seedCatalog(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "catalog.db")
	_, _, err := execute(t, "validate", pipelineFile, "--db", db)
	require.NoError(t, err)
	_, _, err = execute(t, "validate", filepath.Join(invalidDir, "unknown.yaml"), "--db", db)
	require.Error(t, err)
	return db
}

func TestHistoryText(t *testing.T) {
	db := seedCatalog(t)

	out, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)

	assert.Regexp(t, `SEQ\s+GRAPH\s+CODE\s+HASH\s+MESSAGE`, out)
	assert.Regexp(t, `1\s+PassThrough\s+OK\s+[0-9a-f]{12}\s+-`, out)
	assert.Regexp(t, `2\s+Limited\s+OK`, out)
	assert.Regexp(t, `3\s+Unknown\s+NOT_FOUND\s+-\s+.*MissingCalculator`, out)
}

func TestHistoryJSONFiltered(t *testing.T) {
	db := seedCatalog(t)

	out, _, err := execute(t, "--format", "json", "history", "--db", db, "--graph", "Unknown")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, status.NotFound, resp.Data.Runs[0].Code)
	assert.Equal(t, int64(3), resp.Data.Runs[0].Seq)
}

func TestHistoryEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	_, _, err := execute(t, "canonicalize", pipelineFile, "--graph", "PassThrough", "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No validation runs recorded.")
}

func TestHistoryRequiresDB(t *testing.T) {
	_, _, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestHistoryMissingCatalog(t *testing.T) {
	out, _, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "catalog not found")
}
