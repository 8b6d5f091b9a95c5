package store

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"

	"github.com/roach88/graphcfg/internal/graph"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/testutil"
)

// createTestStore opens a fresh catalog in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// validated initializes cfg against the fixture registries.
func validated(t *testing.T, cfg ir.GraphConfig) *graph.ValidatedConfig {
	t.Helper()
	v := graph.New(
		graph.WithTemplates(testutil.NewTemplateRegistry(t)),
		graph.WithContracts(testutil.NewContractProvider(t)),
		graph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err := v.Initialize(cfg); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	return v
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table_info(%s): %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_index_list(?)", table)
	if err != nil {
		t.Fatalf("index_list(%s): %v", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func contains(items []string, s string) bool {
	return slices.Contains(items, s)
}
