package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/graphcfg/internal/status"
)

// ValidationRun records one attempt to validate a named graph.
// GraphHash is empty when validation failed before canonicalization
// finished; Code is status.OK for accepted graphs.
type ValidationRun struct {
	ID          string      `json:"id"`
	GraphName   string      `json:"graph_name"`
	GraphHash   string      `json:"graph_hash,omitempty"`
	Seq         int64       `json:"seq"`
	Code        status.Code `json:"code"`
	Message     string      `json:"message,omitempty"`
	ToolVersion string      `json:"tool_version"`
}

// NewValidationRun builds the run record for a validation outcome.
// err may be nil.
func NewValidationRun(id, graphName, hash string, seq int64, toolVersion string, err error) ValidationRun {
	run := ValidationRun{
		ID:          id,
		GraphName:   graphName,
		GraphHash:   hash,
		Seq:         seq,
		Code:        status.CodeOf(err),
		ToolVersion: toolVersion,
	}
	if err != nil {
		run.Message = err.Error()
	}
	return run
}

// WriteValidationRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING - duplicate IDs are silently ignored.
// A non-empty GraphHash must reference a stored graph.
func (s *Store) WriteValidationRun(ctx context.Context, run ValidationRun) error {
	var hash sql.NullString
	if run.GraphHash != "" {
		hash = sql.NullString{String: run.GraphHash, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO validation_runs
		(id, graph_name, graph_hash, seq, code, message, tool_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.GraphName, hash, run.Seq, string(run.Code), run.Message, run.ToolVersion)
	if err != nil {
		return fmt.Errorf("write validation run: %w", err)
	}
	return nil
}

// ReadValidationRuns returns the runs for graphName, or every run when
// graphName is empty, ordered by seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadValidationRuns(ctx context.Context, graphName string) ([]ValidationRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, graph_name, graph_hash, seq, code, message, tool_version
		FROM validation_runs
		WHERE ? = '' OR graph_name = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, graphName, graphName)
	if err != nil {
		return nil, fmt.Errorf("query validation runs: %w", err)
	}
	defer rows.Close()

	runs := []ValidationRun{}
	for rows.Next() {
		var (
			run  ValidationRun
			hash sql.NullString
			code string
		)
		if err := rows.Scan(&run.ID, &run.GraphName, &hash, &run.Seq, &code, &run.Message, &run.ToolVersion); err != nil {
			return nil, fmt.Errorf("scan validation run: %w", err)
		}
		run.GraphHash = hash.String
		run.Code = status.Code(code)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation runs: %w", err)
	}
	return runs, nil
}

// NextSeq returns one past the highest recorded run seq, starting at 1.
func (s *Store) NextSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM validation_runs`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}
