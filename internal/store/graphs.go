package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/graphcfg/internal/graph"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/status"
)

// Edge table kinds as stored in edges.kind.
const (
	EdgeInputStream      = "input_stream"
	EdgeOutputStream     = "output_stream"
	EdgeInputSidePacket  = "input_side_packet"
	EdgeOutputSidePacket = "output_side_packet"
)

// Snapshot is the read side of a validated graph that the catalog stores.
// *graph.ValidatedConfig satisfies it.
type Snapshot interface {
	Config() ir.GraphConfig
	Hash() string
	Nodes() []graph.NodeInfo
	InputStreamInfos() []graph.EdgeInfo
	OutputStreamInfos() []graph.EdgeInfo
	InputSidePacketInfos() []graph.EdgeInfo
	OutputSidePacketInfos() []graph.EdgeInfo
}

// StoredGraph is one row of the graphs table.
type StoredGraph struct {
	Hash          string `json:"hash"`
	Name          string `json:"name"`
	Canonical     string `json:"canonical"`
	Size          int    `json:"size"`
	NodeCount     int    `json:"node_count"`
	SchemaVersion string `json:"schema_version"`
}

// WriteGraph stores the canonical form and edge tables of an initialized
// snapshot under name and returns its hash. Writing a graph whose hash is
// already stored changes nothing.
func (s *Store) WriteGraph(ctx context.Context, name string, snap Snapshot) (string, error) {
	hash := snap.Hash()
	if hash == "" {
		return "", status.InvalidArgumentf("write graph %q: snapshot is not initialized", name)
	}
	cfg := snap.Config()
	canonical, err := ir.MarshalCanonical(cfg.Object())
	if err != nil {
		return "", fmt.Errorf("write graph: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write graph: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO graphs (hash, name, canonical, size, node_count, schema_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, name, string(canonical), len(canonical), len(snap.Nodes()), ir.SchemaVersion)
	if err != nil {
		return "", fmt.Errorf("write graph: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return "", fmt.Errorf("write graph: rows affected: %w", err)
	} else if n == 0 {
		return hash, nil
	}

	tables := []struct {
		kind  string
		infos []graph.EdgeInfo
	}{
		{EdgeInputStream, snap.InputStreamInfos()},
		{EdgeOutputStream, snap.OutputStreamInfos()},
		{EdgeInputSidePacket, snap.InputSidePacketInfos()},
		{EdgeOutputSidePacket, snap.OutputSidePacketInfos()},
	}
	for _, table := range tables {
		for i, e := range table.infos {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO edges
				(graph_hash, kind, idx, name, upstream, parent_kind, parent_index, back_edge, tag, tag_index)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, hash, table.kind, i, e.Name, e.Upstream, e.ParentNode.Kind.String(), e.ParentNode.Index,
				e.BackEdge, e.Port.Tag, e.Port.Index)
			if err != nil {
				return "", fmt.Errorf("write graph: %s edge %d: %w", table.kind, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write graph: commit: %w", err)
	}
	return hash, nil
}

// ReadGraph returns the stored graph with the given hash.
func (s *Store) ReadGraph(ctx context.Context, hash string) (StoredGraph, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, name, canonical, size, node_count, schema_version
		FROM graphs
		WHERE hash = ?
	`, hash)
	g, err := scanGraph(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredGraph{}, status.NotFoundf("graph %s is not stored", hash)
	}
	return g, err
}

// ListGraphs returns every stored graph ordered by name, then hash.
// Returns an empty slice (not nil) when the catalog is empty.
func (s *Store) ListGraphs(ctx context.Context) ([]StoredGraph, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, name, canonical, size, node_count, schema_version
		FROM graphs
		ORDER BY name ASC, hash COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query graphs: %w", err)
	}
	defer rows.Close()

	graphs := []StoredGraph{}
	for rows.Next() {
		g, err := scanGraph(rows)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graphs: %w", err)
	}
	return graphs, nil
}

// ReadEdges returns one edge table of a stored graph in index order.
func (s *Store) ReadEdges(ctx context.Context, hash, kind string) ([]graph.EdgeInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, upstream, parent_kind, parent_index, back_edge, tag, tag_index
		FROM edges
		WHERE graph_hash = ? AND kind = ?
		ORDER BY idx ASC
	`, hash, kind)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	edges := []graph.EdgeInfo{}
	for rows.Next() {
		var (
			e          graph.EdgeInfo
			parentKind string
		)
		if err := rows.Scan(&e.Name, &e.Upstream, &parentKind, &e.ParentNode.Index, &e.BackEdge, &e.Port.Tag, &e.Port.Index); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		kind, err := parseNodeKind(parentKind)
		if err != nil {
			return nil, err
		}
		e.ParentNode.Kind = kind
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGraph(row rowScanner) (StoredGraph, error) {
	var g StoredGraph
	if err := row.Scan(&g.Hash, &g.Name, &g.Canonical, &g.Size, &g.NodeCount, &g.SchemaVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, fmt.Errorf("scan graph: %w", err)
	}
	return g, nil
}

func parseNodeKind(s string) (graph.NodeKind, error) {
	for _, k := range []graph.NodeKind{graph.KindCalculator, graph.KindGraphInputStream, graph.KindGraphOutputStream} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}
