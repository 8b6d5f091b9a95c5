// Package graph validates and canonicalizes graph configurations.
//
// ValidatedConfig.Initialize runs a fixed pipeline over a declarative
// config: subgraph expansion, canonicalization, edge indexing, type
// resolution and side-packet requirement derivation. Either every phase
// succeeds and an immutable snapshot is published, or the instance stays
// uninitialized. After a successful Initialize all queries are read-only
// and safe for concurrent use.
//
// Node order in the canonical graph is calculators (in declaration order
// after expansion), then one GraphInputStream node per graph input stream,
// then one GraphOutputStream node per graph output stream. Output-stream
// indices are assigned to graph inputs first, then to calculator outputs,
// so a graph's external inputs always occupy the lowest indices.
package graph
