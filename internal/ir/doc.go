// Package ir provides the graph configuration data model for graphcfg.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// configuration model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Edge strings are parsed once, by ParseEdgeList, into EdgeRef values
//   - All JSON and YAML tags use snake_case
//   - Canonical JSON (RFC 8785) is the only encoding used for hashing and size
package ir
