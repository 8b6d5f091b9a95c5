// Package compiler turns graph, template and contract sources into IR.
//
// Three source formats are accepted: CUE, YAML and HCL. Each file may
// declare any mix of top-level graph, template and contract entries; the
// compiled entries are collected into a Bundle which can then be checked
// with ValidateBundle and AnalyzeTemplateCycles, and registered with the
// registries the validator reads from.
package compiler

import (
	"fmt"

	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/subgraph"
)

// NamedGraph is a top-level graph entry together with where it came from.
type NamedGraph struct {
	Name   string         `json:"name"`
	Source string         `json:"source,omitempty"`
	Config ir.GraphConfig `json:"config"`
}

// Bundle is everything compiled from one or more source files.
type Bundle struct {
	Graphs    []NamedGraph        `json:"graphs,omitempty"`
	Templates []ir.GraphConfig    `json:"templates,omitempty"`
	Contracts []contract.Contract `json:"contracts,omitempty"`
}

// Graph returns the graph entry called name.
func (b *Bundle) Graph(name string) (ir.GraphConfig, bool) {
	for _, g := range b.Graphs {
		if g.Name == name {
			return g.Config, true
		}
	}
	return ir.GraphConfig{}, false
}

// GraphNames lists graph entries in declaration order.
func (b *Bundle) GraphNames() []string {
	names := make([]string, len(b.Graphs))
	for i, g := range b.Graphs {
		names[i] = g.Name
	}
	return names
}

// Merge appends other's entries. Graph names must stay unique across files;
// duplicate templates and contracts are reported by Register.
func (b *Bundle) Merge(other *Bundle) error {
	for _, g := range other.Graphs {
		if _, dup := b.Graph(g.Name); dup {
			return fmt.Errorf("graph %q declared in %s is already declared", g.Name, g.Source)
		}
		b.Graphs = append(b.Graphs, g)
	}
	b.Templates = append(b.Templates, other.Templates...)
	b.Contracts = append(b.Contracts, other.Contracts...)
	return nil
}

// Register adds the bundle's templates and contracts to the registries.
func (b *Bundle) Register(templates *subgraph.Registry, contracts *contract.Registry) error {
	for _, c := range b.Contracts {
		if err := contracts.Register(c); err != nil {
			return err
		}
	}
	for _, t := range b.Templates {
		if err := templates.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// CompileError is a source error with its position, when one is known.
type CompileError struct {
	File    string
	Line    int
	Column  int
	Field   string
	Message string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Field, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
