// Package contract describes the ports a calculator accepts.
//
// A Contract lists, per port kind, which tags a node may bind, whether each
// is optional, the registered value type it carries (empty when the
// calculator accepts any type), and whether an input may be fed by a back
// edge. The validator uses contracts to check port bindings and to resolve
// edge types.
package contract

import (
	"fmt"
	"slices"

	"github.com/roach88/graphcfg/internal/ir"
)

// AnyTag is a port tag that matches every tag, including the empty one.
const AnyTag = "*"

// Port is one declared tag of a calculator.
type Port struct {
	Tag      string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
	Variadic bool   `json:"variadic,omitempty" yaml:"variadic,omitempty"`
	BackEdge bool   `json:"back_edge,omitempty" yaml:"back_edge,omitempty"`
}

// Contract is the port declaration of one calculator.
type Contract struct {
	Name              string `json:"name" yaml:"name"`
	Inputs            []Port `json:"input_stream,omitempty" yaml:"input_stream,omitempty"`
	Outputs           []Port `json:"output_stream,omitempty" yaml:"output_stream,omitempty"`
	InputSidePackets  []Port `json:"input_side_packet,omitempty" yaml:"input_side_packet,omitempty"`
	OutputSidePackets []Port `json:"output_side_packet,omitempty" yaml:"output_side_packet,omitempty"`
}

// Provider resolves calculator names to contracts.
type Provider interface {
	Contract(name string) (*Contract, bool)
}

// Lookup finds the port a binding at ti refers to.
// A non-variadic port only accepts index 0; a higher index falls through to
// an AnyTag port when the contract declares one.
func Lookup(ports []Port, ti ir.TagIndex) (Port, bool) {
	var wildcard *Port
	for i := range ports {
		p := ports[i]
		if p.Tag == AnyTag {
			wildcard = &ports[i]
			continue
		}
		if p.Tag != ti.Tag {
			continue
		}
		if ti.Index > 0 && !p.Variadic {
			continue
		}
		return p, true
	}
	if wildcard != nil {
		return *wildcard, true
	}
	return Port{}, false
}

// Validate checks that no tag is declared twice within a port kind.
func (c *Contract) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("contract name is empty")
	}
	kinds := []struct {
		name  string
		ports []Port
	}{
		{"input_stream", c.Inputs},
		{"output_stream", c.Outputs},
		{"input_side_packet", c.InputSidePackets},
		{"output_side_packet", c.OutputSidePackets},
	}
	for _, k := range kinds {
		var tags []string
		for _, p := range k.ports {
			if slices.Contains(tags, p.Tag) {
				return fmt.Errorf("contract %s: %s tag %q declared twice", c.Name, k.name, p.Tag)
			}
			tags = append(tags, p.Tag)
		}
	}
	return nil
}

// RequiredTags returns the non-optional, non-wildcard tags of ports.
func RequiredTags(ports []Port) []string {
	var tags []string
	for _, p := range ports {
		if !p.Optional && p.Tag != AnyTag && !p.Variadic {
			tags = append(tags, p.Tag)
		}
	}
	return tags
}
