package graph

import (
	"fmt"

	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/ir"
)

// NodeKind distinguishes real calculators from the synthetic boundary
// nodes the canonicalizer adds.
type NodeKind int

const (
	KindCalculator NodeKind = iota
	KindGraphInputStream
	KindGraphOutputStream
)

var nodeKindNames = map[NodeKind]string{
	KindCalculator:        "Calculator",
	KindGraphInputStream:  "GraphInputStream",
	KindGraphOutputStream: "GraphOutputStream",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// MarshalText renders the kind by name in JSON output.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NodeRef identifies a node of the canonical graph.
type NodeRef struct {
	Kind  NodeKind `json:"kind"`
	Index int      `json:"index"`
}

func (r NodeRef) String() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.Index)
}

// NodeInfo is one node of the canonical graph with its edges parsed.
type NodeInfo struct {
	Kind              NodeKind     `json:"kind"`
	Index             int          `json:"index"`
	Name              string       `json:"name,omitempty"`
	Calculator        string       `json:"calculator,omitempty"`
	Executor          string       `json:"executor,omitempty"`
	InputStreams      []ir.EdgeRef `json:"input_streams,omitempty"`
	OutputStreams     []ir.EdgeRef `json:"output_streams,omitempty"`
	InputSidePackets  []ir.EdgeRef `json:"input_side_packets,omitempty"`
	OutputSidePackets []ir.EdgeRef `json:"output_side_packets,omitempty"`

	contract  *contract.Contract
	backEdges map[ir.TagIndex]bool
}

// Ref returns the node's identity.
func (n *NodeInfo) Ref() NodeRef {
	return NodeRef{Kind: n.Kind, Index: n.Index}
}

// label names the node in error messages.
func (n *NodeInfo) label() string {
	switch {
	case n.Kind != KindCalculator:
		return n.Ref().String()
	case n.Name != "":
		return fmt.Sprintf("node %d (%s %q)", n.Index, n.Calculator, n.Name)
	default:
		return fmt.Sprintf("node %d (%s)", n.Index, n.Calculator)
	}
}

// port returns the contract port a binding uses, or the zero Port for
// boundary nodes.
func (n *NodeInfo) port(ports func(*contract.Contract) []contract.Port, ti ir.TagIndex) contract.Port {
	if n.contract == nil {
		return contract.Port{}
	}
	p, _ := contract.Lookup(ports(n.contract), ti)
	return p
}

// EdgeInfo describes one edge as seen from one node: an output edge from
// its producer, or an input edge from one consumer.
//
// Upstream is the global index of the producing output edge for inputs,
// and always -1 for outputs and for side packets with no in-graph producer.
type EdgeInfo struct {
	Name       string      `json:"name"`
	Upstream   int         `json:"upstream"`
	ParentNode NodeRef     `json:"parent_node"`
	BackEdge   bool        `json:"back_edge"`
	Port       ir.TagIndex `json:"port"`
}

func inputPorts(c *contract.Contract) []contract.Port            { return c.Inputs }
func outputPorts(c *contract.Contract) []contract.Port           { return c.Outputs }
func inputSidePacketPorts(c *contract.Contract) []contract.Port  { return c.InputSidePackets }
func outputSidePacketPorts(c *contract.Contract) []contract.Port { return c.OutputSidePackets }
