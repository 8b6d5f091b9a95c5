package ir

import (
	"maps"
	"slices"
)

// GraphConfig is a declarative computation graph.
//
// Nodes reference either a calculator (a processing unit described by a
// node contract) or a registered subgraph template. A GraphConfig with a
// non-empty Type is itself usable as a template.
type GraphConfig struct {
	Package           string     `json:"package,omitempty" yaml:"package,omitempty"`
	Type              string     `json:"type,omitempty" yaml:"type,omitempty"`
	Nodes             []Node     `json:"node,omitempty" yaml:"node,omitempty"`
	InputStreams      []string   `json:"input_stream,omitempty" yaml:"input_stream,omitempty"`
	OutputStreams     []string   `json:"output_stream,omitempty" yaml:"output_stream,omitempty"`
	InputSidePackets  []string   `json:"input_side_packet,omitempty" yaml:"input_side_packet,omitempty"`
	OutputSidePackets []string   `json:"output_side_packet,omitempty" yaml:"output_side_packet,omitempty"`
	Executors         []Executor `json:"executor,omitempty" yaml:"executor,omitempty"`
	NumThreads        int        `json:"num_threads,omitempty" yaml:"num_threads,omitempty"`
	MaxQueueSize      int        `json:"max_queue_size,omitempty" yaml:"max_queue_size,omitempty"`

	// Subgraphs records the template references expansion replaced. It is
	// filled in by the expander and never read from sources.
	Subgraphs []SubgraphInstance `json:"subgraph_instance,omitempty" yaml:"-"`
}

// SubgraphInstance is a calling node as it was written, together with the
// prefix its inlined internal names received.
type SubgraphInstance struct {
	Prefix string `json:"prefix"`
	Node   Node   `json:"node"`
}

// Node is one entry of a graph's node list.
type Node struct {
	Name              string            `json:"name,omitempty" yaml:"name,omitempty"`
	Calculator        string            `json:"calculator" yaml:"calculator"`
	InputStreams      []string          `json:"input_stream,omitempty" yaml:"input_stream,omitempty"`
	OutputStreams     []string          `json:"output_stream,omitempty" yaml:"output_stream,omitempty"`
	InputSidePackets  []string          `json:"input_side_packet,omitempty" yaml:"input_side_packet,omitempty"`
	OutputSidePackets []string          `json:"output_side_packet,omitempty" yaml:"output_side_packet,omitempty"`
	InputStreamInfo   []InputStreamInfo `json:"input_stream_info,omitempty" yaml:"input_stream_info,omitempty"`
	Executor          string            `json:"executor,omitempty" yaml:"executor,omitempty"`
	Options           map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// InputStreamInfo annotates one input port of a node.
// TagIndex uses the "TAG", "TAG:index" or ":index" form.
type InputStreamInfo struct {
	TagIndex string `json:"tag_index" yaml:"tag_index"`
	BackEdge bool   `json:"back_edge,omitempty" yaml:"back_edge,omitempty"`
}

// Executor declares an execution resource nodes can be assigned to.
// The executor with an empty Name is the default executor.
type Executor struct {
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Type    string            `json:"type,omitempty" yaml:"type,omitempty"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// IsZero reports whether the config declares nothing at all.
func (c GraphConfig) IsZero() bool {
	return c.Package == "" && c.Type == "" && len(c.Nodes) == 0 &&
		len(c.InputStreams) == 0 && len(c.OutputStreams) == 0 &&
		len(c.InputSidePackets) == 0 && len(c.OutputSidePackets) == 0 &&
		len(c.Executors) == 0 && c.NumThreads == 0 && c.MaxQueueSize == 0 &&
		len(c.Subgraphs) == 0
}

// Clone returns a deep copy of the config.
func (c GraphConfig) Clone() GraphConfig {
	out := c
	out.InputStreams = slices.Clone(c.InputStreams)
	out.OutputStreams = slices.Clone(c.OutputStreams)
	out.InputSidePackets = slices.Clone(c.InputSidePackets)
	out.OutputSidePackets = slices.Clone(c.OutputSidePackets)
	if c.Nodes != nil {
		out.Nodes = make([]Node, len(c.Nodes))
		for i, n := range c.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if c.Executors != nil {
		out.Executors = make([]Executor, len(c.Executors))
		for i, e := range c.Executors {
			e.Options = maps.Clone(e.Options)
			out.Executors[i] = e
		}
	}
	if c.Subgraphs != nil {
		out.Subgraphs = make([]SubgraphInstance, len(c.Subgraphs))
		for i, sg := range c.Subgraphs {
			out.Subgraphs[i] = SubgraphInstance{Prefix: sg.Prefix, Node: sg.Node.Clone()}
		}
	}
	return out
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.InputStreams = slices.Clone(n.InputStreams)
	out.OutputStreams = slices.Clone(n.OutputStreams)
	out.InputSidePackets = slices.Clone(n.InputSidePackets)
	out.OutputSidePackets = slices.Clone(n.OutputSidePackets)
	out.InputStreamInfo = slices.Clone(n.InputStreamInfo)
	out.Options = maps.Clone(n.Options)
	return out
}

// Size is the length in bytes of the config's canonical encoding, or 0 for
// a config that declares nothing.
func (c GraphConfig) Size() int {
	if c.IsZero() {
		return 0
	}
	data, err := MarshalCanonical(c.Object())
	if err != nil {
		return 0
	}
	return len(data)
}
