package compiler

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/packet"
)

// hclRoot decodes every top-level block an HCL source may hold.
type hclRoot struct {
	Graphs    []*hclGraph    `hcl:"graph,block"`
	Templates []*hclGraph    `hcl:"template,block"`
	Contracts []*hclContract `hcl:"contract,block"`
}

type hclGraph struct {
	Name              string         `hcl:"name,label"`
	Package           string         `hcl:"package,optional"`
	Type              string         `hcl:"type,optional"`
	InputStreams      []string       `hcl:"input_stream,optional"`
	OutputStreams     []string       `hcl:"output_stream,optional"`
	InputSidePackets  []string       `hcl:"input_side_packet,optional"`
	OutputSidePackets []string       `hcl:"output_side_packet,optional"`
	NumThreads        int            `hcl:"num_threads,optional"`
	MaxQueueSize      int            `hcl:"max_queue_size,optional"`
	Executors         []*hclExecutor `hcl:"executor,block"`
	Nodes             []*hclNode     `hcl:"node,block"`
}

type hclNode struct {
	Calculator        string            `hcl:"calculator,label"`
	Name              string            `hcl:"name,optional"`
	InputStreams      []string          `hcl:"input_stream,optional"`
	OutputStreams     []string          `hcl:"output_stream,optional"`
	InputSidePackets  []string          `hcl:"input_side_packet,optional"`
	OutputSidePackets []string          `hcl:"output_side_packet,optional"`
	Executor          string            `hcl:"executor,optional"`
	Options           map[string]string `hcl:"options,optional"`
	InputStreamInfo   []*hclStreamInfo  `hcl:"input_stream_info,block"`
}

type hclStreamInfo struct {
	TagIndex string `hcl:"tag_index"`
	BackEdge bool   `hcl:"back_edge,optional"`
}

type hclExecutor struct {
	Name    string            `hcl:"name,label"`
	Type    string            `hcl:"type,optional"`
	Options map[string]string `hcl:"options,optional"`
}

type hclContract struct {
	Name              string     `hcl:"name,label"`
	Inputs            []*hclPort `hcl:"input_stream,block"`
	Outputs           []*hclPort `hcl:"output_stream,block"`
	InputSidePackets  []*hclPort `hcl:"input_side_packet,block"`
	OutputSidePackets []*hclPort `hcl:"output_side_packet,block"`
}

type hclPort struct {
	Tag      string `hcl:"tag,label"`
	Type     string `hcl:"type,optional"`
	Optional bool   `hcl:"optional,optional"`
	Variadic bool   `hcl:"variadic,optional"`
	BackEdge bool   `hcl:"back_edge,optional"`
}

// CompileHCL compiles an HCL source. Graphs, templates and contracts are
// labelled blocks; nodes are labelled by calculator and ports by tag (use
// an empty label for untagged ports):
//
//	graph "PassThrough" {
//	  input_stream = ["in"]
//	  node "PassThroughCalculator" {
//	    input_stream  = ["in"]
//	    output_stream = ["out"]
//	  }
//	}
func CompileHCL(src []byte, filename string) (*Bundle, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	b := &Bundle{}
	for _, g := range root.Graphs {
		if _, dup := b.Graph(g.Name); dup {
			return nil, &CompileError{File: filename, Field: "graph." + g.Name, Message: "declared twice"}
		}
		b.Graphs = append(b.Graphs, NamedGraph{Name: g.Name, Source: filename, Config: g.config()})
	}
	for _, t := range root.Templates {
		cfg := t.config()
		if cfg.Type == "" {
			cfg.Type = t.Name
		}
		b.Templates = append(b.Templates, cfg)
	}
	for _, hc := range root.Contracts {
		c := hc.contract()
		if err := c.Validate(); err != nil {
			return nil, &CompileError{File: filename, Field: "contract." + hc.Name, Message: err.Error()}
		}
		b.Contracts = append(b.Contracts, c)
	}
	return b, nil
}

func (g *hclGraph) config() ir.GraphConfig {
	cfg := ir.GraphConfig{
		Package:           g.Package,
		Type:              g.Type,
		InputStreams:      g.InputStreams,
		OutputStreams:     g.OutputStreams,
		InputSidePackets:  g.InputSidePackets,
		OutputSidePackets: g.OutputSidePackets,
		NumThreads:        g.NumThreads,
		MaxQueueSize:      g.MaxQueueSize,
	}
	for _, e := range g.Executors {
		cfg.Executors = append(cfg.Executors, ir.Executor{Name: e.Name, Type: e.Type, Options: e.Options})
	}
	for _, n := range g.Nodes {
		node := ir.Node{
			Name:              n.Name,
			Calculator:        n.Calculator,
			InputStreams:      n.InputStreams,
			OutputStreams:     n.OutputStreams,
			InputSidePackets:  n.InputSidePackets,
			OutputSidePackets: n.OutputSidePackets,
			Executor:          n.Executor,
			Options:           n.Options,
		}
		for _, info := range n.InputStreamInfo {
			node.InputStreamInfo = append(node.InputStreamInfo, ir.InputStreamInfo{TagIndex: info.TagIndex, BackEdge: info.BackEdge})
		}
		cfg.Nodes = append(cfg.Nodes, node)
	}
	return cfg
}

func (hc *hclContract) contract() contract.Contract {
	ports := func(in []*hclPort) []contract.Port {
		var out []contract.Port
		for _, p := range in {
			out = append(out, contract.Port{Tag: p.Tag, Type: p.Type, Optional: p.Optional, Variadic: p.Variadic, BackEdge: p.BackEdge})
		}
		return out
	}
	return contract.Contract{
		Name:              hc.Name,
		Inputs:            ports(hc.Inputs),
		Outputs:           ports(hc.Outputs),
		InputSidePackets:  ports(hc.InputSidePackets),
		OutputSidePackets: ports(hc.OutputSidePackets),
	}
}

// ParseHCLSidePackets reads side packets from top-level HCL attributes:
//
//	model_complexity = 1
//	allowed_labels   = ["Shoe", "Chair"]
func ParseHCLSidePackets(src []byte, filename string) (packet.SidePackets, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	out := make(packet.SidePackets, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diagError(filename, diags)
		}
		p, err := packet.FromCty(v)
		if err != nil {
			return nil, fmt.Errorf("side packet %q: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}

// diagError reports the first error diagnostic with its source range.
func diagError(filename string, diags hcl.Diagnostics) error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		e := &CompileError{File: filename, Field: d.Summary, Message: d.Detail}
		if d.Subject != nil {
			e.File = d.Subject.Filename
			e.Line = d.Subject.Start.Line
			e.Column = d.Subject.Start.Column
		}
		return e
	}
	return diags
}
