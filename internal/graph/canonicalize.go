package graph

import (
	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/status"
)

// canonical is the canonicalizer's output: the expanded config plus the
// node table with every edge string parsed exactly once.
type canonical struct {
	config            ir.GraphConfig
	nodes             []NodeInfo
	inputSidePackets  []ir.EdgeRef
	outputSidePackets []ir.EdgeRef
}

// canonicalize normalizes a flat (fully expanded) config.
//
// It attaches an empty default executor when none is declared, resolves
// every calculator to its contract, checks port bindings against the
// contract, and appends the synthetic boundary nodes.
func canonicalize(flat ir.GraphConfig, contracts contract.Provider) (*canonical, error) {
	cfg := flat.Clone()
	if len(cfg.Executors) == 0 {
		cfg.Executors = append(cfg.Executors, ir.Executor{})
	}
	if err := checkExecutors(cfg); err != nil {
		return nil, err
	}

	c := &canonical{config: cfg}
	names := make(map[string]int)

	for i, n := range cfg.Nodes {
		info, err := calculatorNode(i, n, contracts)
		if err != nil {
			return nil, err
		}
		if n.Name != "" {
			if prev, dup := names[n.Name]; dup {
				return nil, status.Internalf("node %d: name %q already used by node %d", i, n.Name, prev)
			}
			names[n.Name] = i
		}
		c.nodes = append(c.nodes, info)
	}

	graphInputs, err := parseGraphList("input_stream", cfg.InputStreams)
	if err != nil {
		return nil, err
	}
	for _, ref := range graphInputs {
		c.nodes = append(c.nodes, NodeInfo{
			Kind:          KindGraphInputStream,
			Index:         len(c.nodes),
			Name:          ref.Name,
			OutputStreams: []ir.EdgeRef{ref},
		})
	}

	graphOutputs, err := parseGraphList("output_stream", cfg.OutputStreams)
	if err != nil {
		return nil, err
	}
	for _, ref := range graphOutputs {
		c.nodes = append(c.nodes, NodeInfo{
			Kind:         KindGraphOutputStream,
			Index:        len(c.nodes),
			Name:         ref.Name,
			InputStreams: []ir.EdgeRef{ref},
		})
	}

	if c.inputSidePackets, err = parseGraphList("input_side_packet", cfg.InputSidePackets); err != nil {
		return nil, err
	}
	if c.outputSidePackets, err = parseGraphList("output_side_packet", cfg.OutputSidePackets); err != nil {
		return nil, err
	}
	return c, nil
}

// parseGraphList parses a graph-level port list. Each name may appear
// only once.
func parseGraphList(kind string, items []string) ([]ir.EdgeRef, error) {
	refs, err := ir.ParseEdgeList(items)
	if err != nil {
		return nil, status.Internalf("graph %s: %v", kind, err)
	}
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.Name] {
			return nil, status.Internalf("graph %s: %q declared more than once", kind, ref.Name)
		}
		seen[ref.Name] = true
	}
	return refs, nil
}

func calculatorNode(i int, n ir.Node, contracts contract.Provider) (NodeInfo, error) {
	info := NodeInfo{
		Kind:       KindCalculator,
		Index:      i,
		Name:       n.Name,
		Calculator: n.Calculator,
		Executor:   n.Executor,
	}
	if n.Calculator == "" {
		return NodeInfo{}, status.Internalf("node %d: calculator is empty", i)
	}

	c, ok := contracts.Contract(n.Calculator)
	if !ok {
		return NodeInfo{}, status.NotFoundf("%s: no calculator or subgraph registered as %q", info.label(), n.Calculator)
	}
	info.contract = c

	lists := []struct {
		kind  string
		items []string
		ports []contract.Port
		dst   *[]ir.EdgeRef
	}{
		{"input_stream", n.InputStreams, c.Inputs, &info.InputStreams},
		{"output_stream", n.OutputStreams, c.Outputs, &info.OutputStreams},
		{"input_side_packet", n.InputSidePackets, c.InputSidePackets, &info.InputSidePackets},
		{"output_side_packet", n.OutputSidePackets, c.OutputSidePackets, &info.OutputSidePackets},
	}
	for _, l := range lists {
		refs, err := ir.ParseEdgeList(l.items)
		if err != nil {
			return NodeInfo{}, status.Internalf("%s: %s: %v", info.label(), l.kind, err)
		}
		if err := checkBindings(&info, l.kind, refs, l.ports); err != nil {
			return NodeInfo{}, err
		}
		*l.dst = refs
	}

	for _, si := range n.InputStreamInfo {
		ti, err := ir.ParseTagIndex(si.TagIndex)
		if err != nil {
			return NodeInfo{}, status.Internalf("%s: input_stream_info: %v", info.label(), err)
		}
		if !bindsPort(info.InputStreams, ti) {
			return NodeInfo{}, status.Internalf("%s: input_stream_info names unbound input %s", info.label(), ti)
		}
		if si.BackEdge {
			if info.backEdges == nil {
				info.backEdges = make(map[ir.TagIndex]bool)
			}
			info.backEdges[ti] = true
		}
	}
	return info, nil
}

// checkBindings verifies every binding hits a declared port and every
// required port is bound. Outputs may always be left unbound.
func checkBindings(info *NodeInfo, kind string, refs []ir.EdgeRef, ports []contract.Port) error {
	bound := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if _, ok := contract.Lookup(ports, ref.TagIndex()); !ok {
			return status.Internalf("%s: %s %s is not a port of %s", info.label(), kind, ref.TagIndex(), info.Calculator)
		}
		bound[ref.Tag] = true
	}
	if kind == "output_stream" || kind == "output_side_packet" {
		return nil
	}
	for _, tag := range contract.RequiredTags(ports) {
		if !bound[tag] {
			return status.Internalf("%s: required %s %s is not bound", info.label(), kind, ir.TagIndex{Tag: tag})
		}
	}
	return nil
}

func bindsPort(refs []ir.EdgeRef, ti ir.TagIndex) bool {
	for _, ref := range refs {
		if ref.TagIndex() == ti {
			return true
		}
	}
	return false
}
