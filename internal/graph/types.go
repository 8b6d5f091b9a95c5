package graph

import (
	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/status"
)

// edgeTypes maps edge names to registered type names. A present key with
// an empty value is an edge whose type no contract pins down.
type edgeTypes map[string]string

// merge records typ for name, rejecting a second, different concrete type.
func (t edgeTypes) merge(kind, name, typ string, from NodeRef) error {
	prev, seen := t[name]
	switch {
	case !seen || prev == "":
		t[name] = typ
	case typ != "" && typ != prev:
		return status.Internalf("%s %q: %s expects type %q but the edge already carries %q", kind, name, from, typ, prev)
	}
	return nil
}

// resolveTypes derives each edge's type from contract metadata: the
// producer's port type, else the first concrete consumer port type.
func resolveTypes(c *canonical, idx *edgeIndex) (streams, packets edgeTypes, err error) {
	streams = make(edgeTypes, len(idx.outputStreams))
	packets = make(edgeTypes, len(idx.outputSidePackets)+len(idx.inputSidePackets))

	node := func(ref NodeRef) *NodeInfo { return &c.nodes[ref.Index] }

	passes := []struct {
		kind  string
		types edgeTypes
		infos []EdgeInfo
		ports func(*contract.Contract) []contract.Port
	}{
		{"stream", streams, idx.outputStreams, outputPorts},
		{"stream", streams, idx.inputStreams, inputPorts},
		{"side packet", packets, idx.outputSidePackets, outputSidePacketPorts},
		{"side packet", packets, idx.inputSidePackets, inputSidePacketPorts},
	}
	for _, p := range passes {
		for _, info := range p.infos {
			typ := node(info.ParentNode).port(p.ports, info.Port).Type
			if err := p.types.merge(p.kind, info.Name, typ, info.ParentNode); err != nil {
				return nil, nil, err
			}
		}
	}

	for _, ref := range c.inputSidePackets {
		if _, ok := packets[ref.Name]; !ok {
			packets[ref.Name] = ""
		}
	}
	return streams, packets, nil
}

// lookup implements the three-outcome type query.
func (t edgeTypes) lookup(kind, name string) (string, error) {
	typ, ok := t[name]
	if !ok {
		return "", status.InvalidArgumentf("%s %q is not part of the graph", kind, name)
	}
	if typ == "" {
		return "", status.Unknownf("%s %q has no registered type", kind, name)
	}
	return typ, nil
}
