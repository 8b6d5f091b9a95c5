package graph

import (
	"github.com/roach88/graphcfg/internal/status"
)

// edgeIndex holds the four edge tables and the name lookups built over
// them. Table positions are the global edge indices.
type edgeIndex struct {
	inputStreams      []EdgeInfo
	outputStreams     []EdgeInfo
	inputSidePackets  []EdgeInfo
	outputSidePackets []EdgeInfo

	streamByName map[string]int
	packetByName map[string]int
}

// buildIndex assigns global indices and resolves producers.
//
// Output streams are indexed graph inputs first, then calculator outputs
// in node order. Input infos are recorded for calculators only; graph
// output nodes observe a stream without consuming a port.
func buildIndex(c *canonical) (*edgeIndex, error) {
	idx := &edgeIndex{
		streamByName: make(map[string]int),
		packetByName: make(map[string]int),
	}

	producers := make([]*NodeInfo, 0, len(c.nodes))
	for i := range c.nodes {
		if c.nodes[i].Kind == KindGraphInputStream {
			producers = append(producers, &c.nodes[i])
		}
	}
	for i := range c.nodes {
		if c.nodes[i].Kind == KindCalculator {
			producers = append(producers, &c.nodes[i])
		}
	}

	for _, n := range producers {
		for _, ref := range n.OutputStreams {
			if prev, dup := idx.streamByName[ref.Name]; dup {
				return nil, status.Internalf("%s: stream %q is already produced by %s",
					n.label(), ref.Name, idx.outputStreams[prev].ParentNode)
			}
			idx.streamByName[ref.Name] = len(idx.outputStreams)
			idx.outputStreams = append(idx.outputStreams, EdgeInfo{
				Name:       ref.Name,
				Upstream:   -1,
				ParentNode: n.Ref(),
				Port:       ref.TagIndex(),
			})
		}
		for _, ref := range n.OutputSidePackets {
			if prev, dup := idx.packetByName[ref.Name]; dup {
				return nil, status.Internalf("%s: side packet %q is already produced by %s",
					n.label(), ref.Name, idx.outputSidePackets[prev].ParentNode)
			}
			idx.packetByName[ref.Name] = len(idx.outputSidePackets)
			idx.outputSidePackets = append(idx.outputSidePackets, EdgeInfo{
				Name:       ref.Name,
				Upstream:   -1,
				ParentNode: n.Ref(),
				Port:       ref.TagIndex(),
			})
		}
	}

	for i := range c.nodes {
		n := &c.nodes[i]
		switch n.Kind {
		case KindCalculator:
			if err := idx.addInputs(n); err != nil {
				return nil, err
			}
		case KindGraphOutputStream:
			if _, ok := idx.streamByName[n.Name]; !ok {
				return nil, status.Internalf("graph output stream %q has no producer", n.Name)
			}
		}
	}

	for _, ref := range c.outputSidePackets {
		if _, ok := idx.packetByName[ref.Name]; !ok {
			return nil, status.Internalf("graph output side packet %q has no producer", ref.Name)
		}
	}
	return idx, nil
}

// addInputs records a calculator's input stream and input side packet
// edges. A stream produced by a calculator at the same or a later index is
// a back edge and must be permitted by input_stream_info or the contract.
func (idx *edgeIndex) addInputs(n *NodeInfo) error {
	for _, ref := range n.InputStreams {
		up, ok := idx.streamByName[ref.Name]
		if !ok {
			return status.Internalf("%s: input stream %q has no producer", n.label(), ref.Name)
		}
		producer := idx.outputStreams[up].ParentNode
		backEdge := producer.Kind == KindCalculator && producer.Index >= n.Index
		if backEdge && !n.backEdges[ref.TagIndex()] && !n.port(inputPorts, ref.TagIndex()).BackEdge {
			return status.Internalf("%s: input %s reads %q from %s, which is not earlier in the graph; declare it as a back edge",
				n.label(), ref.TagIndex(), ref.Name, producer)
		}
		idx.inputStreams = append(idx.inputStreams, EdgeInfo{
			Name:       ref.Name,
			Upstream:   up,
			ParentNode: n.Ref(),
			BackEdge:   backEdge,
			Port:       ref.TagIndex(),
		})
	}

	for _, ref := range n.InputSidePackets {
		up, ok := idx.packetByName[ref.Name]
		if !ok {
			up = -1
		}
		idx.inputSidePackets = append(idx.inputSidePackets, EdgeInfo{
			Name:       ref.Name,
			Upstream:   up,
			ParentNode: n.Ref(),
			Port:       ref.TagIndex(),
		})
	}
	return nil
}
