package graph

import (
	"github.com/roach88/graphcfg/internal/packet"
	"github.com/roach88/graphcfg/internal/status"
)

// SidePacketRequirement describes one side packet the graph consumes.
// External packets must come from the caller; a non-optional external
// packet must be present in the map handed to ValidateRequiredSidePackets.
type SidePacketRequirement struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Optional bool   `json:"optional"`
	External bool   `json:"external"`
}

// deriveRequirements walks the input side packet table in order. A side
// packet is optional only when every consuming port is optional.
func deriveRequirements(c *canonical, idx *edgeIndex, packets edgeTypes) []SidePacketRequirement {
	var reqs []SidePacketRequirement
	pos := make(map[string]int)

	for _, info := range idx.inputSidePackets {
		optional := c.nodes[info.ParentNode.Index].port(inputSidePacketPorts, info.Port).Optional
		if i, seen := pos[info.Name]; seen {
			reqs[i].Optional = reqs[i].Optional && optional
			continue
		}
		pos[info.Name] = len(reqs)
		reqs = append(reqs, SidePacketRequirement{
			Name:     info.Name,
			Type:     packets[info.Name],
			Optional: optional,
			External: info.Upstream == -1,
		})
	}
	return reqs
}

// validateSidePackets checks supplied packets against the requirements,
// in order, and reports the first violation.
func validateSidePackets(reqs []SidePacketRequirement, supplied packet.SidePackets) error {
	for _, req := range reqs {
		if !req.External {
			continue
		}
		p, ok := supplied[req.Name]
		if !ok || p == nil {
			if req.Optional {
				continue
			}
			return status.InvalidArgumentf("side packet %q is required but was not provided", req.Name)
		}
		if req.Type != "" && p.TypeName() != req.Type {
			return status.InvalidArgumentf("side packet %q has type %q, expected %q", req.Name, p.TypeName(), req.Type)
		}
	}
	return nil
}
