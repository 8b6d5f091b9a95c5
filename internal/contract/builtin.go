package contract

import "github.com/roach88/graphcfg/internal/packet"

// Builtins returns the contracts of the standard calculators.
func Builtins() []Contract {
	return []Contract{
		{
			Name:    "PassThroughCalculator",
			Inputs:  []Port{{Tag: AnyTag, Variadic: true}},
			Outputs: []Port{{Tag: AnyTag, Variadic: true}},
		},
		{
			Name:              "ConstantSidePacketCalculator",
			OutputSidePackets: []Port{{Tag: "PACKET", Variadic: true}},
		},
		{
			Name: "FlowLimiterCalculator",
			Inputs: []Port{
				{Tag: "", Variadic: true},
				{Tag: "FINISHED", BackEdge: true},
			},
			Outputs:          []Port{{Tag: "", Variadic: true}},
			InputSidePackets: []Port{{Tag: "MAX_IN_FLIGHT", Type: packet.TypeInt, Optional: true}},
		},
		{
			Name:    "PacketPresenceCalculator",
			Inputs:  []Port{{Tag: "PACKET"}},
			Outputs: []Port{{Tag: "PRESENCE", Type: packet.TypeBool}},
		},
		{
			Name:             "SidePacketToStreamCalculator",
			Inputs:           []Port{{Tag: "TICK", Optional: true}},
			InputSidePackets: []Port{{Tag: "", Variadic: true}},
			Outputs: []Port{
				{Tag: "AT_PRESTREAM", Variadic: true},
				{Tag: "AT_TICK", Variadic: true},
			},
		},
		{
			Name: "GateCalculator",
			Inputs: []Port{
				{Tag: "", Variadic: true},
				{Tag: "ALLOW", Type: packet.TypeBool, Optional: true},
				{Tag: "DISALLOW", Type: packet.TypeBool, Optional: true},
			},
			Outputs:          []Port{{Tag: "", Variadic: true}},
			InputSidePackets: []Port{{Tag: "ALLOW", Type: packet.TypeBool, Optional: true}},
		},
	}
}
