// Package harness provides conformance testing for graph configurations.
//
// A scenario names graph sources, one graph (or registered template type)
// to initialize from them, and assertions about the validated result.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	sources:
//	  - ../graphs
//	graph: PassThrough
//	side_packets:
//	  max_in_flight: 2
//	assertions:
//	  - type: status
//	    code: OK
//	  - type: output_streams
//	    names: [in, out1, out]
//	  - type: input_streams
//	    edges:
//	      - {name: in, upstream: 0, node: "Calculator#0"}
//	  - type: stream_type
//	    name: out
//	    expect: ImageFrame
//	  - type: required_side_packets
//	    packets:
//	      - {name: max_in_flight, type: int, optional: true, external: true}
//	  - type: side_packets
//	    code: OK
//
// # Assertion Types
//
//   - status: Initialize returns Code, optionally with a message containing Contains
//   - output_streams, output_side_packets: edge names in table order
//   - input_streams: consumer rows (name, upstream, parent node, back edge)
//   - stream_type, side_packet_type: registered type of one edge; an empty
//     expect asserts the edge is untyped
//   - required_side_packets: the derived requirement list
//   - side_packets: validation of the scenario's side_packets map
//
// # Isolation
//
// Every scenario runs with fresh template and contract registries and an
// in-memory catalog. Validation runs get sequence numbers from a
// deterministic clock, so repeated runs produce identical catalogs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/passthrough.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
