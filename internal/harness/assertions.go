package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/graphcfg/internal/graph"
	"github.com/roach88/graphcfg/internal/packet"
	"github.com/roach88/graphcfg/internal/status"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext is what assertions are evaluated against.
type AssertionContext struct {
	Config  *graph.ValidatedConfig
	InitErr error
	Packets map[string]any
}

// EvaluateAssertions evaluates all assertions.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		// Only the status assertion is meaningful for a rejected graph.
		if assertion.Type != AssertStatus && actx.InitErr != nil {
			err = &AssertionError{
				Type:     assertion.Type,
				Expected: "an initialized graph",
				Actual:   fmt.Sprintf("initialization failed: %v", actx.InitErr),
			}
		} else {
			switch assertion.Type {
			case AssertStatus:
				err = assertStatus(actx.InitErr, assertion)
			case AssertOutputStreams:
				err = assertNames(assertion, edgeNames(actx.Config.OutputStreamInfos()))
			case AssertOutputSidePackets:
				err = assertNames(assertion, edgeNames(actx.Config.OutputSidePacketInfos()))
			case AssertInputStreams:
				err = assertInputStreams(actx.Config.InputStreamInfos(), assertion)
			case AssertStreamType:
				err = assertType(assertion, actx.Config.RegisteredStreamTypeName)
			case AssertSidePacketType:
				err = assertType(assertion, actx.Config.RegisteredSidePacketTypeName)
			case AssertRequiredSidePackets:
				err = assertRequirements(actx.Config.RequiredSidePackets(), assertion)
			case AssertSidePackets:
				err = assertSidePackets(actx.Config, actx.Packets, assertion)
			default:
				err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
			}
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertStatus checks the code and, optionally, the message of err.
func assertStatus(err error, assertion Assertion) error {
	want := status.Code(strings.ToUpper(assertion.Code))
	got := status.CodeOf(err)
	if got != want {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: string(want),
			Actual:   fmt.Sprintf("%s (%v)", got, err),
		}
	}
	if assertion.Contains != "" && (err == nil || !strings.Contains(err.Error(), assertion.Contains)) {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("error containing %q", assertion.Contains),
			Actual:   fmt.Sprintf("%v", err),
		}
	}
	return nil
}

func edgeNames(infos []graph.EdgeInfo) []string {
	names := make([]string, len(infos))
	for i, e := range infos {
		names[i] = e.Name
	}
	return names
}

func assertNames(assertion Assertion, actual []string) error {
	if slices.Equal(assertion.Names, actual) {
		return nil
	}
	return &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("%v", assertion.Names),
		Actual:   fmt.Sprintf("%v", actual),
	}
}

// assertInputStreams compares the consumer table row by row.
func assertInputStreams(infos []graph.EdgeInfo, assertion Assertion) error {
	actual := make([]EdgeExpect, len(infos))
	for i, e := range infos {
		actual[i] = EdgeExpect{
			Name:     e.Name,
			Upstream: e.Upstream,
			Node:     e.ParentNode.String(),
			BackEdge: e.BackEdge,
		}
	}
	if slices.Equal(assertion.Edges, actual) {
		return nil
	}
	return &AssertionError{
		Type:     AssertInputStreams,
		Expected: formatEdges(assertion.Edges),
		Actual:   formatEdges(actual),
	}
}

func formatEdges(edges []EdgeExpect) string {
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = fmt.Sprintf("%s<-%d@%s", e.Name, e.Upstream, e.Node)
		if e.BackEdge {
			parts[i] += "(back)"
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// assertType checks a registered type. An empty Expect asserts the edge
// exists but is untyped.
func assertType(assertion Assertion, lookup func(string) (string, error)) error {
	got, err := lookup(assertion.Name)
	if assertion.Expect == "" {
		if status.IsUnknown(err) {
			return nil
		}
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%s to be untyped", assertion.Name),
			Actual:   fmt.Sprintf("type %q (%v)", got, err),
		}
	}
	if err != nil || got != assertion.Expect {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%s: %s", assertion.Name, assertion.Expect),
			Actual:   fmt.Sprintf("%s: %q (%v)", assertion.Name, got, err),
		}
	}
	return nil
}

func assertRequirements(reqs []graph.SidePacketRequirement, assertion Assertion) error {
	actual := make([]PacketExpect, len(reqs))
	for i, r := range reqs {
		actual[i] = PacketExpect{Name: r.Name, Type: r.Type, Optional: r.Optional, External: r.External}
	}
	if slices.Equal(assertion.Packets, actual) {
		return nil
	}
	return &AssertionError{
		Type:     AssertRequiredSidePackets,
		Expected: fmt.Sprintf("%+v", assertion.Packets),
		Actual:   fmt.Sprintf("%+v", actual),
	}
}

// assertSidePackets validates the scenario's side packets and checks the
// resulting code.
func assertSidePackets(v *graph.ValidatedConfig, raw map[string]any, assertion Assertion) error {
	if raw == nil {
		raw = map[string]any{}
	}
	packets, err := packet.FromGoMap(raw)
	if err != nil {
		return &AssertionError{
			Type:     AssertSidePackets,
			Expected: "convertible side packets",
			Actual:   err.Error(),
		}
	}
	return assertStatus(v.ValidateRequiredSidePackets(packets), Assertion{
		Type:     AssertSidePackets,
		Code:     assertion.Code,
		Contains: assertion.Contains,
	})
}
