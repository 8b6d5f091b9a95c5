package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphcfg/internal/status"
)

// Scenario defines a conformance test scenario.
// A scenario loads graph sources, initializes one graph from them and
// asserts on the validated result.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sources lists graph source files or directories to load.
	// Relative paths are resolved against the scenario file location.
	Sources []string `yaml:"sources"`

	// Graph names the graph entry to initialize.
	Graph string `yaml:"graph,omitempty"`

	// Type names a registered template to initialize instead of a graph.
	Type string `yaml:"type,omitempty"`

	// SidePackets are checked against the graph's side-packet requirements
	// when an assertion of type side_packets is present.
	SidePackets map[string]any `yaml:"side_packets,omitempty"`

	// Assertions validate the initialization outcome.
	Assertions []Assertion `yaml:"assertions"`

	// path is the file the scenario was loaded from, if any.
	path string
}

// Path returns the file the scenario was loaded from.
func (s *Scenario) Path() string {
	return s.path
}

// Assertion validates one aspect of an initialized graph.
type Assertion struct {
	// Type specifies the assertion type:
	// - "status": initialization fails (or succeeds) with Code
	// - "output_streams": output stream names in index order
	// - "output_side_packets": output side-packet names in index order
	// - "input_streams": consumer table rows in index order
	// - "stream_type": registered type of stream Name
	// - "side_packet_type": registered type of side packet Name
	// - "required_side_packets": the derived requirement list
	// - "side_packets": validation of the scenario's side packets
	Type string `yaml:"type"`

	// Code is the expected status code (status, side_packets).
	Code string `yaml:"code,omitempty"`

	// Contains is a substring the error message must contain.
	Contains string `yaml:"contains,omitempty"`

	// Name is the edge name (stream_type, side_packet_type).
	Name string `yaml:"name,omitempty"`

	// Expect is the expected type name (stream_type, side_packet_type).
	Expect string `yaml:"expect,omitempty"`

	// Names are expected edge names in order.
	Names []string `yaml:"names,omitempty"`

	// Edges are expected consumer rows (input_streams).
	Edges []EdgeExpect `yaml:"edges,omitempty"`

	// Packets are expected requirements (required_side_packets).
	Packets []PacketExpect `yaml:"packets,omitempty"`
}

// EdgeExpect is one expected row of the input-stream table.
type EdgeExpect struct {
	Name     string `yaml:"name"`
	Upstream int    `yaml:"upstream"`
	Node     string `yaml:"node"`
	BackEdge bool   `yaml:"back_edge,omitempty"`
}

// PacketExpect is one expected side-packet requirement.
type PacketExpect struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type,omitempty"`
	Optional bool   `yaml:"optional,omitempty"`
	External bool   `yaml:"external,omitempty"`
}

// Assertion type constants.
const (
	AssertStatus              = "status"
	AssertOutputStreams       = "output_streams"
	AssertOutputSidePackets   = "output_side_packets"
	AssertInputStreams        = "input_streams"
	AssertStreamType          = "stream_type"
	AssertSidePacketType      = "side_packet_type"
	AssertRequiredSidePackets = "required_side_packets"
	AssertSidePackets         = "side_packets"
)

var knownCodes = []status.Code{
	status.OK,
	status.NotFound,
	status.InvalidArgument,
	status.Unknown,
	status.Internal,
}

// LoadScenario reads and parses a scenario YAML file.
// Source paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving source paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// KnownFields catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, src := range scenario.Sources {
		if !filepath.IsAbs(src) && basePath != "" {
			scenario.Sources[i] = filepath.Join(basePath, src)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	scenario.path = path
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, or the single file
// when dir is a file, in lexical order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scenarios: %w", err)
	}
	if !info.IsDir() {
		s, err := LoadScenario(dir)
		if err != nil {
			return nil, err
		}
		return []*Scenario{s}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	var scenarios []*Scenario
	for _, e := range entries {
		if e.IsDir() || !isScenarioFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func isScenarioFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Sources) == 0 {
		return fmt.Errorf("sources list is required and must be non-empty")
	}
	if (s.Graph == "") == (s.Type == "") {
		return fmt.Errorf("exactly one of graph or type is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, src := range s.Sources {
		if _, err := os.Stat(src); os.IsNotExist(err) {
			return fmt.Errorf("source not found: %s", src)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStatus, AssertSidePackets:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for %s", index, a.Type)
		}
		if !slices.Contains(knownCodes, status.Code(strings.ToUpper(a.Code))) {
			return fmt.Errorf("assertions[%d]: unknown status code %q", index, a.Code)
		}
	case AssertOutputStreams, AssertOutputSidePackets:
		if a.Names == nil {
			return fmt.Errorf("assertions[%d]: names is required for %s", index, a.Type)
		}
	case AssertInputStreams:
		if a.Edges == nil {
			return fmt.Errorf("assertions[%d]: edges is required for input_streams", index)
		}
	case AssertStreamType, AssertSidePacketType:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for %s", index, a.Type)
		}
	case AssertRequiredSidePackets:
		if a.Packets == nil {
			return fmt.Errorf("assertions[%d]: packets is required for required_side_packets", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
