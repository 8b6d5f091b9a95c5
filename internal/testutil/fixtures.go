package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/packet"
	"github.com/roach88/graphcfg/internal/subgraph"
)

// PassThroughGraph is the two-node chain in → node0 → out1 → node1 → out.
func PassThroughGraph() ir.GraphConfig {
	return ir.GraphConfig{
		InputStreams:  []string{"in"},
		OutputStreams: []string{"out"},
		Nodes: []ir.Node{
			{Calculator: "PassThroughCalculator", InputStreams: []string{"in"}, OutputStreams: []string{"out1"}},
			{Calculator: "PassThroughCalculator", InputStreams: []string{"out1"}, OutputStreams: []string{"out"}},
		},
	}
}

// ConstantSidePacketGraph produces four side packets from one node and
// consumes no streams.
func ConstantSidePacketGraph() ir.GraphConfig {
	return ir.GraphConfig{
		Nodes: []ir.Node{{
			Calculator: "ConstantSidePacketCalculator",
			OutputSidePackets: []string{
				"PACKET:0:int_packet",
				"PACKET:1:float_packet",
				"PACKET:2:bool_packet",
				"PACKET:3:string_packet",
			},
			Options: map[string]string{
				"int_value":    "256",
				"float_value":  "0.5",
				"bool_value":   "false",
				"string_value": "string",
			},
		}},
	}
}

// PoseLandmarkGraph wraps the PoseLandmarkGpu template and forwards both
// of its optional side packets from the caller.
func PoseLandmarkGraph() ir.GraphConfig {
	return ir.GraphConfig{
		InputStreams:     []string{"input_video"},
		OutputStreams:    []string{"pose_landmarks"},
		InputSidePackets: []string{"model_complexity", "smooth_landmarks"},
		Nodes: []ir.Node{{
			Name:          "pose",
			Calculator:    "PoseLandmarkGpu",
			InputStreams:  []string{"IMAGE:input_video"},
			OutputStreams: []string{"LANDMARKS:pose_landmarks"},
			InputSidePackets: []string{
				"MODEL_COMPLEXITY:model_complexity",
				"SMOOTH_LANDMARKS:smooth_landmarks",
			},
		}},
	}
}

// PoseLandmarkTemplate is a landmark subgraph with two optional, untyped
// side packets.
func PoseLandmarkTemplate() ir.GraphConfig {
	return ir.GraphConfig{
		Type:          "PoseLandmarkGpu",
		InputStreams:  []string{"IMAGE:image"},
		OutputStreams: []string{"LANDMARKS:pose_landmarks"},
		InputSidePackets: []string{
			"MODEL_COMPLEXITY:model_complexity",
			"SMOOTH_LANDMARKS:smooth_landmarks",
		},
		Nodes: []ir.Node{
			{
				Calculator:        "PoseLandmarkModelLoader",
				InputSidePackets:  []string{"MODEL_COMPLEXITY:model_complexity"},
				OutputSidePackets: []string{"MODEL:model"},
			},
			{
				Calculator:    "ImageToTensorCalculator",
				InputStreams:  []string{"IMAGE:image"},
				OutputStreams: []string{"TENSORS:input_tensors"},
			},
			{
				Calculator:       "InferenceCalculator",
				InputStreams:     []string{"TENSORS:input_tensors"},
				InputSidePackets: []string{"MODEL:model"},
				OutputStreams:    []string{"TENSORS:output_tensors"},
			},
			{
				Calculator:    "TensorsToLandmarksCalculator",
				InputStreams:  []string{"TENSORS:output_tensors"},
				OutputStreams: []string{"LANDMARKS:raw_landmarks"},
			},
			{
				Calculator:       "LandmarksSmoothingCalculator",
				InputStreams:     []string{"LANDMARKS:raw_landmarks"},
				InputSidePackets: []string{"ENABLE:smooth_landmarks"},
				OutputStreams:    []string{"LANDMARKS:pose_landmarks"},
			},
		},
	}
}

// ObjectronTemplate is a detection subgraph with two required, typed side
// packets: LABELS_CSV (string) and MAX_NUM_OBJECTS (int).
func ObjectronTemplate() ir.GraphConfig {
	return ir.GraphConfig{
		Type:          "ObjectronGpuSubgraph",
		InputStreams:  []string{"IMAGE_GPU:image"},
		OutputStreams: []string{"FRAME_ANNOTATION:detected_objects"},
		InputSidePackets: []string{
			"LABELS_CSV:allowed_labels",
			"MAX_NUM_OBJECTS:max_num_objects",
		},
		Nodes: []ir.Node{
			{
				Calculator:    "ImageToTensorCalculator",
				InputStreams:  []string{"IMAGE:image"},
				OutputStreams: []string{"TENSORS:input_tensors"},
			},
			{
				Calculator:   "ObjectronDetectionCalculator",
				InputStreams: []string{"TENSORS:input_tensors"},
				InputSidePackets: []string{
					"LABELS_CSV:allowed_labels",
					"MAX_NUM_OBJECTS:max_num_objects",
				},
				OutputStreams: []string{"FRAME_ANNOTATION:detected_objects"},
			},
		},
	}
}

// SwitchContainerTemplate is a minimal registered graph type.
func SwitchContainerTemplate() ir.GraphConfig {
	return ir.GraphConfig{
		Type:          "SwitchContainer",
		InputStreams:  []string{"in"},
		OutputStreams: []string{"out"},
		Nodes: []ir.Node{
			{Calculator: "PassThroughCalculator", InputStreams: []string{"in"}, OutputStreams: []string{"out"}},
		},
	}
}

// Templates returns every fixture template.
func Templates() []ir.GraphConfig {
	return []ir.GraphConfig{PoseLandmarkTemplate(), ObjectronTemplate(), SwitchContainerTemplate()}
}

// Contracts returns the contracts of the calculators the fixture
// templates use beyond the builtins.
func Contracts() []contract.Contract {
	return []contract.Contract{
		{
			Name: "ImageToTensorCalculator",
			Inputs: []contract.Port{
				{Tag: "IMAGE", Type: "ImageFrame"},
				{Tag: "NORM_RECT", Type: "NormalizedRect", Optional: true},
			},
			Outputs: []contract.Port{{Tag: "TENSORS", Type: "Tensors"}},
		},
		{
			Name:             "InferenceCalculator",
			Inputs:           []contract.Port{{Tag: "TENSORS", Type: "Tensors"}},
			Outputs:          []contract.Port{{Tag: "TENSORS", Type: "Tensors"}},
			InputSidePackets: []contract.Port{{Tag: "MODEL", Type: "TfLiteModel"}},
		},
		{
			Name:              "PoseLandmarkModelLoader",
			InputSidePackets:  []contract.Port{{Tag: "MODEL_COMPLEXITY", Optional: true}},
			OutputSidePackets: []contract.Port{{Tag: "MODEL", Type: "TfLiteModel"}},
		},
		{
			Name:    "TensorsToLandmarksCalculator",
			Inputs:  []contract.Port{{Tag: "TENSORS", Type: "Tensors"}},
			Outputs: []contract.Port{{Tag: "LANDMARKS", Type: "NormalizedLandmarkList"}},
		},
		{
			Name:             "LandmarksSmoothingCalculator",
			Inputs:           []contract.Port{{Tag: "LANDMARKS", Type: "NormalizedLandmarkList"}},
			Outputs:          []contract.Port{{Tag: "LANDMARKS", Type: "NormalizedLandmarkList"}},
			InputSidePackets: []contract.Port{{Tag: "ENABLE", Optional: true}},
		},
		{
			Name:    "ObjectronDetectionCalculator",
			Inputs:  []contract.Port{{Tag: "TENSORS", Type: "Tensors"}},
			Outputs: []contract.Port{{Tag: "FRAME_ANNOTATION", Type: "FrameAnnotation"}},
			InputSidePackets: []contract.Port{
				{Tag: "LABELS_CSV", Type: packet.TypeString},
				{Tag: "MAX_NUM_OBJECTS", Type: packet.TypeInt},
			},
		},
	}
}

// NewTemplateRegistry returns a fresh registry holding Templates.
func NewTemplateRegistry(t testing.TB) *subgraph.Registry {
	t.Helper()
	r := subgraph.NewRegistry()
	for _, tmpl := range Templates() {
		require.NoError(t, r.Register(tmpl))
	}
	return r
}

// NewContractProvider returns the fixture contracts layered over the
// builtins.
func NewContractProvider(t testing.TB) contract.Provider {
	t.Helper()
	r := contract.NewRegistry()
	for _, c := range Contracts() {
		require.NoError(t, r.Register(c))
	}
	return contract.Layered{r, contract.Default}
}

var registerOnce sync.Once

// RegisterGlobals adds the fixture templates and contracts to the
// process-wide registries exactly once per test binary.
func RegisterGlobals(t testing.TB) {
	t.Helper()
	var err error
	registerOnce.Do(func() {
		for _, tmpl := range Templates() {
			if err = subgraph.Register(tmpl); err != nil {
				return
			}
		}
		for _, c := range Contracts() {
			if err = contract.Default.Register(c); err != nil {
				return
			}
		}
	})
	require.NoError(t, err)
}
