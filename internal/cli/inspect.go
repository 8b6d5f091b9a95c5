package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/graphcfg/internal/graph"
	"github.com/roach88/graphcfg/internal/status"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Graph string // graph entry to inspect
}

// InspectResult is the indexed view of one validated graph.
type InspectResult struct {
	Name              string                        `json:"name"`
	Hash              string                        `json:"hash"`
	Nodes             []graph.NodeInfo              `json:"nodes"`
	InputStreams      []graph.EdgeInfo              `json:"input_streams"`
	OutputStreams     []graph.EdgeInfo              `json:"output_streams"`
	InputSidePackets  []graph.EdgeInfo              `json:"input_side_packets"`
	OutputSidePackets []graph.EdgeInfo              `json:"output_side_packets"`
	StreamTypes       map[string]string             `json:"stream_types,omitempty"`
	SidePacketTypes   map[string]string             `json:"side_packet_types,omitempty"`
	Required          []graph.SidePacketRequirement `json:"required_side_packets"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <sources>",
		Short: "Show the node and edge tables of a graph",
		Long: `Validate a graph and print what the indexer built from it: the
canonical node list, the input and output stream tables, the input and
output side packet tables, registered types and the side packets the
graph needs at run time.

--graph may be omitted when the sources declare exactly one graph.

Examples:
  graphcfg inspect ./graphs --graph PoseLandmark
  graphcfg inspect ./graphs --graph PoseLandmark --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Graph, "graph", "g", "", "graph entry to inspect")

	return cmd
}

func runInspect(opts *InspectOptions, sources string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loaded, err := LoadSources(sources)
	if err != nil {
		return commandError(formatter, loadErrorCode(err), err.Error())
	}
	name, err := selectGraph(loaded, opts.Graph)
	if err != nil {
		return commandError(formatter, loadErrorCode(err), err.Error())
	}

	v, err := loaded.Initialize(name, opts.Logger(cmd.ErrOrStderr()))
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidGraph, err.Error(), map[string]string{"code": string(status.CodeOf(err))})
		return WrapExitError(ExitFailure, fmt.Sprintf("graph %s rejected", name), err)
	}
	defer v.Dispose()

	result := Inspect(name, v)
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return writeInspect(formatter.Writer, result)
}

// Inspect collects the tables of an initialized graph.
func Inspect(name string, v *graph.ValidatedConfig) InspectResult {
	result := InspectResult{
		Name:              name,
		Hash:              v.Hash(),
		Nodes:             v.Nodes(),
		InputStreams:      v.InputStreamInfos(),
		OutputStreams:     v.OutputStreamInfos(),
		InputSidePackets:  v.InputSidePacketInfos(),
		OutputSidePackets: v.OutputSidePacketInfos(),
		StreamTypes:       map[string]string{},
		SidePacketTypes:   map[string]string{},
		Required:          v.RequiredSidePackets(),
	}
	for _, e := range result.OutputStreams {
		if t, err := v.RegisteredStreamTypeName(e.Name); err == nil && t != "" {
			result.StreamTypes[e.Name] = t
		}
	}
	for _, e := range result.InputSidePackets {
		if t, err := v.RegisteredSidePacketTypeName(e.Name); err == nil && t != "" {
			result.SidePacketTypes[e.Name] = t
		}
	}
	return result
}

func writeInspect(w io.Writer, r InspectResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Graph %s (%s)\n\n", r.Name, r.Hash)

	fmt.Fprintln(tw, "NODE\tNAME\tCALCULATOR\tEXECUTOR")
	for _, n := range r.Nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.Ref(), dash(n.Name), dash(n.Calculator), dash(n.Executor))
	}

	writeEdges(tw, "INPUT STREAM", r.InputStreams, r.StreamTypes)
	writeEdges(tw, "OUTPUT STREAM", r.OutputStreams, r.StreamTypes)
	writeEdges(tw, "INPUT SIDE PACKET", r.InputSidePackets, r.SidePacketTypes)
	writeEdges(tw, "OUTPUT SIDE PACKET", r.OutputSidePackets, r.SidePacketTypes)

	if len(r.Required) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "REQUIRED SIDE PACKET\tTYPE\tFLAGS")
		for _, req := range r.Required {
			var flags []string
			if req.Optional {
				flags = append(flags, "optional")
			}
			if req.External {
				flags = append(flags, "external")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", req.Name, dash(req.Type), dash(strings.Join(flags, ",")))
		}
	}
	return tw.Flush()
}

func writeEdges(w io.Writer, title string, edges []graph.EdgeInfo, types map[string]string) {
	if len(edges) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "#\t%s\tNODE\tPORT\tUPSTREAM\tTYPE\n", title)
	for i, e := range edges {
		upstream := "-"
		if e.Upstream >= 0 {
			upstream = fmt.Sprint(e.Upstream)
		}
		if e.BackEdge {
			upstream += " (back)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", i, e.Name, e.ParentNode, e.Port, upstream, dash(types[e.Name]))
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
