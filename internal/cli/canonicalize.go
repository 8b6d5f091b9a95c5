package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/status"
	"github.com/roach88/graphcfg/internal/store"
)

// CanonicalizeOptions holds flags for the canonicalize command.
type CanonicalizeOptions struct {
	*RootOptions
	Graph    string // graph entry to canonicalize
	Output   string // output file path
	Database string // catalog to record the graph in
}

// CanonicalResult is the canonical form of one graph.
type CanonicalResult struct {
	Name      string          `json:"name"`
	Hash      string          `json:"hash"`
	Size      int             `json:"size"`
	Nodes     int             `json:"nodes"`
	Canonical json.RawMessage `json:"canonical"`
}

// NewCanonicalizeCommand creates the canonicalize command.
func NewCanonicalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CanonicalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "canonicalize <sources>",
		Short: "Print the canonical form of a graph",
		Long: `Expand every template the graph uses, validate the result and print
its canonical JSON encoding. The encoding is what the graph hash is
computed over, so two graphs with the same output are the same graph.

--graph may be omitted when the sources declare exactly one graph.

Examples:
  graphcfg canonicalize ./graphs --graph PoseLandmark
  graphcfg canonicalize ./graphs --graph PoseLandmark -o pose.json
  graphcfg canonicalize ./graphs --graph PoseLandmark --db catalog.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanonicalize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Graph, "graph", "g", "", "graph entry to canonicalize")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the graph in this SQLite catalog")

	return cmd
}

func runCanonicalize(opts *CanonicalizeOptions, sources string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	logger := opts.Logger(cmd.ErrOrStderr())

	loaded, err := LoadSources(sources)
	if err != nil {
		return commandError(formatter, loadErrorCode(err), err.Error())
	}

	name, err := selectGraph(loaded, opts.Graph)
	if err != nil {
		return commandError(formatter, loadErrorCode(err), err.Error())
	}
	formatter.VerboseLog("Canonicalizing graph %s from %s", name, sources)

	v, err := loaded.Initialize(name, logger)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidGraph, err.Error(), map[string]string{"code": string(status.CodeOf(err))})
		return WrapExitError(ExitFailure, fmt.Sprintf("graph %s rejected", name), err)
	}
	defer v.Dispose()

	canonical, err := ir.MarshalCanonical(v.Config().Object())
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}
	result := CanonicalResult{
		Name:      name,
		Hash:      v.Hash(),
		Size:      len(canonical),
		Nodes:     len(v.Nodes()),
		Canonical: canonical,
	}

	if opts.Database != "" {
		if err := recordGraph(cmd.Context(), opts.Database, name, v); err != nil {
			return commandError(formatter, ErrCodeStore, err.Error())
		}
		formatter.VerboseLog("Recorded %s in %s", result.Hash, opts.Database)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, canonical, 0644); err != nil {
			return commandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if opts.Output != "" {
		formatter.Pass("Wrote canonical %s (%d bytes, %s) to %s", name, result.Size, shortHash(result.Hash), opts.Output)
		return nil
	}
	fmt.Fprintln(formatter.Writer, string(canonical))
	return nil
}

// selectGraph returns name, or the only declared graph when name is empty.
func selectGraph(l *Loaded, name string) (string, error) {
	if name != "" {
		if _, ok := l.Bundle.Graph(name); !ok {
			return "", &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("graph %q is not declared", name)}
		}
		return name, nil
	}
	names := l.Bundle.GraphNames()
	switch len(names) {
	case 0:
		return "", &LoadError{Code: ErrCodeNoGraphs, Message: "no graphs declared"}
	case 1:
		return names[0], nil
	default:
		return "", &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("--graph is required: sources declare %d graphs %v", len(names), names)}
	}
}

func recordGraph(ctx context.Context, path, name string, snap store.Snapshot) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	_, err = st.WriteGraph(ctx, name, snap)
	return err
}

// commandError reports a command-level failure (exit code 2).
func commandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
