package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/graphcfg/internal/compiler"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/packet"
	"github.com/roach88/graphcfg/internal/status"
	"github.com/roach88/graphcfg/internal/store"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Graph       string // validate only this graph entry
	SidePackets string // side packet file checked against every graph
	Database    string // catalog to record validation runs in
}

// GraphReport is the validation outcome of one graph entry.
type GraphReport struct {
	Name   string      `json:"name"`
	Valid  bool        `json:"valid"`
	Code   status.Code `json:"code"`
	Hash   string      `json:"hash,omitempty"`
	Nodes  int         `json:"nodes,omitempty"`
	Error  string      `json:"error,omitempty"`
	Source string      `json:"source,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
	Graphs []GraphReport              `json:"graphs"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <sources>",
		Short: "Validate graph configurations",
		Long: `Validate every graph declared in the sources, or just one.

Runs schema checks over all graph, template and contract entries, looks
for templates that instantiate each other, then expands and indexes each
graph. With --side-packets, the side packets in the given YAML or HCL file
are checked against each graph's requirements. With --db, one validation
run per graph is recorded in the catalog.

Exit codes:
  0 - All graphs valid
  1 - One or more graphs or entries invalid
  2 - Command error (unreadable sources, etc.)

Examples:
  graphcfg validate ./graphs
  graphcfg validate ./graphs --graph PoseLandmark --side-packets packets.yaml
  graphcfg validate ./graphs --db catalog.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Graph, "graph", "g", "", "validate only this graph")
	cmd.Flags().StringVar(&opts.SidePackets, "side-packets", "", "side packet file (YAML or HCL)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record validation runs in this SQLite catalog")

	return cmd
}

func runValidate(opts *ValidateOptions, sources string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	result, err := ValidateSources(cmd.Context(), sources, opts, opts.Logger(cmd.ErrOrStderr()))
	if err != nil {
		return commandError(formatter, loadErrorCode(err), err.Error())
	}
	return outputValidation(formatter, result)
}

// ValidateSources runs every check the validate command performs and
// returns the combined result. The error covers command-level failures
// only; invalid graphs are reported in the result.
func ValidateSources(ctx context.Context, sources string, opts *ValidateOptions, logger *slog.Logger) (*ValidationResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	bundle, err := CompileSources(sources)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{Graphs: []GraphReport{}}
	result.Errors = append(result.Errors, compiler.ValidateBundle(bundle)...)
	for _, c := range compiler.AnalyzeTemplateCycles(bundle.Templates) {
		result.Errors = append(result.Errors, compiler.ValidationError{
			Field:   "template." + c.Path[0],
			Message: c.Message,
			Code:    compiler.ErrTemplateCycle,
		})
	}

	var packets packet.SidePackets
	if opts.SidePackets != "" {
		if packets, err = compiler.LoadSidePackets(opts.SidePackets); err != nil {
			return nil, &LoadError{Code: ErrCodeCompile, Message: err.Error(), Err: err}
		}
	}

	names := bundle.GraphNames()
	if opts.Graph != "" {
		if _, ok := bundle.Graph(opts.Graph); !ok {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("graph %q is not declared", opts.Graph)}
		}
		names = []string{opts.Graph}
	}
	if len(names) == 0 && len(bundle.Templates) == 0 && len(bundle.Contracts) == 0 {
		return nil, &LoadError{Code: ErrCodeNoGraphs, Message: fmt.Sprintf("no graphs, templates or contracts found in %s", sources)}
	}

	loaded, err := RegisterBundle(bundle)
	if err != nil {
		// Duplicate types and names are already schema errors; the graphs
		// cannot be initialized against ambiguous registries.
		if len(result.Errors) > 0 {
			result.Valid = false
			return result, nil
		}
		return nil, err
	}

	var st *store.Store
	if opts.Database != "" {
		if st, err = store.Open(opts.Database); err != nil {
			return nil, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err}
		}
		defer st.Close()
	}

	for _, name := range names {
		report, err := validateGraph(ctx, st, loaded, name, packets, opts.SidePackets != "", logger)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err}
		}
		result.Graphs = append(result.Graphs, report)
	}

	result.Valid = len(result.Errors) == 0
	for _, g := range result.Graphs {
		result.Valid = result.Valid && g.Valid
	}
	return result, nil
}

// validateGraph initializes one graph entry and, when st is non-nil,
// records the run. A graph that fails only the side-packet check is still
// stored. The returned error is a catalog failure.
func validateGraph(ctx context.Context, st *store.Store, loaded *Loaded, name string, packets packet.SidePackets, checkPackets bool, logger *slog.Logger) (GraphReport, error) {
	report := GraphReport{Name: name}
	for _, g := range loaded.Bundle.Graphs {
		if g.Name == name {
			report.Source = g.Source
		}
	}

	v, err := loaded.Initialize(name, logger)
	if err == nil {
		defer v.Dispose()
		report.Hash = v.Hash()
		report.Nodes = len(v.Nodes())
		if checkPackets {
			err = v.ValidateRequiredSidePackets(packets)
		}
	}
	report.Valid = err == nil
	report.Code = status.CodeOf(err)
	if err != nil {
		report.Error = err.Error()
	}

	if st == nil {
		return report, nil
	}
	seq, serr := st.NextSeq(ctx)
	if serr != nil {
		return report, serr
	}
	if report.Hash != "" {
		if _, serr := st.WriteGraph(ctx, name, v); serr != nil {
			return report, serr
		}
	}
	run := store.NewValidationRun(store.UUIDv7Generator{}.Generate(), name, report.Hash, seq, ir.ToolVersion, err)
	return report, st.WriteValidationRun(ctx, run)
}

// outputValidation prints the result and maps it to an exit status.
func outputValidation(formatter *OutputFormatter, result *ValidationResult) error {
	invalid := len(result.Errors)
	for _, g := range result.Graphs {
		if !g.Valid {
			invalid++
		}
	}

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = firstValidationError(result)
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		for _, g := range result.Graphs {
			if g.Valid {
				formatter.Pass("%s (%s, %d nodes)", g.Name, shortHash(g.Hash), g.Nodes)
			} else {
				formatter.Fail("%s: %s", g.Name, g.Error)
			}
		}
		if len(result.Errors) > 0 {
			fmt.Fprintln(formatter.Writer)
			for _, e := range result.Errors {
				fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
			}
			fmt.Fprintln(formatter.Writer)
		}
		if result.Valid {
			formatter.Pass("All graphs valid")
		} else {
			formatter.Fail("Validation failed")
		}
	}

	if result.Valid {
		return nil
	}
	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", invalid))
}

func firstValidationError(result *ValidationResult) *CLIError {
	if len(result.Errors) > 0 {
		return &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message}
	}
	for _, g := range result.Graphs {
		if !g.Valid {
			return &CLIError{
				Code:    ErrCodeInvalidGraph,
				Message: fmt.Sprintf("%s: %s", g.Name, g.Error),
				Details: map[string]string{"code": string(g.Code)},
			}
		}
	}
	return nil
}
