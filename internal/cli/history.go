package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/graphcfg/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string // catalog to read
	Graph    string // only runs of this graph
}

// HistoryResult lists recorded validation runs.
type HistoryResult struct {
	Runs []store.ValidationRun `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded validation runs",
		Long: `List the validation runs recorded in a catalog by validate --db,
oldest first.

Examples:
  graphcfg history --db catalog.db
  graphcfg history --db catalog.db --graph PoseLandmark --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite catalog to read (required)")
	cmd.Flags().StringVarP(&opts.Graph, "graph", "g", "", "only runs of this graph")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Opening creates the file; a typo should not leave an empty catalog behind.
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		return commandError(formatter, ErrCodeNotFound, fmt.Sprintf("catalog not found: %s", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeStore, err.Error())
	}
	defer st.Close()

	runs, err := st.ReadValidationRuns(cmd.Context(), opts.Graph)
	if err != nil {
		return commandError(formatter, ErrCodeStore, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(HistoryResult{Runs: runs})
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No validation runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tGRAPH\tCODE\tHASH\tMESSAGE")
	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", run.Seq, run.GraphName, run.Code, dash(shortHash(run.GraphHash)), dash(run.Message))
	}
	return tw.Flush()
}
