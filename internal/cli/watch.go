package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/graphcfg/internal/compiler"
)

// DefaultDebounce is how long watch waits after the last change before
// revalidating.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	ValidateOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{ValidateOptions: ValidateOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "watch <sources-dir>",
		Short: "Revalidate graphs whenever a source file changes",
		Long: `Validate the sources once, then again after every change to a graph
source file (.cue, .yaml, .yml, .hcl) under the directory. Changes are
batched: validation runs once the directory has been quiet for --debounce.

Runs until interrupted.

Examples:
  graphcfg watch ./graphs
  graphcfg watch ./graphs --graph PoseLandmark --side-packets packets.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Graph, "graph", "g", "", "validate only this graph")
	cmd.Flags().StringVar(&opts.SidePackets, "side-packets", "", "side packet file (YAML or HCL)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record validation runs in this SQLite catalog")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", DefaultDebounce, "quiet period before revalidating")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.Logger(cmd.ErrOrStderr())

	if formatter.Format != "json" {
		fmt.Fprintf(formatter.Writer, "Watching %s for changes (Ctrl+C to stop)\n", dir)
	}
	err := Watch(ctx, dir, opts, logger, func(result *ValidationResult, err error) {
		if err != nil {
			_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
			return
		}
		// Exit statuses are meaningless mid-watch.
		_ = outputValidation(formatter, result)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return commandError(formatter, loadErrorCode(err), err.Error())
	}
	return nil
}

// Watch validates dir once and then after each batch of source changes,
// handing every outcome to report. It blocks until ctx is cancelled and
// returns ctx.Err().
func Watch(ctx context.Context, dir string, opts *WatchOptions, logger *slog.Logger, report func(*ValidationResult, error)) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("sources not found: %s", dir), Err: err}
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addDirs(watcher, dir); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	report(ValidateSources(ctx, dir, &opts.ValidateOptions, logger))

	changed := make(map[string]bool)
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addDirs(watcher, event.Name); err != nil {
						logger.Warn("watching new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if !compiler.IsSource(event.Name) {
				continue
			}
			logger.Debug("source changed", "path", event.Name, "op", event.Op.String())
			changed[event.Name] = true
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-batchTimer.C:
			if len(changed) == 0 {
				continue
			}
			logger.Info("revalidating", "changed", len(changed))
			changed = make(map[string]bool)
			report(ValidateSources(ctx, dir, &opts.ValidateOptions, logger))
		}
	}
}

// addDirs watches root and every directory below it except hidden ones.
func addDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
