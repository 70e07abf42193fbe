package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scdkit/scdkit/internal/engine"
	"github.com/scdkit/scdkit/internal/pipeline"
	"github.com/scdkit/scdkit/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <pipeline-file>",
		Short: "Execute one change-detection pass",
		Long: `Execute one full pass of a pipeline: snapshot the source table,
classify every business key against the current history slice, and merge
the resulting version mutations in a single transaction.

Example:
  scdkit run --db ./warehouse.db pipelines/sales.cue
  scdkit run --db ./warehouse.db pipelines/sales.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or "+envDatabase+")")

	return cmd
}

func runPass(opts *RunOptions, pipelinePath string, cmd *cobra.Command) error {
	log := setupLogger(opts.Verbose, opts.LogFormat)
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	dbPath, err := databasePath(opts.Database)
	if err != nil {
		return err
	}

	p, err := pipeline.Load(pipelinePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load pipeline definition", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	runner := engine.NewRunner(
		st.Source(p.SourceTable),
		st.History(p.HistoryTable, p.BusinessKey),
		engine.WithLogger(log),
	)

	summary, err := runner.RunOnce(cmd.Context(), p.EngineConfig())
	if err != nil {
		_ = out.Error(err.Error())
		return WrapExitError(ExitFailure, "pass aborted", err)
	}

	if opts.Format == "json" {
		return out.Success(summary)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderSummary(summary, opts.Verbose))
	return nil
}

// renderSummary formats the pass report for the console.
func renderSummary(s *engine.RunSummary, verbose bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pass %s committed (pipeline %s, as of %s)\n", s.RunID, s.Pipeline, s.AsOf.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "  new:       %d\n", s.New)
	fmt.Fprintf(&b, "  changed:   %d\n", s.Changed)
	fmt.Fprintf(&b, "  unchanged: %d\n", s.Unchanged)
	fmt.Fprintf(&b, "  removed:   %d\n", s.Removed)
	fmt.Fprintf(&b, "  total:     %d in %s\n", s.Total(), s.Elapsed.Round(0))
	if verbose {
		for _, outcome := range []string{"new", "changed", "removed"} {
			if keys := s.Keys[outcome]; len(keys) > 0 {
				fmt.Fprintf(&b, "  %s keys: %s\n", outcome, strings.Join(keys, ", "))
			}
		}
	}
	return b.String()
}
