package cli

import (
	"github.com/spf13/cobra"

	"github.com/scdkit/scdkit/internal/pipeline"
	"github.com/scdkit/scdkit/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Database string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init <pipeline-file>",
		Short: "Create the history table for a pipeline",
		Long: `Create the pipeline's history table if it does not exist, copying the
source table's columns and appending the row_hash, valid_from, valid_to,
and is_current audit columns. Safe to run repeatedly.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or "+envDatabase+")")

	return cmd
}

func runInit(opts *InitOptions, pipelinePath string, cmd *cobra.Command) error {
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
	defer st.Close()

	history := st.History(p.HistoryTable, p.BusinessKey)
	if err := history.EnsureFrom(cmd.Context(), p.SourceTable); err != nil {
		return WrapExitError(ExitFailure, "failed to create history table", err)
	}

	log.Info("history table ready", "pipeline", p.Name, "table", p.HistoryTable)
	return out.Successf("history table %s ready", p.HistoryTable)
}
