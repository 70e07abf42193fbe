package cli

import (
	"github.com/spf13/cobra"

	"github.com/scdkit/scdkit/internal/pipeline"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <pipeline-file>",
		Short: "Check a pipeline definition without touching the database",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

			p, err := pipeline.Load(args[0])
			if err != nil {
				_ = out.Error(err.Error())
				return WrapExitError(ExitFailure, "pipeline definition invalid", err)
			}

			return out.Successf("pipeline %s ok: %s -> %s, key %s, %d monitored attributes",
				p.Name, p.SourceTable, p.HistoryTable, p.BusinessKey, len(p.MonitoredAttributes))
		},
	}
	return cmd
}
