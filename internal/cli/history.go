package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scdkit/scdkit/internal/engine"
	"github.com/scdkit/scdkit/internal/pipeline"
	"github.com/scdkit/scdkit/internal/record"
	"github.com/scdkit/scdkit/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Key      string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <pipeline-file>",
		Short: "Show the version rows of one business key",
		Long: `List every version row recorded for a business key, ordered by
valid_from, with validity intervals and current flags.

Example:
  scdkit history --db ./warehouse.db --key 42 pipelines/sales.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or "+envDatabase+")")
	cmd.Flags().StringVar(&opts.Key, "key", "", "business key value (required)")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

// versionView is the JSON projection of one version row.
type versionView struct {
	Key       string         `json:"key"`
	Attrs     map[string]any `json:"attributes"`
	RowHash   string         `json:"row_hash"`
	ValidFrom string         `json:"valid_from"`
	ValidTo   string         `json:"valid_to"`
	IsCurrent bool           `json:"is_current"`
}

func runHistory(opts *HistoryOptions, pipelinePath string, cmd *cobra.Command) error {
	setupLogger(opts.Verbose, opts.LogFormat)
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
	versions, err := history.Versions(cmd.Context(), record.Text(opts.Key))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read version rows", err)
	}

	if opts.Format == "json" {
		views := make([]versionView, len(versions))
		for i, v := range versions {
			views[i] = versionView{
				Key:       v.KeyValue.String(),
				Attrs:     v.Attrs.Native(),
				RowHash:   string(v.RowHash),
				ValidFrom: record.FormatTime(v.ValidFrom),
				ValidTo:   record.FormatTime(v.ValidTo),
				IsCurrent: v.IsCurrent,
			}
		}
		return out.Success(views)
	}

	fmt.Fprint(cmd.OutOrStdout(), renderVersions(opts.Key, versions))
	return nil
}

func renderVersions(key string, versions []engine.VersionRow) string {
	var b strings.Builder
	if len(versions) == 0 {
		fmt.Fprintf(&b, "no versions recorded for key %s\n", key)
		return b.String()
	}
	fmt.Fprintf(&b, "%d version(s) for key %s:\n", len(versions), key)
	for i, v := range versions {
		marker := " "
		if v.IsCurrent {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s [%d] %s -> %s  hash=%.12s\n",
			marker, i+1, record.FormatTime(v.ValidFrom), record.FormatTime(v.ValidTo), v.RowHash)
	}
	return b.String()
}
