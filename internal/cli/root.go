// Package cli implements the scdkit command line surface.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// envDatabase is the environment fallback for the --db flag.
const envDatabase = "SCDKIT_DB"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	LogFormat string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scdkit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scdkit",
		Short: "scdkit - Type 2 slowly changing dimension pipelines",
		Long: "scdkit tracks a source table's changes into a versioned history table\n" +
			"using SCD Type 2 semantics: every change opens a new version row and\n" +
			"closes the previous one, preserving exact validity intervals.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A .env file is optional; flags and real env vars win.
			_ = godotenv.Load()

			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !isValidFormat(opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// databasePath resolves the --db flag with the SCDKIT_DB environment
// fallback.
func databasePath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(envDatabase); env != "" {
		return env, nil
	}
	return "", NewExitError(ExitCommandError, "no database given: pass --db or set "+envDatabase)
}
