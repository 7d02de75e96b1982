package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/keysmith-io/keysmith/internal/logging"
)

// Run the main CLI command with the given args. The args should not contain
// the name of the binary (ex: os.Args[1:]).
func Run(ctx context.Context, args ...string) error {
	cli := newCLI(ctx)
	cmd := NewRootCmd(cli)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func NewRootCmd(cli *CLI) *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:               "keysmith",
		Short:             "Manage keysets of rotatable encryption keys",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rootPreRun(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(
		newKeysetsCmd(cli),
		newServerCmd(),
		newVersionCmd(cli),
	)

	rootCmd.PersistentFlags().Bool("help", false, "Display help")
	rootCmd.PersistentFlags().String("log-level", "info", "Show logs when running the command [error, warn, info, debug]")

	return rootCmd
}

func rootPreRun(flags *pflag.FlagSet) error {
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return err
	}
	return logging.SetLevel(logLevel)
}

// canonicalPath expands environment variables and the user's home directory,
// then makes the path absolute.
func canonicalPath(in string) (string, error) {
	out := os.ExpandEnv(in)
	if out == "~" || strings.HasPrefix(out, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		out = filepath.Join(home, strings.TrimPrefix(out, "~"))
	}
	return filepath.Abs(out)
}
