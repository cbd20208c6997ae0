package cmd

import (
	"fmt"
	"os"

	"github.com/anncsu/anncsu-update/cmd/internal/cmdutil"
	"github.com/anncsu/anncsu-update/cmd/run"
	"github.com/anncsu/anncsu-update/cmd/schema"
	"github.com/anncsu/anncsu-update/cmd/validate"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "anncsu-update",
		Short: "Keep ANNCSU address coordinates in sync with a geospatial database",
		Long: `anncsu-update reads geodiff change reports and pushes moved address points to
ANNCSU, the Italian national register of street names and house numbers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmdutil.RegisterLoggerFlags(rootCmd)
	rootCmd.AddCommand(run.Command())
	rootCmd.AddCommand(validate.Command())
	rootCmd.AddCommand(schema.Command())
	return rootCmd
}

func Execute() {
	rootCmd := Command()
	if err := rootCmd.Execute(); err != nil {
		cmdutil.WriteActionError(os.Stdout, err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
