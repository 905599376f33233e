// Command feedctl evaluates feed filters offline and seeds a running service.
package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/duofeed/pkg/logger"
)

const (
	commandUse              = "feedctl"
	commandShortDescription = "Operator tooling for the duo listing feed"
	flagLogLevelName        = "log-level"
	flagLogLevelDescription = "Log level: debug, info, warn, error"
)

func main() {
	cobra.CheckErr(newRootCommand(os.Stdout, os.Stderr).Execute())
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	command := &cobra.Command{
		Use:           commandUse,
		Short:         commandShortDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWithWriter(errOut); err != nil {
				return err
			}
			level, _ := cmd.Flags().GetString(flagLogLevelName)
			return logger.SetLevelString(level)
		},
	}
	command.SetOut(out)
	command.SetErr(errOut)
	command.PersistentFlags().String(flagLogLevelName, "warn", flagLogLevelDescription)

	command.AddCommand(newFilterCommand(), newSeedCommand())
	return command
}
