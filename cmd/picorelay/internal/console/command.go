package console

import (
	"github.com/spf13/cobra"
)

func NewConsoleCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "console",
		Aliases: []string{"c"},
		Short:   "Run the relay with a terminal operator",
		Long: `Runs the relay like "picorelay run" and reads operator commands from the
terminal. Relay notifications are printed here instead of the owner chat.`,
		Args: cobra.NoArgs,
		Example: `  picorelay console
  picorelay console --debug`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return consoleCmd(debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
