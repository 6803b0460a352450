package run

import (
	"github.com/spf13/cobra"
)

func NewRunCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"r"},
		Short:   "Start the Telegram relay",
		Args:    cobra.NoArgs,
		Example: `  picorelay run
  picorelay run --debug
  PICORELAY_CONFIG=/etc/picorelay.json picorelay run`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCmd(debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
