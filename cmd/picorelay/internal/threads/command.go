package threads

import (
	"github.com/spf13/cobra"
)

func NewThreadsCommand() *cobra.Command {
	var (
		all  bool
		show int64
	)

	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List stored threads",
		Args:  cobra.NoArgs,
		Example: `  picorelay threads
  picorelay threads --all
  picorelay threads --show 555`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return threadsCmd(cmd.OutOrStdout(), all, show)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include inactive threads")
	cmd.Flags().Int64Var(&show, "show", 0, "Print the log of one thread")

	return cmd
}
