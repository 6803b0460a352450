package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal"
	"github.com/tinyland-inc/picorelay/pkg/migrate"
	"github.com/tinyland-inc/picorelay/pkg/thread"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate thread data between formats",
		Example: `  picorelay migrate legacy --from ./threads.json
  picorelay migrate legacy --from ./threads.json --dry-run`,
	}

	var opts migrate.ImportOptions

	legacyCmd := &cobra.Command{
		Use:   "legacy",
		Short: "Import threads from the pre-store threads.json format",
		Args:  cobra.NoArgs,
		Example: `  picorelay migrate legacy --from ./threads.json
  picorelay migrate legacy --from ./threads.json --dry-run
  picorelay migrate legacy --from ./threads.json --threads ~/.picorelay/threads.json --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.ThreadsPath == "" {
				cfg, err := internal.LoadConfig()
				if err != nil {
					return fmt.Errorf("error loading config: %w", err)
				}
				opts.ThreadsPath = cfg.Relay.ThreadsFile
			}
			out := cmd.OutOrStdout()
			opts.Out = out

			if !opts.DryRun {
				lock, err := thread.AcquireLock(opts.ThreadsPath)
				if err != nil {
					return err
				}
				defer lock.Release()
			}

			result, err := migrate.RunImport(opts)
			if err != nil {
				return err
			}
			if !opts.DryRun {
				fmt.Fprintf(out, "Imported %d threads into %s\n", len(result.Imported), result.OutputPath)
			}
			if len(result.Skipped) > 0 {
				fmt.Fprintf(out, "Skipped %d existing threads (use --force to replace)\n", len(result.Skipped))
			}
			if len(result.Warnings) > 0 {
				fmt.Fprintln(out, "\nWarnings:")
				for _, w := range result.Warnings {
					fmt.Fprintf(out, "  - %s\n", w)
				}
			}
			return nil
		},
	}

	legacyCmd.Flags().StringVar(&opts.SourcePath, "from", "",
		"Legacy threads.json to import")
	legacyCmd.Flags().StringVar(&opts.ThreadsPath, "threads", "",
		"Destination threads file (default: relay.threads_file from config)")
	legacyCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false,
		"Show what would be imported without writing")
	legacyCmd.Flags().BoolVar(&opts.Force, "force", false,
		"Replace threads that already exist")
	_ = legacyCmd.MarkFlagRequired("from")

	cmd.AddCommand(legacyCmd)

	return cmd
}
