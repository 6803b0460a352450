// picorelay - Telegram conversation relay for a single operator
// License: MIT
//
// Copyright (c) 2026 picorelay contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal"
	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal/console"
	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal/migrate"
	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal/run"
	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal/threads"
	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal/version"
)

func NewPicorelayCommand() *cobra.Command {
	short := fmt.Sprintf("%s picorelay - Telegram conversation relay v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "picorelay",
		Short:   short,
		Example: "picorelay run",
	}

	cmd.AddCommand(
		run.NewRunCommand(),
		console.NewConsoleCommand(),
		threads.NewThreadsCommand(),
		migrate.NewMigrateCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewPicorelayCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
