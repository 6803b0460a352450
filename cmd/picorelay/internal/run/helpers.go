package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal"
	"github.com/tinyland-inc/picorelay/pkg/logger"
)

func runCmd(debug bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := internal.SetupLogging(cfg, debug); err != nil {
		return fmt.Errorf("error configuring logging: %w", err)
	}
	if debug {
		fmt.Println("🔍 Debug mode enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := NewStack(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("error starting relay: %w", err)
	}

	fmt.Printf("%s Relay stack ready\n", internal.Logo)
	fmt.Printf("  • Threads: %d stored, %d active (%s)\n",
		stack.Store.Len(), stack.Store.ActiveCount(), stack.Store.Path())
	fmt.Printf("  • Operator: %d\n", cfg.Telegram.OwnerID)

	if err := stack.Start(ctx); err != nil {
		stack.Stop()
		return fmt.Errorf("error starting relay: %w", err)
	}
	if stack.Health != nil {
		fmt.Printf("✓ Health endpoints available at http://%s/health and /ready\n", cfg.Gateway.Addr())
	}
	if stack.Digest != nil {
		fmt.Printf("✓ Digest scheduled (%s)\n", cfg.Digest.Cron)
	}
	fmt.Println("✓ Relay started")
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down...")
	stack.Stop()
	logger.InfoC("run", "Relay stopped")
	fmt.Println("✓ Relay stopped")
	return nil
}
