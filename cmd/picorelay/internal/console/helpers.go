package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal"
	"github.com/tinyland-inc/picorelay/cmd/picorelay/internal/run"
)

func consoleCmd(debug bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := internal.SetupLogging(cfg, debug); err != nil {
		return fmt.Errorf("error configuring logging: %w", err)
	}

	prompt := fmt.Sprintf("%s > ", internal.Logo)
	rl, rlErr := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".picorelay_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	var out io.Writer = os.Stdout
	if rlErr == nil {
		defer rl.Close()
		out = rl.Stdout()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := run.NewStack(ctx, cfg, NewPrinter(out))
	if err != nil {
		return fmt.Errorf("error starting relay: %w", err)
	}
	if err := stack.Start(ctx); err != nil {
		stack.Stop()
		return fmt.Errorf("error starting relay: %w", err)
	}
	defer stack.Stop()

	session := NewSession(stack.Bus, stack.Store, out)
	fmt.Fprintf(out, "%s Console operator (Ctrl+C to exit, /help for commands)\n\n", internal.Logo)

	if rlErr != nil {
		fmt.Printf("Error initializing readline: %v\n", rlErr)
		fmt.Println("Falling back to simple input mode...")
		simpleMode(ctx, session, prompt)
		return nil
	}
	interactiveMode(ctx, session, rl)
	return nil
}

func interactiveMode(ctx context.Context, session *Session, rl *readline.Instance) {
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Fprintln(rl.Stdout(), "\nGoodbye!")
				return
			}
			fmt.Fprintf(rl.Stdout(), "Error reading input: %v\n", err)
			continue
		}
		if session.Exec(ctx, line) || ctx.Err() != nil {
			fmt.Fprintln(rl.Stdout(), "Goodbye!")
			return
		}
	}
}

func simpleMode(ctx context.Context, session *Session, prompt string) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if session.Exec(ctx, line) || ctx.Err() != nil {
			fmt.Println("Goodbye!")
			return
		}
	}
}
