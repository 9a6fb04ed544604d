// screenq builds stock screener filter trees and runs them remotely or
// against a local database.
//
// Configuration is read from ./screenq.yaml (or --config), SCREENQ_*
// environment variables and flags. See internal/config.
//
// Usage:
//
//	go run ./cmd/screenq repl
//	go run ./cmd/screenq render query.yaml --format sql
//	go run ./cmd/screenq fetch query.yaml --size 50
//	go run ./cmd/screenq fetch --predefined day_gainers,most_actives
//	go run ./cmd/screenq screen query.yaml --dsn quotes.db --table quotes
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runRepl(ctx context.Context, opts *RootOptions) error {
	sess := NewSession(ctx, opts.cfg, opts.transport(), opts.logger)
	defer func() { _ = sess.Close() }()

	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:          "screenq> ",
		HistoryFile:     historyPath(),
		HistoryLimit:    500,
		AutoComplete:    &replCompleter{sess: sess},
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer func() { _ = rl.Close() }()

	if opts.cfg.Store.DSN != "" {
		if err := sess.Execute("connect " + opts.cfg.Store.Engine + " " + opts.cfg.Store.DSN); err != nil {
			fmt.Fprintf(os.Stderr, "  Warning: store connect failed: %v\n", err)
		}
	}

	fmt.Println("screenq REPL - type 'help' for commands, 'exit' to quit")
	fmt.Println()

	for {
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if lower == "exit" || lower == "quit" {
			break
		}
		if err := sess.Execute(line); err != nil {
			fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		}
	}
	return nil
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".screenq_history")
}
