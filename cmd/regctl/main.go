// Command regctl lists, shows, verifies and deletes registrations from a terminal.
//
// Usage:
//
//	regctl list [-sort student_name|student_class|payment_verified|created_at] [-desc] [-pending]
//	regctl show <id>
//	regctl verify [-notes text] <id>
//	regctl delete [-yes] <id>
//
// Credentials come from SKYKEEN_ADMIN_EMAIL and SKYKEEN_ADMIN_PASSWORD.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"skykeen/internal/config"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := config.ClientFromEnv()
	if err != nil {
		color.Red("config: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := &cli{cfg: cfg, stdin: os.Stdin, stdout: os.Stdout}
	if err := cli.run(ctx, os.Args[1:]); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}
