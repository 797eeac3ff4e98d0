package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"relax3d/internal/cli"
)

func main() {
	// Ctrl+C / SIGTERM cancels the active run; the command then exits with
	// the run's cancelled status.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.MainWithArgs(ctx, &cli.App{}, os.Args[1:])
	stop()
	os.Exit(code)
}
