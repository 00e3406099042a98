// Package main is the entry point for the embroidery-pricing CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"embroidery-pricing/cmd/cli/cmd"
	"embroidery-pricing/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
