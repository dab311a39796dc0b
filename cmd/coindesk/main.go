package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/coindesk/internal/commands"
)

func main() {
	// Fetch polls the bank for up to a minute per account; an interrupt
	// should cancel that politely instead of killing mid-batch.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
