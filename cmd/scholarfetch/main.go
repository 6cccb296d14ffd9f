// cmd/scholarfetch/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/scholarfetch/internal/cli"
)

func main() {
	// Interrupt cancels in-flight fetches; each strategy tears down its own browser
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
