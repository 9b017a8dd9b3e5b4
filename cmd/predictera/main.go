// ABOUTME: Entry point for the predictera console CLI
// ABOUTME: Runs the cobra command tree with signal-aware cancellation

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{}
	root := newRootCmd(a)
	err := root.ExecuteContext(ctx)
	a.close()
	stop()

	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %s\n", errorText(err))
		os.Exit(1)
	}
}
