package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WaitTerm cancels once SIGINT or SIGTERM arrives or ctx ends.
func WaitTerm(ctx context.Context, cancel context.CancelFunc) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	cancel()
}
