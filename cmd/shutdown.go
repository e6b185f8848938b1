package main

import (
	"context"
	"time"
)

// newShutdownContext bounds graceful shutdown so an open SSE stream cannot
// hold the process forever.
func newShutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
