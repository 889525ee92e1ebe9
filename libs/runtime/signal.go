package runtime

import (
	"context"
	"os/signal"
	"syscall"
)

// SignalContext returns a root context cancelled on SIGINT or SIGTERM,
// letting the consumer finish its in-flight batch before exiting.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
