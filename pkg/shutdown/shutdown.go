package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"echobin/pkg/logger"
)

var (
	osExit = os.Exit

	// exit is swapped in tests.
	exit = osExit
)

// Abort logs a fatal startup error, echoes it to stderr and exits with
// status 2. Used for failures that happen before the server can serve.
func Abort(contextMsg string, err error) {
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", contextMsg, err)
	exit(2)
}

// SetupSignalHandler returns a context that is cancelled on SIGINT or
// SIGTERM. A second signal is left to the default handler so an operator
// can still force the process down during a slow drain.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigc)
	}()

	return ctx, cancel
}
