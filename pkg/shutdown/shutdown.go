package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// CreateGracefulShutdownChannel returns a channel that receives SIGINT/SIGTERM.
func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	return gracefulShutdown
}

// ListenForShutdown blocks until a signal arrives, runs the handler, then
// waits for done (or the timeout) before returning.
func ListenForShutdown(
	signals chan os.Signal,
	done chan bool,
	handler func(),
	timeout time.Duration,
	l *zap.Logger,
) {
	sig := <-signals
	l.Sugar().Infow("Received shutdown signal", zap.String("signal", sig.String()))

	go func() {
		handler()
		close(done)
	}()

	select {
	case <-done:
		l.Sugar().Infow("Shutdown complete")
	case <-time.After(timeout):
		l.Sugar().Infow("Shutdown timed out, exiting", zap.Duration("timeout", timeout))
	}
}
