// v1
// signals.go
package internal

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// NotifySignals maps SIGINT/SIGTERM onto the operator abort so a
// Ctrl-C still commands the graceful stop before the process exits.
func NotifySignals(eng *Engine, lg *slog.Logger) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		lg.Info("signal received, aborting", "signal", s.String())
		eng.RequestAbort()
	}()
}
