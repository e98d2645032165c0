// v1
// logging.go
package circuitbreaker

import (
	"io"
	"log/slog"
	"os"
)

// newLogger creates a slog.Logger that writes to both stdout and a
// file. If filePath is empty or cannot be opened, it falls back to
// stdout only.
func newLogger(filePath string) *slog.Logger {
	var w io.Writer = os.Stdout
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			w = io.MultiWriter(os.Stdout, f)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
