package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/richinex/tether/config"
	slogmulti "github.com/samber/slog-multi"
)

// newLogger builds the process logger. Records go to a text handler on
// stderr and, when cfg.File is set, to a JSON handler appending to that
// file. Verbose forces debug level. The returned closer releases the file.
func newLogger(stderr io.Writer, cfg config.LogConfig, verbose bool) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	parsed, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	level.Set(parsed)
	if verbose {
		level.Set(slog.LevelDebug)
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
	}
	closer := func() error { return nil }

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closer = f.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}
