// Package logsetup picks between zerolog's colorized console writer and
// plain JSON output depending on whether stdout is a terminal.
package logsetup

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a logger configured for the given role ("master", "worker",
// "mold") and worker index, writing colorized console output to a TTY and
// compact JSON otherwise (container/log-collector deployment).
func New(role string, index int) zerolog.Logger {
	var w io.Writer = os.Stdout
	if isatty.IsTerminal(os.Stdout.Fd()) {
		w = zerolog.ConsoleWriter{Out: colorable.NewColorableStdout(), TimeFormat: "15:04:05"}
	}

	return zerolog.New(w).With().
		Timestamp().
		Str("role", role).
		Int("index", index).
		Logger()
}
