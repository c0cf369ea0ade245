// Package logging builds the structured logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Options configures New.
type Options struct {
	Level  string    // debug | info | warn | error; default info
	Format string    // text | json | logfmt; default text
	Out    io.Writer // default os.Stderr
}

// New returns a logger writing to opts.Out with timestamps.
func New(opts Options) (*log.Logger, error) {
	level := log.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		lv, err := log.ParseLevel(strings.ToLower(s))
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		level = lv
	}

	var formatter log.Formatter
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	return log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       formatter,
	}), nil
}

// Or returns l, or the package default logger when l is nil.
func Or(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
