// SPDX-License-Identifier: MPL-2.0

// Package logging builds the charmbracelet/log loggers shared by toolmodel components.
//
// Components receive a *log.Logger and derive a prefixed child with
// Component, so output reads "registry: ..." or "scope: ...". A nil logger is
// always replaced by Discard, which keeps library callers free of logging setup.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// FormatText is the human-readable formatter.
	FormatText = "text"
	// FormatJSON emits one JSON object per line.
	FormatJSON = "json"
	// FormatLogfmt emits logfmt key=value lines.
	FormatLogfmt = "logfmt"
)

// ErrInvalidFormat is returned by ParseFormatter for unknown formatter names.
var ErrInvalidFormat = errors.New("invalid log format")

// Options configures New.
type Options struct {
	// Level is a level name understood by log.ParseLevel ("debug", "info", ...).
	// Empty means "info".
	Level string
	// Format is one of FormatText, FormatJSON, FormatLogfmt. Empty means text.
	Format string
	// Prefix is the root component name.
	Prefix string
	// Timestamps enables timestamps on every line.
	Timestamps bool
}

// New creates a logger writing to w. A nil writer means os.Stderr.
func New(w io.Writer, opts Options) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	formatter, err := ParseFormatter(opts.Format)
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamps,
	}), nil
}

// ParseFormatter maps a format name to a log.Formatter.
func ParseFormatter(name string) (log.Formatter, error) {
	switch strings.ToLower(name) {
	case "", FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	case FormatLogfmt:
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("%w %q (valid: text, json, logfmt)", ErrInvalidFormat, name)
	}
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Component returns a child of logger prefixed with name, or a discarding
// logger when logger is nil.
func Component(logger *log.Logger, name string) *log.Logger {
	if logger == nil {
		return Discard()
	}
	return logger.WithPrefix(name)
}
