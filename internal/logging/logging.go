// Package logging builds the process slog.Logger and renders error chains
// as structured attributes.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler level and encoding.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output io.Writer
}

// New returns a logger for cfg. Unknown levels fall back to info.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ErrorChain renders err and every wrapped cause, outermost first, under the
// "error" key. Joined errors contribute each branch.
func ErrorChain(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	causes := Causes(err)
	return slog.Group("error",
		slog.String("message", err.Error()),
		slog.String("type", fmt.Sprintf("%T", err)),
		slog.Any("causes", causes),
	)
}

// Causes lists the messages of every error reachable through Unwrap.
func Causes(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		for e != nil {
			switch u := e.(type) {
			case interface{ Unwrap() []error }:
				for _, branch := range u.Unwrap() {
					walk(branch)
				}
				return
			default:
				out = append(out, e.Error())
				e = errors.Unwrap(e)
			}
		}
	}
	walk(err)
	return out
}

// ReportedError marks a failure whose causes were already logged where they
// happened. Failure renders it as a count rather than repeating the chain.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

func (e *ReportedError) Unwrap() error { return e.Err }

// Reported wraps err as already logged. A nil err stays nil.
func Reported(err error) error {
	if err == nil {
		return nil
	}
	return &ReportedError{Err: err}
}

// Failure returns the "error" attribute for err: the full chain, or for a
// ReportedError only the number of failures it carries.
func Failure(err error) slog.Attr {
	var reported *ReportedError
	if !errors.As(err, &reported) {
		return ErrorChain(err)
	}
	failures := 1
	if joined, ok := reported.Err.(interface{ Unwrap() []error }); ok {
		failures = len(joined.Unwrap())
	}
	return slog.Group("error", slog.Int("failures", failures), slog.Bool("reported", true))
}
