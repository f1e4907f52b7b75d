// Package progress writes human-oriented progress lines to stderr.
//
// Standard output is reserved for the single JSON document a command prints,
// so everything a person watching the run might want to see goes through a
// Reporter instead.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/time/rate"
)

// Severity is the importance of a progress line
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Reporter formats progress lines. A nil *Reporter discards everything.
type Reporter struct {
	mu       sync.Mutex
	out      io.Writer
	runID    string
	verbose  bool
	now      func() time.Time
	throttle rate.Sometimes
}

// New creates a Reporter writing to out. Debug lines are only emitted when
// verbose is set.
func New(out io.Writer, runID string, verbose bool) *Reporter {
	return &Reporter{
		out:      out,
		runID:    runID,
		verbose:  verbose,
		now:      time.Now,
		throttle: rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
}

// Discard returns a Reporter that writes nothing
func Discard() *Reporter {
	return New(io.Discard, "", false)
}

// ConfigureColor disables color unless f is a terminal
func ConfigureColor(f *os.File, disable bool) {
	if disable || !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		color.NoColor = true
	}
}

// RunID returns the identifier printed on every line
func (r *Reporter) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// Stage announces the start of a pipeline stage
func (r *Reporter) Stage(name, format string, args ...any) {
	if r == nil {
		return
	}
	stage := color.New(color.FgMagenta, color.Bold).Sprint(name)
	r.write("🚀", stage+" "+fmt.Sprintf(format, args...))
}

// Debugf logs a line only in verbose mode
func (r *Reporter) Debugf(format string, args ...any) {
	r.log(SeverityDebug, format, args...)
}

// Infof logs an informational line
func (r *Reporter) Infof(format string, args ...any) {
	r.log(SeverityInfo, format, args...)
}

// Warnf logs a recoverable problem
func (r *Reporter) Warnf(format string, args ...any) {
	r.log(SeverityWarning, format, args...)
}

// Errorf logs a failure
func (r *Reporter) Errorf(format string, args ...any) {
	r.log(SeverityError, format, args...)
}

// Tickf logs a high-frequency debug line at most once per interval
func (r *Reporter) Tickf(format string, args ...any) {
	if r == nil || !r.verbose {
		return
	}
	r.throttle.Do(func() {
		r.log(SeverityDebug, format, args...)
	})
}

func (r *Reporter) log(sev Severity, format string, args ...any) {
	if r == nil {
		return
	}
	if sev == SeverityDebug && !r.verbose {
		return
	}
	msg := fmt.Sprintf(format, args...)
	r.write(severityEmoji(sev), severityColor(sev).Sprint(msg))
}

func (r *Reporter) write(emoji, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	gray := color.New(color.FgHiBlack).SprintFunc()
	prefix := gray(r.now().Format("15:04:05"))
	if r.runID != "" {
		prefix += " " + gray(r.runID)
	}
	fmt.Fprintf(r.out, "%s [%s] %s\n", emoji, prefix, msg)
}

func severityEmoji(sev Severity) string {
	switch sev {
	case SeverityDebug:
		return "·"
	case SeverityInfo:
		return "ℹ️"
	case SeverityWarning:
		return "⚠️"
	case SeverityError:
		return "❌"
	default:
		return "•"
	}
}

func severityColor(sev Severity) *color.Color {
	switch sev {
	case SeverityDebug:
		return color.New(color.FgHiBlack)
	case SeverityWarning:
		return color.New(color.FgYellow)
	case SeverityError:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}
