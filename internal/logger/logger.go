package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"golang.org/x/term"
)

type Color func() PrintFunc
type PrintFunc func(io.Writer, string, ...any)

func Red() PrintFunc {
	return color.New(envColor("TINYSH_COLOR_RED", color.FgRed)).FprintfFunc()
}
func Yellow() PrintFunc {
	return color.New(envColor("TINYSH_COLOR_YELLOW", color.FgYellow)).FprintfFunc()
}
func Green() PrintFunc {
	return color.New(envColor("TINYSH_COLOR_GREEN", color.FgGreen)).FprintfFunc()
}
func Cyan() PrintFunc {
	return color.New(envColor("TINYSH_COLOR_CYAN", color.FgCyan)).FprintfFunc()
}

func envColor(env string, defaultColor color.Attribute) color.Attribute {
	override, err := strconv.Atoi(os.Getenv(env))
	if err == nil {
		return color.Attribute(override)
	}
	return defaultColor
}

// Logger prints diagnostics and informational lines, optionally coloured.
type Logger struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Verbose bool
	Color   bool
	Prefix  string // prepended to every diagnostic, e.g. "tinysh: "
}

// New returns a logger over the given writers. Colour is enabled only when
// stderr is a terminal.
func New(stdout, stderr io.Writer) *Logger {
	return &Logger{
		Stdout: stdout,
		Stderr: stderr,
		Color:  IsTerminal(stderr),
		Prefix: "tinysh: ",
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w any) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Outf prints a line to stdout.
func (l *Logger) Outf(c Color, s string, args ...any) {
	l.FOutf(l.Stdout, c, s+"\n", args...)
}

// FOutf prints to the given writer.
func (l *Logger) FOutf(w io.Writer, c Color, s string, args ...any) {
	if len(args) == 0 {
		s, args = "%s", []any{s}
	}
	if !l.Color {
		fmt.Fprintf(w, s, args...)
		return
	}
	print := c()
	print(w, s, args...)
}

// VerboseOutf prints a line to stdout in verbose mode only.
func (l *Logger) VerboseOutf(c Color, s string, args ...any) {
	if l.Verbose {
		l.Outf(c, s, args...)
	}
}

// Errf prints one diagnostic line to stderr.
func (l *Logger) Errf(c Color, s string, args ...any) {
	if len(args) == 0 {
		s, args = "%s", []any{s}
	}
	l.FOutf(l.Stderr, c, l.Prefix+s+"\n", args...)
}

// VerboseErrf prints a diagnostic line in verbose mode only.
func (l *Logger) VerboseErrf(c Color, s string, args ...any) {
	if l.Verbose {
		l.Errf(c, s, args...)
	}
}

// Error prints err as a diagnostic. Errors with an empty message are
// skipped: the command has already reported them.
func (l *Logger) Error(err error) {
	if err == nil || err.Error() == "" {
		return
	}
	l.Errf(Red, "%v", err)
}
