package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/marcelocantos/tinysh/internal/builtin"
	"github.com/marcelocantos/tinysh/internal/config"
	"github.com/marcelocantos/tinysh/internal/history"
	"github.com/marcelocantos/tinysh/internal/logger"
	"github.com/marcelocantos/tinysh/internal/shell"
)

// Options carries what every entry point needs to build a session.
type Options struct {
	Config   *config.Config
	Fs       afero.Fs // history storage; defaults to the OS filesystem
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	NoPrompt bool
	Verbose  bool
}

// NewShell builds a session from opts. A history log that cannot be opened
// is reported and the session continues without it.
func NewShell(opts Options) (*shell.Shell, *logger.Logger, error) {
	opts = opts.withDefaults()
	cfg, fsys := opts.Config, opts.Fs

	log := logger.New(opts.Stdout, opts.Stderr)
	log.Verbose = cfg.Verbose || opts.Verbose
	log.Color = log.Color && cfg.Prompt.Color

	var hist *history.Logger
	if cfg.History.Enabled {
		h, err := history.NewLogger(fsys, cfg.History.Path)
		if err != nil {
			log.VerboseErrf(logger.Yellow, "history: %v", err)
		} else {
			hist = h
		}
	}

	reg := builtin.NewRegistry()
	builtin.RegisterAll(reg)

	sh, err := shell.New(shell.Options{
		Stdin:    opts.Stdin,
		Stdout:   opts.Stdout,
		Stderr:   opts.Stderr,
		Config:   cfg,
		Builtins: reg,
		History:  hist,
		Log:      log,
	})
	if err != nil {
		return nil, nil, err
	}
	return sh, log, nil
}

func (o Options) withDefaults() Options {
	if o.Config == nil {
		o.Config = config.DefaultConfig()
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// RunCommand executes a single line: tinysh -c LINE
func RunCommand(ctx context.Context, opts Options, line string) int {
	sh, log, err := NewShell(opts)
	if err != nil {
		return setupFailed(opts.Stderr, err)
	}
	status, err := sh.Execute(ctx, line)
	return resolveError(log, status.Code, err)
}

// RunScript executes every line of a script file: tinysh SCRIPT
func RunScript(ctx context.Context, opts Options, path string) int {
	sh, log, err := NewShell(opts)
	if err != nil {
		return setupFailed(opts.Stderr, err)
	}
	f, err := os.Open(path)
	if err != nil {
		log.Errf(logger.Red, "%s: %v", path, unwrapPath(err))
		return 1
	}
	defer f.Close()
	code, err := sh.RunScript(ctx, f)
	return resolveError(log, code, err)
}

// RunInteractive drives a session from stdin. Line editing and the prompt
// are used only when stdin is a terminal and the prompt is enabled.
func RunInteractive(ctx context.Context, opts Options) int {
	opts = opts.withDefaults()
	sh, log, err := NewShell(opts)
	if err != nil {
		return setupFailed(opts.Stderr, err)
	}
	if opts.NoPrompt || !opts.Config.Prompt.Enabled || !shell.Interactive(opts.Stdin) {
		code, err := sh.RunScript(ctx, opts.Stdin)
		return resolveError(log, code, err)
	}
	code, err := sh.RunInteractive(ctx)
	return resolveError(log, code, err)
}

// resolveError turns the outcome of a run into a process exit code. An
// exit request carries its own code silently; any other error is reported.
func resolveError(log *logger.Logger, code int, err error) int {
	if err == nil {
		return code
	}
	var exitErr *builtin.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	log.Error(err)
	return 1
}

func setupFailed(w io.Writer, err error) int {
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "tinysh: %v\n", err)
	return 1
}

func unwrapPath(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
