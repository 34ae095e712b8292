package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/marcelocantos/tinysh/internal/builtin"
	"github.com/marcelocantos/tinysh/internal/config"
	"github.com/marcelocantos/tinysh/internal/history"
	"github.com/marcelocantos/tinysh/internal/logger"
	"github.com/marcelocantos/tinysh/internal/pipeline"
	"github.com/marcelocantos/tinysh/internal/proc"
)

// Options configures a new Shell.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Dir  string // initial working directory; defaults to the process's
	Home string // target of a bare cd; defaults to $HOME

	Config   *config.Config    // defaults to config.DefaultConfig()
	Builtins *builtin.Registry // defaults to the standard builtins
	History  *history.Logger   // nil disables history
	Log      *logger.Logger    // settings only; it always prints to Stdout/Stderr
}

// Shell is one interpreter session. Its working directory is session state:
// children are started in it and relative redirect paths resolve against
// it, but the interpreter process never changes its own directory, so
// several sessions can coexist.
type Shell struct {
	mu   sync.RWMutex
	dir  string
	home string

	cfg     *config.Config
	exec    *pipeline.Executor
	reaper  *proc.Reaper
	history *history.Logger
	log     *logger.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

var _ builtin.Env = (*Shell)(nil)

// New creates a shell session.
func New(opts Options) (*Shell, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Log == nil {
		opts.Log = logger.New(opts.Stdout, opts.Stderr)
		opts.Log.Verbose = opts.Config.Verbose
	}
	if opts.Builtins == nil {
		opts.Builtins = builtin.NewRegistry()
		builtin.RegisterAll(opts.Builtins)
	}
	if opts.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		opts.Dir = wd
	}
	if opts.Home == "" {
		opts.Home, _ = os.UserHomeDir()
	}

	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}

	// One lock per stream for the whole session: the prompt loop, the
	// executor and background jobs all write here.
	stdout := proc.SyncWriter(opts.Stdout)
	stderr := proc.SyncWriter(opts.Stderr)
	log := *opts.Log
	log.Stdout, log.Stderr = stdout, stderr

	s := &Shell{
		dir:     dir,
		home:    opts.Home,
		cfg:     opts.Config,
		reaper:  proc.NewReaper(),
		history: opts.History,
		log:     &log,
		stdin:   opts.Stdin,
		stdout:  stdout,
		stderr:  stderr,
	}
	s.exec = s.executor(opts.Builtins, s.stdin, s.stdout, s.stderr)
	return s, nil
}

func (s *Shell) executor(reg *builtin.Registry, stdin io.Reader, stdout, stderr io.Writer) *pipeline.Executor {
	log := *s.log
	log.Stdout, log.Stderr = stdout, stderr
	return &pipeline.Executor{
		Builtins:   reg,
		Env:        s,
		Reaper:     s.reaper,
		Log:        &log,
		Stdin:      stdin,
		Stdout:     stdout,
		Stderr:     stderr,
		NullDevice: s.cfg.NullDevice,
	}
}

// Dir returns the session working directory.
func (s *Shell) Dir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}

// HomeDir returns the home directory used by a bare cd.
func (s *Shell) HomeDir() string {
	return s.home
}

// Chdir changes the session working directory. The directory must exist.
func (s *Shell) Chdir(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(s.dir, target)
	}
	info, err := os.Stat(target)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", path)
	}
	s.dir = filepath.Clean(target)
	return nil
}

// Reaper exposes the background job reaper.
func (s *Shell) Reaper() *proc.Reaper {
	return s.reaper
}

// Execute runs one input line and records it in the history. An interrupt
// received while the line runs stops it before its next statement. The
// error is non-nil only when the interpreter must stop.
func (s *Shell) Execute(ctx context.Context, text string) (pipeline.Status, error) {
	return s.execute(ctx, s.exec, text)
}

func (s *Shell) execute(ctx context.Context, ex *pipeline.Executor, text string) (pipeline.Status, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	line := pipeline.Parse(text)
	cwd := s.Dir()
	start := time.Now()
	status, err := ex.ExecuteLine(ctx, line)
	s.record(line, status, time.Since(start), cwd)

	if errors.Is(err, context.Canceled) {
		// Interrupted: abandon the rest of the line, keep the session.
		return pipeline.Status{Code: 130}, nil
	}
	return status, err
}

func (s *Shell) record(line *pipeline.Line, status pipeline.Status, d time.Duration, cwd string) {
	if s.history == nil {
		return
	}
	var commands []string
	for _, stmt := range line.Statements {
		for _, st := range stmt.Stages {
			if name := st.Name(); name != "" {
				commands = append(commands, name)
			}
		}
	}
	if len(commands) == 0 {
		return
	}
	err := s.history.Log(history.Record{
		Line:       line.Text,
		Commands:   commands,
		Background: line.Background,
		ExitCode:   status.Code,
		Duration:   d,
		Cwd:        cwd,
	})
	if err != nil {
		s.log.VerboseErrf(logger.Yellow, "history: %v", err)
	}
}

// Source runs every line of the named file with the given streams.
func (s *Shell) Source(ctx context.Context, path string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Dir(), path)
	}
	f, err := os.Open(path)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return 1, fmt.Errorf("%s: %w", path, err)
	}
	defer f.Close()

	ex := s.executor(s.exec.Builtins, stdin, stdout, stderr)
	return s.runLines(ctx, ex, f)
}

// RunScript executes every line read from r without a prompt and returns
// the status of the last line. An exit builtin ends the script early with
// its code.
func (s *Shell) RunScript(ctx context.Context, r io.Reader) (int, error) {
	stop := keepAlive()
	defer stop()
	return s.runLines(ctx, s.exec, r)
}

func (s *Shell) runLines(ctx context.Context, ex *pipeline.Executor, r io.Reader) (int, error) {
	var last int
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.Reap()
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		status, err := s.execute(ctx, ex, text)
		last = status.Code
		if err != nil {
			return exitCode(err, last)
		}
	}
	if err := scanner.Err(); err != nil {
		return 1, fmt.Errorf("read input: %w", err)
	}
	return last, nil
}

// Reap reports background jobs that have finished since the last call.
func (s *Shell) Reap() {
	for _, job := range s.reaper.Collect() {
		if job.Err != nil {
			s.log.Errf(logger.Red, "[%d] %s: %v", job.ID, job.Name, job.Err)
			continue
		}
		s.log.FOutf(s.stderr, logger.Green, "[%d] Done (%d)  %s\n", job.ID, job.Code, job.Name)
	}
}

// exitCode turns the error that stopped a run into a process exit code.
// An exit request is a clean stop and yields a nil error.
func exitCode(err error, last int) (int, error) {
	var exitErr *builtin.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, nil
	}
	return last, err
}

// keepAlive stops an interrupt from terminating the interpreter for the
// lifetime of a session. Children still receive it from the terminal.
func keepAlive() func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return func() {
		signal.Stop(ch)
	}
}
