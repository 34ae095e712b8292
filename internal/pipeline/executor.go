package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marcelocantos/tinysh/internal/builtin"
	"github.com/marcelocantos/tinysh/internal/logger"
	"github.com/marcelocantos/tinysh/internal/proc"
)

// Status codes for stages that never ran.
const (
	CodeBadRedirect = 1
	CodeSyntax      = 2
)

// Executor runs parsed lines: statements one after another, the stages of
// each statement connected by OS pipes. Stdout and Stderr are shared by
// every child and builtin of a line, and by background jobs that outlive
// it; writers other than files are locked on first use, and Log prints
// through the same locked streams.
type Executor struct {
	Builtins *builtin.Registry
	Env      builtin.Env
	Reaper   *proc.Reaper
	Log      *logger.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// NullDevice receives the output of the last stage of a backgrounded
	// pipeline. Defaults to os.DevNull.
	NullDevice string

	once   sync.Once
	stdout io.Writer
	stderr io.Writer
	log    *logger.Logger
}

func (e *Executor) init() {
	e.once.Do(func() {
		e.stdout = proc.SyncWriter(e.Stdout)
		e.stderr = proc.SyncWriter(e.Stderr)
		log := logger.Logger{Prefix: "tinysh: "}
		if e.Log != nil {
			log = *e.Log
		}
		log.Stdout, log.Stderr = e.stdout, e.stderr
		e.log = &log
	})
}

// Execute parses and runs one input line.
func (e *Executor) Execute(ctx context.Context, text string) (Status, error) {
	return e.ExecuteLine(ctx, Parse(text))
}

// ExecuteLine runs every statement of line in order, regardless of earlier
// failures, and returns the status of the last statement that ran. The
// returned error is non-nil only when the interpreter must stop: a
// *builtin.ExitError from the exit builtin, or context cancellation.
func (e *Executor) ExecuteLine(ctx context.Context, line *Line) (Status, error) {
	e.init()
	ctx = builtin.NewContext(ctx, e.Builtins)

	var last Status
	for _, stmt := range line.Statements {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		stages := runnable(stmt.Stages)
		if len(stages) == 0 {
			continue
		}
		st, err := e.executeStatement(ctx, stages, line.Background)
		last = st
		if err != nil {
			return last, err
		}
	}
	return last, nil
}

// runnable drops empty stages, so doubled delimiters are no-ops.
func runnable(stages []Stage) []Stage {
	out := make([]Stage, 0, len(stages))
	for _, st := range stages {
		if !st.Empty() {
			out = append(out, st)
		}
	}
	return out
}

func (e *Executor) executeStatement(ctx context.Context, stages []Stage, background bool) (Status, error) {
	n := len(stages)
	runs := make([]*stageRun, 0, n)

	// Every pipe is closed on return whatever happened; ends handed to a
	// stage are taken out of the pipe first and closed by the stage.
	var pipes []*proc.Pipe
	defer func() {
		for _, p := range pipes {
			p.Close()
		}
	}()

	var prev *proc.Pipe
	for i, st := range stages {
		last := i == n-1

		var next *proc.Pipe
		if !last {
			p, err := proc.NewPipe()
			if err != nil {
				e.log.Errf(logger.Red, "pipe: %v", err)
			} else {
				next = p
				pipes = append(pipes, p)
			}
		}

		run := e.launchStage(ctx, st, prev.TakeReader(), next.TakeWriter(), last, background)
		runs = append(runs, run)
		prev = next
	}

	return e.collect(runs, background)
}

// stageRun is one launched stage.
type stageRun struct {
	name   string
	proc   *proc.Process
	done   chan stageResult // builtin running on its own goroutine
	result stageResult      // builtin that already ran, or a stage that failed to launch
}

type stageResult struct {
	status Status
	err    error // *builtin.ExitError only
}

// launchStage binds the stage's stdio and starts it. It owns pipeIn and
// pipeOut and closes them on every path once the stage no longer needs them.
func (e *Executor) launchStage(ctx context.Context, st Stage, pipeIn, pipeOut *os.File, last, background bool) *stageRun {
	var owned proc.Closers
	if pipeIn != nil {
		owned.Add(pipeIn)
	}
	if pipeOut != nil {
		owned.Add(pipeOut)
	}
	run := &stageRun{name: strings.Join(st.Args, " ")}

	if st.Err != nil {
		owned.Close()
		e.log.Errf(logger.Red, "%v", st.Err)
		run.result.status = Status{Code: CodeSyntax}
		return run
	}

	stdin, stdout := e.Stdin, e.stdout
	feedsPipe := false
	if pipeIn != nil {
		stdin = pipeIn
	}
	switch {
	case pipeOut != nil:
		stdout = pipeOut
		feedsPipe = true
	case last && background:
		null, err := os.OpenFile(e.nullDevice(), os.O_WRONLY, 0)
		if err != nil {
			owned.Close()
			e.log.Errf(logger.Red, "%s: %v", e.nullDevice(), err)
			run.result.status = Status{Code: CodeBadRedirect}
			return run
		}
		owned.Add(null)
		stdout = null
	}

	if path := st.Redirect.In; path != "" {
		f, err := os.Open(e.resolve(path))
		if err != nil {
			owned.Close()
			e.log.Errf(logger.Red, "%s: cannot open file: %v", path, unwrapPath(err))
			run.result.status = Status{Code: CodeBadRedirect}
			return run
		}
		owned.Add(f)
		stdin = f
	}
	if path := st.Redirect.Out; path != "" {
		f, err := os.OpenFile(e.resolve(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			owned.Close()
			e.log.Errf(logger.Red, "%s: cannot create file: %v", path, unwrapPath(err))
			run.result.status = Status{Code: CodeBadRedirect}
			return run
		}
		owned.Add(f)
		stdout = f
		feedsPipe = false
	}

	if b, err := e.Builtins.Lookup(st.Name()); err == nil {
		runBuiltin := func() stageResult {
			defer owned.Close()
			return e.builtinResult(b.Run(ctx, e.Env, st.Args, stdin, stdout, e.stderr))
		}
		if !feedsPipe {
			run.result = runBuiltin()
			return run
		}
		// A builtin writing into a pipe runs alongside its reader, so a
		// full pipe cannot stall the launch of the next stage.
		run.done = make(chan stageResult, 1)
		go func() { run.done <- runBuiltin() }()
		return run
	}

	p, err := proc.Start(proc.Spec{
		Args:       st.Args,
		Dir:        e.Env.Dir(),
		Stdin:      stdin,
		Stdout:     stdout,
		Stderr:     e.stderr,
		Background: background,
	})
	// The child has its own copies of every descriptor now.
	owned.Close()
	if err != nil {
		e.log.Error(err)
		run.result.status = Status{Code: proc.ExitCode(err)}
		return run
	}
	run.proc = p
	return run
}

func (e *Executor) builtinResult(err error) stageResult {
	res := stageResult{status: Status{Builtin: true}}
	if err == nil {
		return res
	}
	var exitErr *builtin.ExitError
	if errors.As(err, &exitErr) {
		res.status.Code = exitErr.Code
		res.err = exitErr
		return res
	}
	var statusErr *builtin.StatusError
	if errors.As(err, &statusErr) {
		res.status.Code = statusErr.Code
		return res
	}
	e.log.Error(err)
	res.status.Code = 1
	return res
}

// collect waits for foreground stages in launch order, or hands background
// processes to the reaper. The status is that of the last stage.
func (e *Executor) collect(runs []*stageRun, background bool) (Status, error) {
	var (
		last    Status
		exitErr error
	)
	for _, run := range runs {
		var res stageResult
		switch {
		case run.proc != nil && background:
			id := e.Reaper.Track(run.proc, run.name)
			e.log.FOutf(e.stderr, logger.Cyan, "[%d] %d\n", id, run.proc.Pid())
			continue
		case run.proc != nil:
			code, err := run.proc.Wait()
			if err != nil {
				e.log.Errf(logger.Red, "%s: %v", run.name, err)
			}
			res.status = Status{Code: code}
		case run.done != nil && background:
			continue
		case run.done != nil:
			res = <-run.done
		default:
			res = run.result
		}
		last = res.status
		if res.err != nil && exitErr == nil {
			exitErr = res.err
		}
	}
	if background {
		last = Status{}
	}
	return last, exitErr
}

func (e *Executor) resolve(path string) string {
	if filepath.IsAbs(path) || e.Env == nil {
		return path
	}
	return filepath.Join(e.Env.Dir(), path)
}

func (e *Executor) nullDevice() string {
	if e.NullDevice == "" {
		return os.DevNull
	}
	return e.NullDevice
}

// unwrapPath strips the operation and path from an *os.PathError, leaving
// the reason; the caller already names the file.
func unwrapPath(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
