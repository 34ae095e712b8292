package proc

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"syscall"
)

// Exit codes used when a program could not be started, matching POSIX shells.
const (
	CodeNotFound      = 127
	CodeNotExecutable = 126
)

// Spec describes a process to start. It is a plain value: building one has
// no side effects, so callers can inspect it before (or instead of)
// starting it.
type Spec struct {
	Path       string   // program; looked up in PATH when it has no separator
	Args       []string // argv, including Args[0]
	Dir        string   // working directory; empty inherits
	Env        []string // nil inherits the interpreter's environment
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	Background bool // run in its own process group
}

// Process is a started child. Wait must be called exactly once to release
// its resources.
type Process struct {
	Spec Spec
	cmd  *exec.Cmd
}

// LaunchError reports a program that could not be started.
type LaunchError struct {
	Name string
	Code int
	Err  error
}

func (e *LaunchError) Error() string {
	switch e.Code {
	case CodeNotFound:
		return fmt.Sprintf("%s: command not found", e.Name)
	case CodeNotExecutable:
		return fmt.Sprintf("%s: permission denied", e.Name)
	default:
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ErrNoCommand reports a spec with an empty argument vector.
var ErrNoCommand = errors.New("empty argument vector")

// Command builds the exec.Cmd for a spec without starting it. An empty
// argument vector yields a command whose Err is ErrNoCommand and whose
// Start fails with it.
func (s Spec) Command() *exec.Cmd {
	if len(s.Args) == 0 {
		return &exec.Cmd{Err: ErrNoCommand}
	}
	path := s.Path
	if path == "" {
		path = s.Args[0]
	}
	cmd := exec.Command(path, s.Args[1:]...)
	cmd.Args = s.Args
	cmd.Dir = s.Dir
	cmd.Env = s.Env
	// Assign only non-nil streams: a nil *os.File stored in an interface
	// would not read as "unset" to os/exec.
	if s.Stdin != nil {
		cmd.Stdin = s.Stdin
	}
	if s.Stdout != nil {
		cmd.Stdout = s.Stdout
	}
	if s.Stderr != nil {
		cmd.Stderr = s.Stderr
	}
	if s.Background {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
	return cmd
}

// Start launches the process described by spec. Failures to locate or
// execute the program are returned as *LaunchError.
func Start(spec Spec) (*Process, error) {
	if len(spec.Args) == 0 {
		return nil, ErrNoCommand
	}
	if spec.Path == "" {
		spec.Path = spec.Args[0]
	}

	cmd := spec.Command()
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Name: spec.Args[0], Code: launchCode(err), Err: err}
	}
	return &Process{Spec: spec, cmd: cmd}, nil
}

func launchCode(err error) int {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, exec.ErrDot), errors.Is(err, fs.ErrNotExist):
		return CodeNotFound
	default:
		return CodeNotExecutable
	}
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait waits for the process to exit and returns its exit code. The error is
// non-nil only when waiting itself failed; a non-zero exit is not an error.
func (p *Process) Wait() (int, error) {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return ExitCode(err), err
	}
	return ExitCode(err), nil
}

// ExitCode extracts a shell-style exit code from an error returned by
// exec.Cmd: 0 for nil, the exit status for a normal exit, 128+N for a
// process killed by signal N and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		return launchErr.Code
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}
