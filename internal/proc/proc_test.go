package proc

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireProgs(t *testing.T, progs ...string) {
	t.Helper()
	for _, p := range progs {
		if _, err := exec.LookPath(p); err != nil {
			t.Skipf("%s not available: %v", p, err)
		}
	}
}

func TestSpecCommand(t *testing.T) {
	var out bytes.Buffer
	spec := Spec{
		Path:       "ls",
		Args:       []string{"ls", "-l", "/tmp"},
		Dir:        "/var",
		Stdout:     &out,
		Background: true,
	}

	cmd := spec.Command()

	assert.Equal(t, []string{"ls", "-l", "/tmp"}, cmd.Args)
	assert.Equal(t, "/var", cmd.Dir)
	assert.Nil(t, cmd.Stdin)
	assert.Same(t, &out, cmd.Stdout)
	assert.Nil(t, cmd.Stderr)
	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestSpecCommandForeground(t *testing.T) {
	cmd := Spec{Path: "true", Args: []string{"true"}}.Command()
	assert.Nil(t, cmd.SysProcAttr)
}

func TestStartAndWait(t *testing.T) {
	requireProgs(t, "printf")
	var out bytes.Buffer

	p, err := Start(Spec{Args: []string{"printf", "%s-%s", "a", "b"}, Stdout: &out})
	require.NoError(t, err)
	assert.Greater(t, p.Pid(), 0)

	code, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "a-b", out.String())
}

func TestWaitNonZeroExit(t *testing.T) {
	requireProgs(t, "false")

	p, err := Start(Spec{Args: []string{"false"}})
	require.NoError(t, err)

	code, err := p.Wait()
	assert.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestStartNotFound(t *testing.T) {
	_, err := Start(Spec{Args: []string{"no-such-command-tinysh-test"}})

	var launchErr *LaunchError
	require.True(t, errors.As(err, &launchErr))
	assert.Equal(t, CodeNotFound, launchErr.Code)
	assert.Equal(t, CodeNotFound, ExitCode(err))
	assert.Equal(t, "no-such-command-tinysh-test: command not found", err.Error())
}

func TestStartNotExecutable(t *testing.T) {
	path := t.TempDir() + "/script"
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0644))

	_, err := Start(Spec{Args: []string{path}})

	var launchErr *LaunchError
	require.True(t, errors.As(err, &launchErr))
	assert.Equal(t, CodeNotExecutable, launchErr.Code)
	assert.True(t, strings.HasSuffix(err.Error(), "permission denied"))
}

func TestStartEmptyArgs(t *testing.T) {
	_, err := Start(Spec{})
	assert.ErrorIs(t, err, ErrNoCommand)
}

func TestSpecCommandEmptyArgs(t *testing.T) {
	var cmd *exec.Cmd
	require.NotPanics(t, func() { cmd = Spec{Dir: "/tmp"}.Command() })

	assert.ErrorIs(t, cmd.Err, ErrNoCommand)
	assert.ErrorIs(t, cmd.Start(), ErrNoCommand)
}

func TestSpecCommandPathDefaultsToArgs0(t *testing.T) {
	requireProgs(t, "true")

	cmd := Spec{Args: []string{"true"}}.Command()

	assert.NoError(t, cmd.Err)
	assert.NotEmpty(t, cmd.Path)
	assert.Equal(t, []string{"true"}, cmd.Args)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 42, ExitCode(&LaunchError{Code: 42}))
}

func TestExitCodeSignal(t *testing.T) {
	requireProgs(t, "sleep")

	p, err := Start(Spec{Args: []string{"sleep", "10"}})
	require.NoError(t, err)
	require.NoError(t, p.cmd.Process.Kill())

	code, err := p.Wait()
	assert.NoError(t, err)
	assert.Equal(t, 128+9, code)
}

func TestPipeConnectsProcesses(t *testing.T) {
	requireProgs(t, "printf", "cat")

	pipe, err := NewPipe()
	require.NoError(t, err)
	defer pipe.Close()

	var out bytes.Buffer
	w := pipe.TakeWriter()
	writer, err := Start(Spec{Args: []string{"printf", "piped"}, Stdout: w})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := pipe.TakeReader()
	reader, err := Start(Spec{Args: []string{"cat"}, Stdin: r, Stdout: &out})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = writer.Wait()
	require.NoError(t, err)
	_, err = reader.Wait()
	require.NoError(t, err)
	assert.Equal(t, "piped", out.String())
}

func TestPipeCloseIsIdempotent(t *testing.T) {
	pipe, err := NewPipe()
	require.NoError(t, err)

	assert.NoError(t, pipe.CloseWrite())
	assert.NoError(t, pipe.CloseWrite())
	assert.Nil(t, pipe.Writer())

	// The reader sees EOF once the only writer is closed.
	n, err := pipe.Reader().Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	assert.NoError(t, pipe.Close())
	assert.NoError(t, pipe.Close())
	assert.Nil(t, pipe.Reader())
}

func TestPipeTakeNil(t *testing.T) {
	var p *Pipe
	assert.Nil(t, p.TakeReader())
	assert.Nil(t, p.TakeWriter())
	assert.NoError(t, p.CloseRead())
}

type countingCloser struct {
	n   *int
	err error
}

func (c countingCloser) Close() error {
	*c.n++
	return c.err
}

func TestClosers(t *testing.T) {
	var n int
	boom := errors.New("boom")

	var cs Closers
	cs.Add(countingCloser{n: &n})
	cs.Add(countingCloser{n: &n, err: boom})
	cs.Add(countingCloser{n: &n})

	assert.ErrorIs(t, cs.Close(), boom)
	assert.Equal(t, 3, n)

	assert.NoError(t, cs.Close(), "second close has nothing left")
	assert.Equal(t, 3, n)
}

func TestReaper(t *testing.T) {
	requireProgs(t, "sleep", "false")
	r := NewReaper()

	fast, err := Start(Spec{Args: []string{"false"}, Background: true})
	require.NoError(t, err)
	slow, err := Start(Spec{Args: []string{"sleep", "0.2"}, Background: true})
	require.NoError(t, err)

	id1 := r.Track(fast, "false")
	id2 := r.Track(slow, "sleep 0.2")
	assert.Equal(t, 1, id1)
	assert.Equal(t, 2, id2)

	r.Wait()
	assert.Equal(t, 0, r.Running())

	jobs := r.Collect()
	require.Len(t, jobs, 2)
	assert.Equal(t, 1, jobs[0].ID)
	assert.Equal(t, 1, jobs[0].Code)
	assert.Equal(t, "sleep 0.2", jobs[1].Name)
	assert.Equal(t, 0, jobs[1].Code)

	assert.Empty(t, r.Collect(), "jobs are reported once")
}

func TestReaperRunning(t *testing.T) {
	requireProgs(t, "sleep")
	r := NewReaper()

	p, err := Start(Spec{Args: []string{"sleep", "0.3"}, Background: true})
	require.NoError(t, err)
	r.Track(p, "sleep")

	assert.Equal(t, 1, r.Running())
	assert.Eventually(t, func() bool { return r.Running() == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestSyncWriter(t *testing.T) {
	var buf bytes.Buffer
	w := SyncWriter(&buf)
	require.IsType(t, &LockedWriter{}, w)
	assert.Same(t, w, SyncWriter(w), "wrapping twice keeps one lock")
	assert.Same(t, os.Stderr, SyncWriter(os.Stderr))
	assert.Nil(t, SyncWriter(nil))

	const writers, lines = 8, 200
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < lines; j++ {
				io.WriteString(w, "line\n")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, writers*lines, strings.Count(buf.String(), "line\n"))
}

func TestSyncWriterSharedByChildren(t *testing.T) {
	requireProgs(t, "cat")
	var buf bytes.Buffer
	w := SyncWriter(&buf)

	var procs []*Process
	for i := 0; i < 10; i++ {
		p, err := Start(Spec{Args: []string{"cat", "/nonexistent-tinysh-test"}, Stderr: w})
		require.NoError(t, err)
		procs = append(procs, p)
	}
	for _, p := range procs {
		_, err := p.Wait()
		require.NoError(t, err)
	}

	assert.Equal(t, 10, strings.Count(buf.String(), "/nonexistent-tinysh-test"))
}
