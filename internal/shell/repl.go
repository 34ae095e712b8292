package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"

	"github.com/marcelocantos/tinysh/internal/builtin"
	"github.com/marcelocantos/tinysh/internal/logger"
)

// Prompt renders the interactive prompt: the working directory, with the
// home directory shortened to ~, followed by the configured symbol.
func (s *Shell) Prompt() string {
	pwd := s.Dir()
	if home := s.home; home != "" {
		if pwd == home {
			pwd = "~"
		} else if strings.HasPrefix(pwd, home+string(filepath.Separator)) {
			pwd = "~" + strings.TrimPrefix(pwd, home)
		}
	}
	if s.cfg.Prompt.Color {
		pwd = color.New(color.FgRed).Sprint(pwd)
	}
	return fmt.Sprintf("%s %s ", pwd, s.cfg.Prompt.Symbol)
}

// RunInteractive reads lines with line editing until exit or end of input.
// An interrupt at the prompt discards the partial line. End of input
// behaves like exit with status 0.
func (s *Shell) RunInteractive(ctx context.Context) (int, error) {
	stop := keepAlive()
	defer stop()

	cfg := &readline.Config{
		Prompt:          s.Prompt(),
		Stdin:           readline.NewCancelableStdin(s.stdin),
		Stdout:          s.stdout,
		Stderr:          s.stderr,
		InterruptPrompt: "^C",
		FuncIsTerminal: func() bool {
			return logger.IsTerminal(s.stdin)
		},
	}
	if err := cfg.Init(); err != nil {
		return 1, err
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return 1, err
	}
	defer rl.Close()

	for {
		s.Reap()
		rl.SetPrompt(s.Prompt())
		line, err := rl.Readline()

		switch {
		case err == readline.ErrInterrupt:
			continue
		case err == io.EOF:
			fmt.Fprintln(s.stdout, builtin.Farewell)
			return 0, nil
		case err != nil:
			return 1, fmt.Errorf("read input: %w", err)
		case strings.TrimSpace(line) == "":
			continue
		}

		if _, err := s.Execute(ctx, line); err != nil {
			return exitCode(err, 1)
		}
	}
}

// Interactive reports whether r is a terminal, in which case RunInteractive
// should drive the session.
func Interactive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && logger.IsTerminal(f)
}
