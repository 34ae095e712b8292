package builtin

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Farewell is printed by exit before the interpreter terminates.
const Farewell = "Bye bye!!"

type Exit struct{}

var _ Builtin = (*Exit)(nil)

func (e *Exit) Name() string        { return "exit" }
func (e *Exit) Description() string { return "leave the interpreter" }

func (e *Exit) Run(_ context.Context, _ Env, args []string, _ io.Reader, stdout, _ io.Writer) error {
	code := 0
	switch len(args) {
	case 1:
	case 2:
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%s: %s: numeric argument required", args[0], args[1])
		}
		code = n
	default:
		return fmt.Errorf("%s: too many arguments", args[0])
	}
	fmt.Fprintln(stdout, Farewell)
	return &ExitError{Code: code}
}

// Cd changes the session working directory.
type Cd struct{}

var _ Builtin = (*Cd)(nil)

func (c *Cd) Name() string        { return "cd" }
func (c *Cd) Description() string { return "change the working directory" }

func (c *Cd) Run(_ context.Context, env Env, args []string, _ io.Reader, _, _ io.Writer) error {
	switch len(args) {
	case 1:
		args = append(args, env.HomeDir())
		fallthrough
	case 2:
		if err := env.Chdir(args[1]); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return nil
	default:
		return fmt.Errorf("%s: too many arguments", args[0])
	}
}

// Echo writes its arguments to stdout. Arguments are not unquoted.
type Echo struct{}

var _ Builtin = (*Echo)(nil)

func (e *Echo) Name() string        { return "echo" }
func (e *Echo) Description() string { return "write arguments to standard output" }

func (e *Echo) Run(_ context.Context, _ Env, args []string, _ io.Reader, stdout, _ io.Writer) error {
	_, err := fmt.Fprintln(stdout, strings.Join(args[1:], " "))
	return err
}

type Test struct{}

var _ Builtin = (*Test)(nil)

func (t *Test) Name() string        { return "test" }
func (t *Test) Description() string { return "do nothing, successfully" }

func (t *Test) Run(context.Context, Env, []string, io.Reader, io.Writer, io.Writer) error {
	return nil
}

// Source runs a script file in the current session.
type Source struct{}

var _ Builtin = (*Source)(nil)

func (s *Source) Name() string        { return "source" }
func (s *Source) Description() string { return "run the commands in a file" }

func (s *Source) Run(ctx context.Context, env Env, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s FILE", args[0])
	}
	code, err := env.Source(ctx, args[1], stdin, stdout, stderr)
	if err != nil {
		return err
	}
	if code != 0 {
		return &StatusError{Code: code}
	}
	return nil
}

type Help struct{}

var _ Builtin = (*Help)(nil)

func (h *Help) Name() string        { return "help" }
func (h *Help) Description() string { return "list builtin commands" }

func (h *Help) Run(ctx context.Context, _ Env, args []string, _ io.Reader, stdout, _ io.Writer) error {
	reg, ok := RegistryFromContext(ctx)
	if !ok {
		return fmt.Errorf("%s: no builtins available", args[0])
	}
	for _, b := range reg.All() {
		fmt.Fprintf(stdout, "%-8s %s\n", b.Name(), b.Description())
	}
	return nil
}
