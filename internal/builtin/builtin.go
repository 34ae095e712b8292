package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrNotBuiltin is returned by Lookup when a name is not a builtin; the
// caller should spawn a process instead.
var ErrNotBuiltin = errors.New("not a builtin")

// Env is the interpreter state a builtin may read or change.
type Env interface {
	// Dir returns the session working directory.
	Dir() string

	// Chdir changes the session working directory. Relative paths are
	// resolved against Dir.
	Chdir(path string) error

	// HomeDir is the target of a bare cd.
	HomeDir() string

	// Source runs every line of the named file and returns the status of
	// the last one.
	Source(ctx context.Context, path string, stdin io.Reader, stdout, stderr io.Writer) (int, error)
}

// Builtin is a command implemented inside the interpreter process.
type Builtin interface {
	// Name returns the command name as typed at the prompt.
	Name() string

	// Description returns a one-line summary for help output.
	Description() string

	// Run executes the builtin. args[0] is the command name. A non-nil
	// error is reported as a diagnostic unless it is a *StatusError or an
	// *ExitError, which carry their own meaning.
	Run(ctx context.Context, env Env, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

// ExitError asks the interpreter to terminate with Code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// StatusError carries a non-zero status that needs no extra message.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "" // intentionally empty, the command has already said what went wrong
}

// Registry maps builtin names to implementations.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]Builtin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builtins: make(map[string]Builtin)}
}

// Register adds a builtin, replacing any previous one with the same name.
func (r *Registry) Register(b Builtin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtins[b.Name()] = b
}

// Lookup returns the builtin for name, or an error wrapping ErrNotBuiltin.
func (r *Registry) Lookup(name string) (Builtin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builtins[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotBuiltin)
	}
	return b, nil
}

// All returns all registered builtins sorted by name.
func (r *Registry) All() []Builtin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Builtin, 0, len(r.builtins))
	for _, b := range r.builtins {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

type contextKey struct{}

// NewContext returns a context with the registry attached.
func NewContext(ctx context.Context, reg *Registry) context.Context {
	return context.WithValue(ctx, contextKey{}, reg)
}

// RegistryFromContext retrieves the registry from a context.
func RegistryFromContext(ctx context.Context) (*Registry, bool) {
	reg, ok := ctx.Value(contextKey{}).(*Registry)
	return reg, ok
}

// RegisterAll adds the standard builtins to the registry.
func RegisterAll(r *Registry) {
	r.Register(&Cd{})
	r.Register(&Echo{})
	r.Register(&Exit{})
	r.Register(&Help{})
	r.Register(&Source{})
	r.Register(&Test{})
}
