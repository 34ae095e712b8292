package pipeline

// Operators recognised in an input line. They are single ASCII characters
// and are never escaped: a literal operator always splits.
const (
	OpSequential  = ";" // run statements one after another
	OpPipe        = "|" // stdout of one stage to stdin of the next
	OpRedirectIn  = "<" // stage stdin from file
	OpRedirectOut = ">" // stage stdout to file (create or truncate)
	OpBackground  = "&" // trailing: do not wait for the line
)

// Redirection holds the file redirects of a single stage.
type Redirection struct {
	In  string // file path for stdin redirect, empty if none
	Out string // file path for stdout redirect, empty if none
}

// Stage is one command within a pipeline.
type Stage struct {
	Text     string   // raw stage text as split from the statement
	Args     []string // argument vector; empty means the stage is a no-op
	Redirect Redirection
	Err      error // set when the stage text could not be parsed
}

// Empty reports whether the stage has nothing to run.
func (s Stage) Empty() bool {
	return s.Err == nil && len(s.Args) == 0
}

// Name returns the command name, or "" for an empty stage.
func (s Stage) Name() string {
	if len(s.Args) == 0 {
		return ""
	}
	return s.Args[0]
}

// Statement is a sequence of stages connected by pipes.
type Statement struct {
	Text   string
	Stages []Stage
}

// Line is a fully parsed input line.
type Line struct {
	Text       string
	Statements []Statement
	Background bool // applies to every statement on the line
}

// Status is the outcome of a stage, statement or line.
type Status struct {
	Code    int  // 0 = success
	Builtin bool // handled in-process; no child was spawned
}

// OK reports whether the status signals success.
func (s Status) OK() bool { return s.Code == 0 }
