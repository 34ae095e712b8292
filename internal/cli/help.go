package cli

import (
	"fmt"
	"io"

	"github.com/marcelocantos/tinysh/internal/pipeline"
)

// PrintGeneralHelp writes the long description shown by tinysh --help.
func PrintGeneralHelp(w io.Writer) {
	fmt.Fprintln(w, "tinysh: a small interactive command interpreter")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Each input line holds one or more statements. Arguments are split on")
	fmt.Fprintln(w, "whitespace; there is no quoting, expansion or globbing.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "operators:")
	fmt.Fprintf(w, "  %s  run statements one after another\n", pipeline.OpSequential)
	fmt.Fprintf(w, "  %s  pipe (stdout to stdin)\n", pipeline.OpPipe)
	fmt.Fprintf(w, "  %s  redirect stdin from file\n", pipeline.OpRedirectIn)
	fmt.Fprintf(w, "  %s  redirect stdout to file (created or truncated)\n", pipeline.OpRedirectOut)
	fmt.Fprintf(w, "  %s  at the end of a line, run it in the background\n", pipeline.OpBackground)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Type help at the prompt for the builtin commands.")
}
