package cli

import (
	"fmt"
	"io"

	"github.com/marcelocantos/tinysh/internal/builtin"
)

// RunList lists the builtin commands.
func RunList(reg *builtin.Registry, w io.Writer) int {
	for _, b := range reg.All() {
		fmt.Fprintf(w, "%-8s %s\n", b.Name(), b.Description())
	}
	return 0
}
