package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/marcelocantos/tinysh/internal/history"
)

// RunHistoryVerify checks the hash chain of the history log.
func RunHistoryVerify(fsys afero.Fs, w io.Writer, path string) int {
	if err := history.Verify(fsys, path); err != nil {
		fmt.Fprintf(w, "history verification FAILED: %v\n", err)
		return 1
	}
	fmt.Fprintln(w, "history log integrity verified")
	return 0
}

// RunHistoryShow prints the last n history entries as indented JSON.
func RunHistoryShow(fsys afero.Fs, w io.Writer, path string, n int) int {
	entries, err := history.Tail(fsys, path, n)
	if err != nil {
		fmt.Fprintf(w, "tinysh history: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "no history entries")
		return 0
	}
	for _, e := range entries {
		data, _ := json.MarshalIndent(e, "", "  ")
		fmt.Fprintf(w, "%s\n", data)
	}
	return 0
}
