package proc

import (
	"io"
	"os"
	"sync"
)

// LockedWriter serialises writes to an underlying writer. os/exec copies
// the output of a child into a non-file writer on its own goroutine, so
// every stage of a pipeline and every background job may write at once.
type LockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// SyncWriter returns w wrapped for concurrent use. Files are returned
// unchanged: children write to them directly through the kernel. A writer
// that is already a *LockedWriter is returned as is, so wrapping the same
// stream twice keeps a single lock.
func SyncWriter(w io.Writer) io.Writer {
	switch w.(type) {
	case nil, *os.File, *LockedWriter:
		return w
	}
	return &LockedWriter{w: w}
}

func (lw *LockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
