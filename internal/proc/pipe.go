package proc

import (
	"io"
	"os"
)

// Pipe is an OS pipe whose ends can each be closed exactly once. Closing an
// end twice is a no-op, so a deferred Close is always safe after the ends
// have been handed to children and closed individually.
type Pipe struct {
	r, w *os.File
}

// NewPipe creates a pipe.
func NewPipe() (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &Pipe{r: r, w: w}, nil
}

// Reader returns the read end, or nil once it has been closed.
func (p *Pipe) Reader() *os.File { return p.r }

// Writer returns the write end, or nil once it has been closed.
func (p *Pipe) Writer() *os.File { return p.w }

// TakeReader transfers ownership of the read end to the caller, who becomes
// responsible for closing it. Later calls return nil.
func (p *Pipe) TakeReader() *os.File {
	if p == nil {
		return nil
	}
	r := p.r
	p.r = nil
	return r
}

// TakeWriter transfers ownership of the write end to the caller.
func (p *Pipe) TakeWriter() *os.File {
	if p == nil {
		return nil
	}
	w := p.w
	p.w = nil
	return w
}

// CloseRead closes the read end.
func (p *Pipe) CloseRead() error {
	if p == nil || p.r == nil {
		return nil
	}
	err := p.r.Close()
	p.r = nil
	return err
}

// CloseWrite closes the write end.
func (p *Pipe) CloseWrite() error {
	if p == nil || p.w == nil {
		return nil
	}
	err := p.w.Close()
	p.w = nil
	return err
}

// Close closes both ends.
func (p *Pipe) Close() error {
	werr := p.CloseWrite()
	if rerr := p.CloseRead(); rerr != nil {
		return rerr
	}
	return werr
}

// Closers closes a list of resources together, keeping the last error.
type Closers []io.Closer

func (cs *Closers) Add(c io.Closer) {
	*cs = append(*cs, c)
}

func (cs *Closers) Close() error {
	var lastErr error
	for _, c := range *cs {
		if err := c.Close(); err != nil {
			lastErr = err
		}
	}
	*cs = nil
	return lastErr
}
