package progress

import (
	"io"
	"sync"
)

// Encoder writes events to w as protocol lines.
type Encoder struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

var _ Reporter = (*Encoder)(nil)

// NewEncoder creates an Encoder writing to w, typically os.Stdout.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Report writes e as a single line. Write failures are sticky and available
// through Err.
func (e *Encoder) Report(ev Event) {
	line := ev.String()
	if line == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, line+"\n")
}

// Err returns the first write error, if any.
func (e *Encoder) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}
