package sshutil

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sync"
)

// Interaction drives an interactive shell the way expect(1) does: text is
// sent with Send and output is consumed with Expect.
//
// A background goroutine copies everything the remote prints into an
// internal buffer. Expect consumes that buffer up to the end of the first
// match of the given pattern.
type Interaction struct {
	w io.Writer

	mu      sync.Mutex
	buf     []byte
	readErr error
	notify  chan struct{}
}

// NewInteraction starts reading r in the background. Writes go to w.
func NewInteraction(r io.Reader, w io.Writer) *Interaction {
	i := &Interaction{
		w:      w,
		notify: make(chan struct{}, 1),
	}
	go i.readLoop(r)
	return i
}

func (i *Interaction) readLoop(r io.Reader) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)

		i.mu.Lock()
		i.buf = append(i.buf, chunk[:n]...)
		if err != nil {
			i.readErr = err
		}
		i.mu.Unlock()
		i.wake()

		if err != nil {
			return
		}
	}
}

func (i *Interaction) wake() {
	select {
	case i.notify <- struct{}{}:
	default:
	}
}

// Send writes line followed by a newline, as if typed at the terminal.
func (i *Interaction) Send(line string) error {
	if _, err := io.WriteString(i.w, line+"\n"); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	return nil
}

// Expect blocks until the unread output contains a match for re and returns
// everything up to and including the match. Anchor re with `$` to require the
// match at the end of what has arrived so far.
//
// It returns ctx.Err() (wrapped) if the context ends first, and io.EOF
// (wrapped) if the remote closes the stream without producing a match.
func (i *Interaction) Expect(ctx context.Context, re *regexp.Regexp) (string, error) {
	for {
		i.mu.Lock()
		if loc := re.FindIndex(i.buf); loc != nil {
			out := string(i.buf[:loc[1]])
			i.buf = i.buf[loc[1]:]
			i.mu.Unlock()
			return out, nil
		}
		readErr := i.readErr
		i.mu.Unlock()

		if readErr != nil {
			return "", fmt.Errorf("stream closed before %q appeared: %w", re.String(), readErr)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for %q: %w", re.String(), ctx.Err())
		case <-i.notify:
		}
	}
}

// Pending returns output received but not yet consumed by Expect.
func (i *Interaction) Pending() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return string(i.buf)
}
