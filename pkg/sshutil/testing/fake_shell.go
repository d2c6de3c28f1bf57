// Package testing provides an in-process fake of an interactive remote shell.
package testing

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/rileyhilliard/sgebot/pkg/sshutil"
)

// DefaultPrompt is what the fake prints when ready for input.
const DefaultPrompt = "(base) ~ > "

// FakeShell behaves like a PTY login shell: it echoes every line it
// receives, prints the canned output registered for that line, and then
// prints the prompt again. Unknown commands get a "command not found" line.
type FakeShell struct {
	*sshutil.Interaction

	Prompt string

	// Banner is printed once, before the first prompt.
	Banner string

	mu        sync.Mutex
	responses map[string]string
	silent    map[string]bool
	sent      []string
	closed    bool

	inW  *io.PipeWriter
	outW *io.PipeWriter
}

// NewFakeShell creates a shell that answers the given commands.
func NewFakeShell(responses map[string]string) *FakeShell {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	f := &FakeShell{
		Prompt:    DefaultPrompt,
		Banner:    "Last login: Mon Jan  8 09:00:00 2024 from gateway\r\n",
		silent:    make(map[string]bool),
		responses: make(map[string]string),
		inW:       inW,
		outW:      outW,
	}
	for cmd, out := range responses {
		f.responses[cmd] = out
	}
	f.Interaction = sshutil.NewInteraction(outR, inW)

	go f.serve(inR)
	return f
}

func (f *FakeShell) serve(in io.Reader) {
	f.write(f.Banner + f.Prompt)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()

		f.mu.Lock()
		f.sent = append(f.sent, line)
		out, known := f.responses[line]
		silent := f.silent[line]
		f.mu.Unlock()

		f.write(line + "\r\n")
		if silent {
			continue
		}
		if line != "" {
			if !known {
				out = "bash: " + strings.Fields(line)[0] + ": command not found\n"
			}
			f.write(strings.ReplaceAll(out, "\n", "\r\n"))
		}
		f.write(f.Prompt)
	}
}

func (f *FakeShell) write(s string) {
	_, _ = io.WriteString(f.outW, s)
}

// SetSilent makes the shell echo cmd but never answer it, to provoke timeouts.
func (f *FakeShell) SetSilent(cmd string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.silent[cmd] = true
}

// Close ends both directions of the fake session.
func (f *FakeShell) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.inW.Close()
	return f.outW.Close()
}

// Sent returns every line the client typed, in order.
func (f *FakeShell) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// Closed reports whether Close was called.
func (f *FakeShell) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Opener hands out a fresh FakeShell per Open call, all sharing one script.
type Opener struct {
	Responses map[string]string
	Silent    map[string]bool
	OpenErr   error

	mu     sync.Mutex
	Shells []*FakeShell
}

// Open returns a new FakeShell, or OpenErr if set.
func (o *Opener) Open(ctx context.Context) (sshutil.InteractiveShell, error) {
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	sh := NewFakeShell(o.Responses)
	for cmd := range o.Silent {
		sh.SetSilent(cmd)
	}

	o.mu.Lock()
	o.Shells = append(o.Shells, sh)
	o.mu.Unlock()
	return sh, nil
}

// AllClosed reports whether every shell handed out has been closed.
func (o *Opener) AllClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, sh := range o.Shells {
		if !sh.Closed() {
			return false
		}
	}
	return true
}
