package sshutil

import (
	"context"
	"io"
	"regexp"
)

// InteractiveShell is a remote shell driven by sending lines and waiting for patterns.
// *Shell satisfies it; tests use the fake in sshutil/testing.
type InteractiveShell interface {
	io.Closer

	// Send types line followed by a newline.
	Send(line string) error

	// Expect waits for re in the output and returns everything up to and including the match.
	Expect(ctx context.Context, re *regexp.Regexp) (string, error)
}

var _ InteractiveShell = (*Shell)(nil)
