// Package remote runs scheduler commands on the cluster through an
// interactive login shell and returns what they print.
package remote

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rileyhilliard/sgebot/internal/errors"
	"github.com/rileyhilliard/sgebot/internal/logger"
	"github.com/rileyhilliard/sgebot/pkg/sshutil"
)

// ShellOpener opens a fresh interactive shell on the cluster.
// *sshutil.Gateway is the production implementation.
type ShellOpener interface {
	Open(ctx context.Context) (sshutil.InteractiveShell, error)
}

// Runner executes one command per shell session.
type Runner struct {
	opener  ShellOpener
	prompt  *regexp.Regexp
	timeout time.Duration
	log     logger.Logger
}

// NewRunner creates a Runner. prompt is the regexp of an idle shell prompt;
// it only counts when it is the last thing the shell printed. timeout bounds
// every single wait for the prompt.
func NewRunner(opener ShellOpener, prompt string, timeout time.Duration, log logger.Logger) (*Runner, error) {
	re, err := regexp.Compile("(?:" + prompt + ")$")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid prompt pattern",
			"Check SSH_PROMPT.")
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Runner{opener: opener, prompt: re, timeout: timeout, log: log}, nil
}

// Run opens a shell, waits for it to settle at a prompt, types command, and
// returns the lines printed between the echoed command and the next prompt.
// The shell is closed before Run returns, whatever the outcome.
func (r *Runner) Run(ctx context.Context, command string) (out string, err error) {
	sh, err := r.opener.Open(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := sh.Close(); cerr != nil {
			r.log.Debug("closing shell after %q: %v", command, cerr)
		}
	}()

	if err := sh.Send(""); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH, "Failed to talk to the remote shell", "")
	}
	if _, err := r.expect(ctx, sh, "the first shell prompt"); err != nil {
		return "", err
	}

	if err := sh.Send(command); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to send %q", command), "")
	}

	// Prompts left over from the synchronizing empty line can still be
	// buffered; everything before the echo of command is discarded.
	var transcript string
	for {
		chunk, err := r.expect(ctx, sh, fmt.Sprintf("the output of %q", command))
		if err != nil {
			return "", err
		}
		transcript = normalizeNewlines(chunk)
		if strings.Contains(transcript, command) {
			break
		}
	}

	out = betweenEchoAndPrompt(transcript, command)
	r.log.Debug("ran %q (%d bytes)", command, len(out))
	return out, nil
}

func (r *Runner) expect(ctx context.Context, sh sshutil.InteractiveShell, what string) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := sh.Expect(waitCtx, r.prompt)
	if err == nil {
		return out, nil
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return "", errors.NewTimeout(what, err)
	}
	return "", errors.WrapWithCode(err, errors.ErrSSH,
		fmt.Sprintf("Remote shell ended while waiting for %s", what),
		"The machine may have closed the session. Check its load and ulimits.")
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// betweenEchoAndPrompt drops the line holding the echoed command and the
// final line holding the prompt.
func betweenEchoAndPrompt(transcript, command string) string {
	idx := strings.Index(transcript, command)
	rest := transcript[idx+len(command):]
	nl := strings.Index(rest, "\n")
	if nl == -1 {
		return ""
	}
	rest = rest[nl+1:]

	last := strings.LastIndex(rest, "\n")
	if last == -1 {
		return ""
	}
	return rest[:last]
}
