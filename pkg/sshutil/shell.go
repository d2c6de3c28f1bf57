package sshutil

import (
	"context"

	"github.com/rileyhilliard/sgebot/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Shell is an interactive login shell on the remote machine with a PTY attached.
type Shell struct {
	*Interaction

	session *ssh.Session
	client  *Client
}

// OpenShell starts a login shell with a PTY of the given width.
// The shell owns nothing but its session; closing it leaves c open.
func (c *Client) OpenShell(width int) (*Shell, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"The connection may have been closed by the machine.")
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 40, width, modes); err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to allocate PTY",
			"The machine may not allow pseudo-terminals for this user.")
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH, "Failed to open shell stdin", "")
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH, "Failed to open shell stdout", "")
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to start shell",
			"Check that SSH_USER has a login shell on the machine.")
	}

	return &Shell{
		Interaction: NewInteraction(stdout, stdin),
		session:     session,
	}, nil
}

// Close ends the session, and the connection too if the shell was opened by a Gateway.
func (s *Shell) Close() error {
	err := s.session.Close()
	if s.client != nil {
		if cerr := s.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Gateway opens one fresh connection and shell per Open call: gateway hop,
// machine hop, PTY shell. Closing the returned shell tears all of it down.
type Gateway struct {
	Gateway  string
	Machine  string
	Options  DialOptions
	TTYWidth int
}

// Open dials through the gateway and starts a shell on the machine.
func (g *Gateway) Open(ctx context.Context) (InteractiveShell, error) {
	client, err := DialVia(ctx, g.Gateway, g.Machine, g.Options)
	if err != nil {
		return nil, err
	}

	sh, err := client.OpenShell(g.TTYWidth)
	if err != nil {
		client.Close()
		return nil, err
	}
	sh.client = client
	return sh, nil
}
