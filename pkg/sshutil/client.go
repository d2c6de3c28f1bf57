package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/sgebot/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Client wraps an SSH connection to a machine, optionally reached through a gateway.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)

	gateway *ssh.Client
}

// DialOptions controls how a connection is authenticated and verified.
type DialOptions struct {
	// User overrides the user from ~/.ssh/config when non-empty.
	User string

	// Port overrides the port of the final hop when non-zero.
	Port int

	// Timeout bounds TCP connect plus handshake of each hop.
	// The ctx deadline applies as well, whichever comes first.
	Timeout time.Duration

	// StrictHostKey verifies host keys against ~/.ssh/known_hosts.
	// When false, host key verification is skipped.
	StrictHostKey bool
}

// Dial establishes an SSH connection directly to host.
// The host can be an SSH config alias, a hostname, user@hostname or hostname:port.
func Dial(ctx context.Context, host string, opts DialOptions) (*Client, error) {
	settings := resolveSSHSettings(host, opts)

	config, err := buildSSHConfig(settings, opts)
	if err != nil {
		return nil, err
	}

	hopCtx, cancel := hopContext(ctx, opts.Timeout)
	defer cancel()

	address := settings.address()
	var dialer net.Dialer
	conn, err := dialer.DialContext(hopCtx, "tcp", address)
	if err != nil {
		if hopCtx.Err() != nil {
			return nil, connectTimeout(host, err)
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	client, err := handshake(hopCtx, conn, host, address, config, settings)
	if err != nil {
		return nil, err
	}

	return &Client{Client: client, Host: host, Address: address}, nil
}

// DialVia connects to gateway first and then tunnels a second SSH
// connection to machine through it, like `ssh -J gateway machine`.
// Closing the returned client closes both hops.
func DialVia(ctx context.Context, gateway, machine string, opts DialOptions) (*Client, error) {
	gwOpts := opts
	gwOpts.Port = 0
	gw, err := Dial(ctx, gateway, gwOpts)
	if err != nil {
		return nil, err
	}

	settings := resolveSSHSettings(machine, opts)
	config, err := buildSSHConfig(settings, opts)
	if err != nil {
		gw.Close()
		return nil, err
	}

	hopCtx, cancel := hopContext(ctx, opts.Timeout)
	defer cancel()

	address := settings.address()
	conn, err := gw.Client.DialContext(hopCtx, "tcp", address)
	if err != nil {
		gw.Close()
		if hopCtx.Err() != nil {
			return nil, connectTimeout(machine, err)
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Gateway '%s' can't reach '%s' at %s", gateway, machine, address),
			"Check that the machine is up and that SSH_MACHINE resolves on the gateway.")
	}

	client, err := handshake(hopCtx, conn, machine, address, config, settings)
	if err != nil {
		gw.Close()
		return nil, err
	}

	return &Client{Client: client, Host: machine, Address: address, gateway: gw.Client}, nil
}

// hopContext bounds one hop by timeout on top of whatever deadline ctx carries.
func hopContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// handshake runs the SSH handshake over conn and gives up once ctx is done.
// ssh.NewClientConn never reads ClientConfig.Timeout, so the deadline is set on conn here.
func handshake(ctx context.Context, conn net.Conn, host, address string, config *ssh.ClientConfig, settings *sshSettings) (*ssh.Client, error) {
	if deadline, ok := ctx.Deadline(); ok {
		// Tunneled channels reject deadlines; the AfterFunc below still covers them.
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if !stop() {
		if err == nil {
			sshConn.Close()
		}
		return nil, connectTimeout(host, ctx.Err())
	}
	if err != nil {
		conn.Close()

		if ctx.Err() != nil || isTimeout(err) {
			return nil, connectTimeout(host, err)
		}

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrSSH, hostKeyErr.Error(), hostKeyErr.Suggestion())
		}

		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return stderrors.Is(err, os.ErrDeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout())
}

func connectTimeout(host string, cause error) error {
	return errors.WrapWithCode(cause, errors.ErrTimeout,
		fmt.Sprintf("Timed out connecting to '%s'", host),
		"The sshd may be overloaded (MaxStartups) or a firewall is dropping packets. Raise SSH_TIMEOUT if the link is slow.")
}

// Close closes the connection and, when present, the gateway hop.
func (c *Client) Close() error {
	var err error
	if c.Client != nil {
		err = c.Client.Close()
	}
	if c.gateway != nil {
		if gwErr := c.gateway.Close(); err == nil {
			err = gwErr
		}
	}
	return err
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string
}

func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSSHSettings parses the host string and resolves settings from ~/.ssh/config.
// Explicit user@ and :port in host win over the config file; opts win over both.
func resolveSSHSettings(host string, opts DialOptions) *sshSettings {
	settings := &sshSettings{
		port: "22",
		user: currentUser(),
	}

	explicitUser := false
	if atIdx := strings.Index(host, "@"); atIdx != -1 {
		settings.user = host[:atIdx]
		host = host[atIdx+1:]
		explicitUser = true
	}

	explicitPort := false
	if colonIdx := strings.LastIndex(host, ":"); colonIdx != -1 {
		if _, err := strconv.Atoi(host[colonIdx+1:]); err == nil {
			settings.port = host[colonIdx+1:]
			host = host[:colonIdx]
			explicitPort = true
		}
	}

	settings.hostname = host
	applySSHConfig(settings, host, explicitUser, explicitPort)

	if opts.User != "" {
		settings.user = opts.User
	}
	if opts.Port > 0 {
		settings.port = strconv.Itoa(opts.Port)
	}

	return settings
}

// applySSHConfig fills settings from ~/.ssh/config when the alias is defined there.
func applySSHConfig(settings *sshSettings, alias string, explicitUser, explicitPort bool) {
	content, err := preprocessSSHConfig(filepath.Join(homeDir(), ".ssh", "config"))
	if err != nil {
		return
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return
	}

	if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
		settings.hostname = hostname
	}
	if port, _ := cfg.Get(alias, "Port"); port != "" && !explicitPort {
		settings.port = port
	}
	if user, _ := cfg.Get(alias, "User"); user != "" && !explicitUser {
		settings.user = user
	}
	if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
		settings.identityFile = expandPath(identity)
	}
}

// buildSSHConfig creates an SSH client config with authentication methods.
// It also populates settings.encryptedKeys with any keys that exist but are encrypted.
func buildSSHConfig(settings *sshSettings, opts DialOptions) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	tryKeyFile := func(keyPath string) {
		keyAuth, err := keyFileAuth(keyPath)
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				settings.encryptedKeys = append(settings.encryptedKeys, keyPath)
			}
			return
		}
		authMethods = append(authMethods, keyAuth)
	}

	if agentAuth := sshAgentAuth(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}

	if settings.identityFile != "" {
		tryKeyFile(settings.identityFile)
	}

	for _, keyPath := range defaultKeyFiles() {
		if keyPath == settings.identityFile {
			continue
		}
		tryKeyFile(keyPath)
	}

	if len(authMethods) == 0 {
		msg := "No SSH auth methods available"
		if len(settings.encryptedKeys) > 0 {
			msg = fmt.Sprintf("Found SSH key(s) but they're encrypted: %s", strings.Join(settings.encryptedKeys, ", "))
		}
		return nil, errors.New(errors.ErrSSH, msg,
			"Run sgebot with an ssh-agent holding the key, or use an unencrypted deploy key.")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // Opt-in via SSH_STRICT_HOST_KEY
	if opts.StrictHostKey {
		knownHostsPath := filepath.Join(homeDir(), ".ssh", "known_hosts")
		cb, err := createHostKeyCallback(knownHostsPath)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				"Failed to load known_hosts",
				"Check permissions on "+knownHostsPath)
		}
		hostKeyCallback = cb
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ssh.ClientConfig{
		User:            settings.user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

var (
	agentClient   agent.ExtendedAgent
	agentConnOnce sync.Once
)

// sshAgentAuth returns an auth method using the SSH agent if it holds any keys.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentConnOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentClient = agent.NewClient(conn)
	})

	if agentClient == nil {
		return nil
	}

	// An empty agent causes auth failures when placed before other methods.
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}

	return ssh.PublicKeysCallback(agentClient.Signers)
}

// keyFileAuth returns an auth method using a private key file.
// Returns EncryptedKeyError if the key requires a passphrase.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || bytes.Contains(key, []byte("ENCRYPTED")) {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		return nil, err
	}

	return ssh.PublicKeys(signer), nil
}

func defaultKeyFiles() []string {
	return []string{
		filepath.Join(homeDir(), ".ssh", "id_ed25519"),
		filepath.Join(homeDir(), ".ssh", "id_rsa"),
		filepath.Join(homeDir(), ".ssh", "id_ecdsa"),
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on the gateway? Try: ssh $SSH_GATEWAY_HOST"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the gateway. Check the network of the machine running sgebot."
	}
	if strings.Contains(errStr, "timeout") {
		return "Connection timed out. The gateway might be offline or blocked by a firewall."
	}
	return "Make sure the gateway is reachable: ping $SSH_GATEWAY_HOST"
}

func suggestionForHandshakeError(err error, encryptedKeys []string) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		if len(encryptedKeys) > 0 {
			return fmt.Sprintf("Your key(s) are encrypted. Load them into an agent: ssh-add %s",
				strings.Join(encryptedKeys, " "))
		}
		return "Auth failed. Check that SSH_USER's public key is in authorized_keys on both hops."
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Connect once manually to record it: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh -J $SSH_GATEWAY_HOST $SSH_MACHINE"
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return fmt.Sprintf("The server's host key doesn't match %s.\n  Remove the old entry: ssh-keygen -R %s",
		e.KnownHosts, host)
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive,
// which kevinburke/ssh_config can't parse.
func preprocessSSHConfig(configPath string) ([]byte, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	for _, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), nil
}

// createHostKeyCallback wraps the knownhosts callback to provide better error messages.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
			}
		}
		return err
	}, nil
}
