package terminal

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/codehedgehog/virtlab/internal/controller"
)

const sshDialTimeout = 10 * time.Second

// Default PTY geometry; matches the cast header written by the recorder.
const (
	ptyCols = 80
	ptyRows = 24
)

// shellStream adapts an SSH PTY session to io.ReadWriteCloser. With a
// PTY allocated, stderr arrives merged into the stdout stream.
type shellStream struct {
	stdin   io.WriteCloser
	stdout  io.Reader
	session *ssh.Session
	client  *ssh.Client
}

func (s *shellStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *shellStream) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

func (s *shellStream) Close() error {
	s.session.Close()
	return s.client.Close()
}

// DialShell opens an interactive PTY shell on the target over SSH,
// authenticated with the target's private key. Guests are short-lived
// and their host keys are generated on first boot, so host key
// verification is skipped.
func DialShell(ctx context.Context, target controller.Target) (io.ReadWriteCloser, error) {
	key, err := os.ReadFile(target.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh key: %w", err)
	}

	config := &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         sshDialTimeout,
	}

	addr := net.JoinHostPort(target.Host, target.Port)
	client, err := sshDialContext(ctx, addr, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create ssh session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm-256color", ptyRows, ptyCols, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	return &shellStream{
		stdin:   stdin,
		stdout:  stdout,
		session: session,
		client:  client,
	}, nil
}

// sshDialContext is ssh.Dial with the TCP connect bounded by ctx.
func sshDialContext(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}
