package remediate

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

// RunnerConfig describes the bastion host diagnostics run against
type RunnerConfig struct {
	Host           string
	Port           int
	User           string
	PrivateKeyPath string
	// Timeout bounds the TCP dial; command execution is bounded by the
	// caller's context.
	Timeout time.Duration
}

// Runner executes read-only diagnostic commands over SSH
type Runner struct {
	cfg    RunnerConfig
	signer ssh.Signer
}

// NewRunner loads the private key and prepares an SSH runner
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ssh runner requires a host")
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	keyBytes, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh key %s: %w", cfg.PrivateKeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh key: %w", err)
	}

	return &Runner{cfg: cfg, signer: signer}, nil
}

// Run executes one command on the bastion and returns combined output
func (r *Runner) Run(ctx context.Context, command string) (string, error) {
	addr := net.JoinHostPort(r.cfg.Host, fmt.Sprintf("%d", r.cfg.Port))

	clientConfig := &ssh.ClientConfig{
		User:            r.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(r.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // bastion host key pinning is operator-managed
		Timeout:         r.cfg.Timeout,
	}

	dialer := net.Dialer{Timeout: r.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to reach bastion %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close() //nolint:errcheck
		return "", fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close() //nolint:errcheck

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer session.Close() //nolint:errcheck

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case err := <-done:
		if err != nil {
			return output.String(), fmt.Errorf("command failed: %w", err)
		}
		return output.String(), nil
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return output.String(), fmt.Errorf("command canceled: %w", ctx.Err())
	}
}
