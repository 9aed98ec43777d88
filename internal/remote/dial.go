package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// authMethods builds the ordered auth list for cred: key, password, then the
// SSH agent when SSH_AUTH_SOCK is set. The returned closer releases the agent
// connection and is never nil.
func authMethods(cred Credential) ([]ssh.AuthMethod, io.Closer, error) {
	var auths []ssh.AuthMethod
	var closer io.Closer = nopCloser{}

	if cred.KeyPath != "" {
		signer, err := loadSigner(cred.KeyPath, cred.Passphrase)
		if err != nil {
			return nil, closer, fmt.Errorf("load key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}

	if cred.Password != "" {
		auths = append(auths, ssh.Password(cred.Password))
	}

	// Try SSH agent if available
	if a := os.Getenv("SSH_AUTH_SOCK"); a != "" {
		if conn, err := net.Dial("unix", a); err == nil {
			ag := agent.NewClient(conn)
			auths = append(auths, ssh.PublicKeysCallback(ag.Signers))
			closer = conn
		}
	}

	if len(auths) == 0 {
		return nil, closer, ErrNoCredential
	}
	return auths, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// dialSSH opens the TCP connection and runs the SSH handshake, both bounded by
// timeout and ctx.
func dialSSH(ctx context.Context, target string, cfg *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	type handshake struct {
		c     ssh.Conn
		chans <-chan ssh.NewChannel
		reqs  <-chan *ssh.Request
		err   error
	}
	done := make(chan handshake, 1)
	go func() {
		c, chans, reqs, err := ssh.NewClientConn(conn, target, cfg)
		done <- handshake{c, chans, reqs, err}
	}()

	select {
	case h := <-done:
		if h.err != nil {
			_ = conn.Close()
			return nil, h.err
		}
		// Commands have their own deadlines.
		_ = conn.SetDeadline(time.Time{})
		return ssh.NewClient(h.c, h.chans, h.reqs), nil
	case <-ctx.Done():
		_ = conn.Close()
		return nil, ctx.Err()
	}
}
