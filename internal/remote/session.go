package remote

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// session is a minimal interface for running one command and closing
type session interface {
	Output(cmd string) (stdout, stderr []byte, err error)
	Close() error
}

// sessionClient is the part of an SSH connection the runner needs: a source
// of command sessions that can be closed once the host is done.
type sessionClient interface {
	NewSession() (session, error)
	Close() error
}

// sshClientWrapper adapts *ssh.Client to sessionClient
type sshClientWrapper struct {
	c *ssh.Client
}

// NewSession opens a new exec channel on the underlying *ssh.Client and wraps
// it in a session-compatible adapter.
func (w sshClientWrapper) NewSession() (session, error) {
	if w.c == nil {
		return nil, fmt.Errorf("nil ssh client")
	}
	s, err := w.c.NewSession()
	if err != nil {
		return nil, err
	}
	return sshSessionWrapper{s}, nil
}

func (w sshClientWrapper) Close() error {
	if w.c == nil {
		return nil
	}
	return w.c.Close()
}

// sshSessionWrapper adapts *ssh.Session to session, keeping stdout and stderr
// apart.
type sshSessionWrapper struct {
	s *ssh.Session
}

func (w sshSessionWrapper) Output(cmd string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	w.s.Stdout = &stdout
	w.s.Stderr = &stderr
	err := w.s.Run(cmd)
	return stdout.Bytes(), stderr.Bytes(), err
}

func (w sshSessionWrapper) Close() error {
	return w.s.Close()
}
