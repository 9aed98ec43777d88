package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrorKind classifies why a connection could not be established.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindTimeout     ErrorKind = "timeout"
	KindUnreachable ErrorKind = "unreachable"
	KindHostKey     ErrorKind = "host_key"
	KindOther       ErrorKind = "other"
)

// ErrHostKeyMismatch is wrapped by errors raised when a host presents a key
// different from the one already trusted for it.
var ErrHostKeyMismatch = errors.New("host key mismatch")

// ConnectionError reports a failure to open the SSH connection to Host. It is
// carried inside SessionResult, never returned by Runner.Run.
type ConnectionError struct {
	Host string
	Kind ErrorKind
	Err  error
}

func (e *ConnectionError) Error() string {
	return e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// newConnectionError wraps err and derives its Kind.
func newConnectionError(host string, err error) *ConnectionError {
	return &ConnectionError{Host: host, Kind: classify(err), Err: err}
}

// classify maps transport and handshake errors onto an ErrorKind. Typed
// checks come first; message matching covers errors the ssh package only
// reports as strings.
func classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) || errors.Is(err, ErrHostKeyMismatch) {
		return KindHostKey
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unable to authenticate"),
		strings.Contains(msg, "no supported methods remain"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "load key"):
		return KindAuth
	case strings.Contains(msg, "known_hosts"),
		strings.Contains(msg, "knownhosts"),
		strings.Contains(msg, "host key"):
		return KindHostKey
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"):
		return KindTimeout
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"):
		return KindUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindUnreachable
	}
	return KindOther
}

// PartialCommandError describes one command that ran but reported a problem
// (stderr output, non-zero exit or an execution error). It never aborts the
// remaining commands of a session.
type PartialCommandError struct {
	Command  string
	Stderr   string
	ExitCode int
	Reason   string
}

func (e *PartialCommandError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Command, e.Reason)
	case e.Stderr != "":
		return fmt.Sprintf("%s: %s", e.Command, e.Stderr)
	default:
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
}
