package remote

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultCommandTimeout = 15 * time.Second
	DefaultPort           = 22
)

// Runner opens one SSH connection per host and runs a batch of commands on
// it. A Runner holds no per-host state and may be shared by many goroutines.
type Runner struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	Port           int
	HostKeys       *HostKeyStore
	Log            logrus.FieldLogger

	dial func(ctx context.Context, addr string, cfg *ssh.ClientConfig, timeout time.Duration) (sessionClient, error)
}

// NewRunner returns a Runner with the default timeouts and port. A nil
// hostKeys accepts any host key.
func NewRunner(hostKeys *HostKeyStore, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		ConnectTimeout: DefaultConnectTimeout,
		CommandTimeout: DefaultCommandTimeout,
		Port:           DefaultPort,
		HostKeys:       hostKeys,
		Log:            log,
	}
}

// Run connects to host as cred and executes commands in order, one session
// each. Connection failures are reported in the result, never returned or
// raised; a failing command is recorded and the next one still runs. The
// connection is always closed before Run returns.
func (r *Runner) Run(ctx context.Context, host string, cred Credential, commands []string) SessionResult {
	log := r.logger().WithField("host", host)

	client, err := r.connect(ctx, host, cred)
	if err != nil {
		cerr := newConnectionError(host, err)
		log.WithFields(logrus.Fields{"kind": cerr.Kind, "error": err}).Debug("connexion SSH impossible")
		return failedSession(host, cerr)
	}
	defer func() { _ = client.Close() }()

	res := SessionResult{Host: host, Success: true, Outputs: make(map[string]CommandResult, len(commands))}
	for _, cmd := range commands {
		out := runRemoteCommand(ctx, client, cmd, r.CommandTimeout)
		if err := out.Err(); err != nil {
			log.WithField("command", cmd).WithError(err).Debug("commande en erreur")
		}
		res.Outputs[cmd] = out
	}
	return res
}

func (r *Runner) connect(ctx context.Context, host string, cred Credential) (sessionClient, error) {
	auths, closer, err := authMethods(cred)
	defer func() { _ = closer.Close() }()
	if err != nil {
		return nil, err
	}

	hostKeyCB := ssh.InsecureIgnoreHostKey()
	if r.HostKeys != nil {
		if hostKeyCB, err = r.HostKeys.Callback(); err != nil {
			return nil, err
		}
	}

	cfg := &ssh.ClientConfig{
		User:            cred.Username,
		Auth:            auths,
		HostKeyCallback: hostKeyCB,
		Timeout:         r.connectTimeout(),
	}

	dial := r.dial
	if dial == nil {
		dial = func(ctx context.Context, addr string, cfg *ssh.ClientConfig, timeout time.Duration) (sessionClient, error) {
			c, err := dialSSH(ctx, addr, cfg, timeout)
			if err != nil {
				return nil, err
			}
			return sshClientWrapper{c}, nil
		}
	}
	return dial(ctx, r.hostAddr(host), cfg, r.connectTimeout())
}

// hostAddr appends the configured port unless host already carries one.
func (r *Runner) hostAddr(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	port := r.Port
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (r *Runner) connectTimeout() time.Duration {
	if r.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return r.ConnectTimeout
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}
