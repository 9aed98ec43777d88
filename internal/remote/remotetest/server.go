// Package remotetest runs an in-process SSH server that answers exec requests
// from a fixed table of replies. It stands in for a real host in tests and in
// the local lab server.
package remotetest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Reply is what the server sends back for one command.
type Reply struct {
	Stdout     string
	Stderr     string
	ExitStatus uint32
	// Delay is waited before anything is written.
	Delay time.Duration
}

// NotFound is sent for commands missing from the reply table.
var NotFound = Reply{Stderr: "command not found", ExitStatus: 127}

// Server is a running fake host.
type Server struct {
	ln       net.Listener
	cfg      *ssh.ServerConfig
	hostKey  ssh.Signer
	replies  map[string]Reply
	fallback Reply

	mu       sync.Mutex
	commands []string
	conns    int

	wg   sync.WaitGroup
	done chan struct{}
}

// Option customizes a Server before it starts.
type Option func(*Server)

// WithPassword requires password auth with the given pair.
func WithPassword(user, password string) Option {
	return func(s *Server) {
		s.cfg.NoClientAuth = false
		s.cfg.PasswordCallback = func(c ssh.ConnMetadata, p []byte) (*ssh.Permissions, error) {
			if c.User() == user && string(p) == password {
				return nil, nil
			}
			return nil, errors.New("permission denied")
		}
	}
}

// WithAuthorizedKey accepts public key auth for key.
func WithAuthorizedKey(key ssh.PublicKey) Option {
	return func(s *Server) {
		s.cfg.NoClientAuth = false
		s.cfg.PublicKeyCallback = func(_ ssh.ConnMetadata, k ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(k.Marshal(), key.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("unknown key")
		}
	}
}

// WithRejectAll makes every authentication attempt fail.
func WithRejectAll() Option {
	return func(s *Server) {
		s.cfg.NoClientAuth = false
		s.cfg.PasswordCallback = func(ssh.ConnMetadata, []byte) (*ssh.Permissions, error) {
			return nil, errors.New("permission denied")
		}
		s.cfg.PublicKeyCallback = func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error) {
			return nil, errors.New("permission denied")
		}
	}
}

// WithFallback replaces NotFound for unknown commands.
func WithFallback(r Reply) Option {
	return func(s *Server) { s.fallback = r }
}

// Start listens on listenAddr (e.g. 127.0.0.1:0) and serves until Close.
func Start(listenAddr string, replies map[string]Reply, opts ...Option) (*Server, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      &ssh.ServerConfig{NoClientAuth: true},
		hostKey:  signer,
		replies:  replies,
		fallback: NotFound,
		done:     make(chan struct{}),
	}
	s.cfg.AddHostKey(signer)
	for _, o := range opts {
		o(s)
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}
	s.ln = ln

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// HostKey is the server's public host key.
func (s *Server) HostKey() ssh.PublicKey { return s.hostKey.PublicKey() }

// Commands returns every command received so far, in arrival order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Connections counts completed SSH handshakes.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

// Close stops accepting connections and waits for the accept loop to exit.
func (s *Server) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(raw net.Conn) {
	sc, chans, reqs, err := ssh.NewServerConn(raw, s.cfg)
	if err != nil {
		_ = raw.Close()
		return
	}
	defer func() { _ = sc.Close() }()

	s.mu.Lock()
	s.conns++
	s.mu.Unlock()

	go ssh.DiscardRequests(reqs)
	for ch := range chans {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "")
			continue
		}
		c, in, err := ch.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(c, in)
	}
}

func (s *Server) handleSession(ch ssh.Channel, in <-chan *ssh.Request) {
	defer func() { _ = ch.Close() }()
	for req := range in {
		switch req.Type {
		case "env", "pty-req":
			_ = req.Reply(true, nil)
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				_ = req.Reply(false, nil)
				return
			}
			_ = req.Reply(true, nil)
			s.exec(ch, payload.Command)
			return
		default:
			_ = req.Reply(false, nil)
		}
	}
}

func (s *Server) exec(ch ssh.Channel, cmd string) {
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()

	r, ok := s.replies[cmd]
	if !ok {
		r = s.fallback
	}
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-s.done:
		}
	}
	if r.Stdout != "" {
		_, _ = ch.Write([]byte(r.Stdout))
	}
	if r.Stderr != "" {
		_, _ = ch.Stderr().Write([]byte(r.Stderr))
	}
	status := struct{ Status uint32 }{r.ExitStatus}
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(&status))
}
