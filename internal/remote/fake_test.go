package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type fakeReply struct {
	stdout, stderr string
	err            error
	delay          time.Duration
}

// fakeClient hands out sessions that answer from a reply table.
type fakeClient struct {
	mu       sync.Mutex
	replies  map[string]fakeReply
	newErr   error
	ran      []string
	sessions []*fakeSession
	closed   bool
}

func (c *fakeClient) NewSession() (session, error) {
	if c.newErr != nil {
		return nil, c.newErr
	}
	s := &fakeSession{client: c}
	c.mu.Lock()
	c.sessions = append(c.sessions, s)
	c.mu.Unlock()
	return s, nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeSession struct {
	client *fakeClient
	closed bool
}

func (s *fakeSession) Output(cmd string) ([]byte, []byte, error) {
	s.client.mu.Lock()
	s.client.ran = append(s.client.ran, cmd)
	r := s.client.replies[cmd]
	s.client.mu.Unlock()
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return []byte(r.stdout), []byte(r.stderr), r.err
}

func (s *fakeSession) Close() error {
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	s.closed = true
	return nil
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// writeEd25519Key stores a fresh OpenSSH private key at dir/name and returns
// its path and public half.
func writeEd25519Key(t *testing.T, dir, name, passphrase string) (string, ssh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	}
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return writeTemp(t, dir, name, string(pem.EncodeToMemory(block))), sshPub
}
