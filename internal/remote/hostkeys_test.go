package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func newTestKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	k, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return k
}

var testAddr = &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 22}

func TestHostKeyStore_InsecureWhenNothingEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hosts")
	s := NewHostKeyStore(path, false, false, nil)
	cb, err := s.Callback()
	require.NoError(t, err)
	require.NoError(t, cb("10.0.0.5:22", testAddr, newTestKey(t)))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestHostKeyStore_StrictMissingFile(t *testing.T) {
	s := NewHostKeyStore(filepath.Join(t.TempDir(), "nope"), true, false, nil)
	_, err := s.Callback()
	require.Error(t, err)
	require.Equal(t, KindHostKey, classify(err))
}

func TestHostKeyStore_StrictRejectsUnknown(t *testing.T) {
	dir := t.TempDir()
	kh := writeTemp(t, dir, "known_hosts", "\n")
	s := NewHostKeyStore(kh, true, false, nil)
	cb, err := s.Callback()
	require.NoError(t, err)

	err = cb("10.0.0.5:22", testAddr, newTestKey(t))
	var keyErr *knownhosts.KeyError
	require.ErrorAs(t, err, &keyErr)
	require.Empty(t, keyErr.Want)
}

func TestHostKeyStore_AutoTrustAppendsThenVerifies(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ssh")
	path := filepath.Join(dir, "known_hosts")
	logger, hook := test.NewNullLogger()
	s := NewHostKeyStore(path, true, true, logger)

	key := newTestKey(t)
	cb, err := s.Callback()
	require.NoError(t, err)
	require.NoError(t, cb("10.0.0.5:22", testAddr, key))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "10.0.0.5 ")
	require.Contains(t, string(b), key.Type())
	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	require.Len(t, hook.AllEntries(), 1)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	// a fresh strict-only store now knows the host from the file
	strict := NewHostKeyStore(path, true, false, nil)
	cb, err = strict.Callback()
	require.NoError(t, err)
	require.NoError(t, cb("10.0.0.5:22", testAddr, key))

	// and rejects a different key for it
	err = cb("10.0.0.5:22", testAddr, newTestKey(t))
	var keyErr *knownhosts.KeyError
	require.ErrorAs(t, err, &keyErr)
	require.NotEmpty(t, keyErr.Want)
}

func TestHostKeyStore_AutoTrustRejectsChangedKey(t *testing.T) {
	dir := t.TempDir()
	known := newTestKey(t)
	path := writeTemp(t, dir, "known_hosts", knownhosts.Line([]string{knownhosts.Normalize("10.0.0.5:22")}, known)+"\n")
	s := NewHostKeyStore(path, true, true, nil)
	cb, err := s.Callback()
	require.NoError(t, err)

	require.NoError(t, cb("10.0.0.5:22", testAddr, known))
	err = cb("10.0.0.5:22", testAddr, newTestKey(t))
	require.Error(t, err)
	require.Equal(t, KindHostKey, classify(err))
}

func TestHostKeyStore_ConcurrentFirstUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hosts")
	s := NewHostKeyStore(path, false, true, nil)
	key := newTestKey(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb, err := s.Callback()
			if err == nil {
				err = cb("10.0.0.9:22", testAddr, key)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(b), "10.0.0.9"))

	// same host, other key, same process
	cb, err := s.Callback()
	require.NoError(t, err)
	require.Error(t, cb("10.0.0.9:22", testAddr, newTestKey(t)))
}
