package remote

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyStore decides whether a server host key is acceptable.
//
//   - AutoTrust: known keys are verified, unknown hosts are accepted and
//     appended to the known_hosts file, changed keys are rejected.
//   - Strict (without AutoTrust): keys must already be in known_hosts.
//   - neither: any key is accepted and nothing is written.
//
// A store is safe for concurrent use by many dialing workers.
type HostKeyStore struct {
	path      string
	strict    bool
	autoTrust bool
	log       logrus.FieldLogger

	mu      sync.Mutex
	trusted map[string]ssh.PublicKey
}

// NewHostKeyStore builds a store backed by the known_hosts file at path.
func NewHostKeyStore(path string, strict, autoTrust bool, log logrus.FieldLogger) *HostKeyStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HostKeyStore{
		path:      path,
		strict:    strict,
		autoTrust: autoTrust,
		log:       log,
		trusted:   make(map[string]ssh.PublicKey),
	}
}

// Path returns the known_hosts file the store reads and writes.
func (s *HostKeyStore) Path() string { return s.path }

// Callback returns the ssh.HostKeyCallback for one dial. The known_hosts file
// is re-read each time so keys trusted by other workers are picked up.
func (s *HostKeyStore) Callback() (ssh.HostKeyCallback, error) {
	if !s.strict && !s.autoTrust {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var known ssh.HostKeyCallback
	if _, err := os.Stat(s.path); err == nil {
		cb, err := knownhosts.New(s.path)
		if err != nil {
			return nil, fmt.Errorf("known_hosts: %w", err)
		}
		known = cb
	} else if !s.autoTrust {
		return nil, fmt.Errorf("known_hosts file not found at %s and strict-host-key is enabled", s.path)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		return s.check(known, hostname, remote, key)
	}, nil
}

func (s *HostKeyStore) check(known ssh.HostKeyCallback, hostname string, remote net.Addr, key ssh.PublicKey) error {
	if known != nil {
		err := known(hostname, remote, key)
		if err == nil {
			return nil
		}
		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) || len(keyErr.Want) > 0 || !s.autoTrust {
			return err
		}
	}
	return s.trust(hostname, key)
}

// trust records key for hostname in memory and in the known_hosts file.
func (s *HostKeyStore) trust(hostname string, key ssh.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := knownhosts.Normalize(hostname)
	if prev, ok := s.trusted[addr]; ok {
		if bytes.Equal(prev.Marshal(), key.Marshal()) {
			return nil
		}
		return fmt.Errorf("%w for %s: expected %s, got %s", ErrHostKeyMismatch, addr,
			ssh.FingerprintSHA256(prev), ssh.FingerprintSHA256(key))
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("known_hosts: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("known_hosts: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := fmt.Fprintln(f, knownhosts.Line([]string{addr}, key)); err != nil {
		return fmt.Errorf("known_hosts: %w", err)
	}

	s.trusted[addr] = key
	s.log.WithFields(logrus.Fields{
		"host":        addr,
		"fingerprint": ssh.FingerprintSHA256(key),
		"file":        s.path,
	}).Warn("clé d'hôte inconnue acceptée à la première connexion")
	return nil
}
