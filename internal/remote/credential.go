package remote

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNoCredential is returned when no key was supplied and none of the
// conventional key files exist in the SSH directory.
var ErrNoCredential = errors.New("aucune clé SSH trouvée")

// DefaultKeyNames lists the private key file names probed under ~/.ssh, in
// priority order.
var DefaultKeyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa", "id_dsa"}

// Credential carries what is needed to authenticate one SSH user. It is never
// persisted.
type Credential struct {
	Username   string
	KeyPath    string
	Passphrase string
	Password   string
}

// DefaultSSHDir returns the invoking user's ~/.ssh directory.
func DefaultSSHDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ssh"), nil
}

// FindKey returns the first existing key among DefaultKeyNames in sshDir.
func FindKey(sshDir string) (string, bool) {
	if sshDir == "" {
		return "", false
	}
	if fi, err := os.Stat(sshDir); err != nil || !fi.IsDir() {
		return "", false
	}
	for _, name := range DefaultKeyNames {
		p := filepath.Join(sshDir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
	}
	return "", false
}

// ResolveCredential fills in KeyPath from sshDir when the credential carries
// neither a key nor a password. It fails with ErrNoCredential when nothing
// usable can be found.
func ResolveCredential(cred Credential, sshDir string) (Credential, error) {
	if cred.KeyPath != "" || cred.Password != "" {
		return cred, nil
	}
	key, ok := FindKey(sshDir)
	if !ok {
		return cred, ErrNoCredential
	}
	cred.KeyPath = key
	return cred, nil
}
