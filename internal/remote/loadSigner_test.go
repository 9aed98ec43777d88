package remote

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSigner_FileNotFound(t *testing.T) {
	_, err := loadSigner(filepath.Join(t.TempDir(), "missing_key"), "")
	require.Error(t, err)
}

func TestLoadSigner_RSAKey_Success(t *testing.T) {
	tmp := t.TempDir()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	b := x509.MarshalPKCS1PrivateKey(key)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: b})
	p := writeTemp(t, tmp, "id_rsa", string(pemBytes))
	s, err := loadSigner(p, "")
	require.NoError(t, err)
	require.NotNil(t, s.PublicKey())
}

func TestLoadSigner_Ed25519Key_Success(t *testing.T) {
	p, pub := writeEd25519Key(t, t.TempDir(), "id_ed25519", "")
	s, err := loadSigner(p, "")
	require.NoError(t, err)
	require.Equal(t, pub.Marshal(), s.PublicKey().Marshal())
}

func TestLoadSigner_EncryptedKey_MissingPassphrase(t *testing.T) {
	p, _ := writeEd25519Key(t, t.TempDir(), "id_ed25519", "pp")
	_, err := loadSigner(p, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "chiffrée")
	require.Contains(t, err.Error(), "NTL_SYSTOOLBOX_PASSPHRASE")
}

func TestLoadSigner_EncryptedKey_WithPassphrase(t *testing.T) {
	p, pub := writeEd25519Key(t, t.TempDir(), "id_ed25519", "pp")
	s, err := loadSigner(p, "pp")
	require.NoError(t, err)
	require.Equal(t, pub.Marshal(), s.PublicKey().Marshal())
}

func TestLoadSigner_EncryptedKey_WrongPassphrase(t *testing.T) {
	p, _ := writeEd25519Key(t, t.TempDir(), "id_ed25519", "pp")
	_, err := loadSigner(p, "nope")
	require.Error(t, err)
}

func TestLoadSigner_Garbage(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "id_rsa", "not a key")
	_, err := loadSigner(p, "")
	require.Error(t, err)
}
