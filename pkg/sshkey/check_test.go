package sshkey

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func writeEd25519(t *testing.T, dir, name string, passphrase []byte) ssh.PublicKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase != nil {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "test", passphrase)
	} else {
		block, err = ssh.MarshalPrivateKey(priv, "test")
	}
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), pem.EncodeToMemory(block), 0o600))

	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return sshPub
}

func TestCheckKey_Valid(t *testing.T) {
	dir := t.TempDir()
	pub := writeEd25519(t, dir, "id_ed25519", nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ed25519.pub"), ssh.MarshalAuthorizedKey(pub), 0o644))

	res := CheckKey(context.Background(), dir, runconfig.KeyEd25519)
	assert.True(t, res.OK(), "%+v", res)
	assert.Equal(t, ssh.FingerprintSHA256(pub), res.Details)
}

func TestCheckKey_PassphraseProtected(t *testing.T) {
	dir := t.TempDir()
	writeEd25519(t, dir, "id_ed25519", []byte("hunter2"))

	res := CheckKey(context.Background(), dir, runconfig.KeyEd25519)
	assert.True(t, res.OK(), "%+v", res)
	assert.Contains(t, res.Message, "passphrase protected")
}

func TestCheckKey_Missing(t *testing.T) {
	res := CheckKey(context.Background(), t.TempDir(), runconfig.KeyRSA)
	assert.Equal(t, StatusWarn, res.Status)
	assert.Contains(t, res.Details, "ssh-keygen -t rsa")
}

func TestCheckKey_TypeMismatch(t *testing.T) {
	dir := t.TempDir()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ed25519"), pemBytes, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ecdsa"), pemBytes, 0o600))

	res := CheckKey(context.Background(), dir, runconfig.KeyEd25519)
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Message, "ecdsa-sha2-nistp256")

	res = CheckKey(context.Background(), dir, runconfig.KeyECDSA)
	assert.True(t, res.OK(), "%+v", res)
}

func TestCheckKey_Garbage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_dsa"), []byte("not a key\n"), 0o600))

	res := CheckKey(context.Background(), dir, runconfig.KeyDSA)
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, "not a valid SSH private key", res.Message)
}

func TestCheckKey_LoosePermissions(t *testing.T) {
	dir := t.TempDir()
	writeEd25519(t, dir, "id_ed25519", nil)
	require.NoError(t, os.Chmod(filepath.Join(dir, "id_ed25519"), 0o644))

	res := CheckKey(context.Background(), dir, runconfig.KeyEd25519)
	assert.Equal(t, StatusWarn, res.Status)
	assert.Contains(t, res.Details, "chmod 600")
}

func TestCheckKey_PublicKeyMismatch(t *testing.T) {
	dir := t.TempDir()
	writeEd25519(t, dir, "id_ed25519", nil)
	other := writeEd25519(t, t.TempDir(), "other", nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ed25519.pub"), ssh.MarshalAuthorizedKey(other), 0o644))

	res := CheckKey(context.Background(), dir, runconfig.KeyEd25519)
	assert.Equal(t, StatusWarn, res.Status)
	assert.Contains(t, res.Message, "does not match")
}
