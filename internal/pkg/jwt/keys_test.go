// internal/pkg/jwt/keys_test.go
package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyPair(t *testing.T) (privPath, pubPath string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath = filepath.Join(dir, "private.pem")
	pubPath = filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o644))

	return privPath, pubPath
}

func TestLoadAndBuild_RoundTrip(t *testing.T) {
	privPath, pubPath := writeKeyPair(t)

	mgr, err := LoadAndBuild(Config{
		PrivPath: privPath,
		PubPath:  pubPath,
		Issuer:   "bundl-service",
		Audience: "bundl-api",
		TTL:      time.Hour,
		KID:      "test-1",
	})
	require.NoError(t, err)

	token, jti, err := mgr.Generator.Generate("user-1", "wallet-1", "user")
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := mgr.Verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "wallet-1", claims.Wallet)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, jti, claims.ID)
}

func TestLoadAndBuild_MissingFile(t *testing.T) {
	_, pubPath := writeKeyPair(t)

	_, err := LoadAndBuild(Config{PrivPath: "/nonexistent/private.pem", PubPath: pubPath})
	assert.Error(t, err)
}

func TestReadPEMBlock_RejectsWrongType(t *testing.T) {
	privPath, _ := writeKeyPair(t)

	// The private key file holds an "RSA PRIVATE KEY" block, which readPublicKey
	// must refuse.
	_, err := readPublicKey(privPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected PEM block type")
}
