package encryption_test

import (
	"os"
	"path/filepath"
	"testing"

	"gpsbridge/pkg/encryption"
	"gpsbridge/pkg/file"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, key string) *encryption.SignatureManager {
	t.Helper()

	keyPath := filepath.Join(t.TempDir(), "signing.key")
	require.NoError(t, os.WriteFile(keyPath, []byte(key), 0o600))

	manager := encryption.NewSignatureManager(file.NewFileService())
	require.NoError(t, manager.Initialize(keyPath))
	return manager
}

// TestSignatureManager_SignAndVerify tests the sign/verify round trip.
func TestSignatureManager_SignAndVerify(t *testing.T) {
	manager := newManager(t, "super-secret-key\n")

	payload := []byte(`{"version":"1.3.0"}`)
	signed, err := manager.Sign(payload)
	assert.NoError(t, err)
	assert.Equal(t, len(payload)+encryption.SignatureSize, len(signed))

	recovered, ok := manager.Verify(signed)
	assert.True(t, ok)
	assert.Equal(t, payload, recovered)
}

// TestSignatureManager_RejectsTamperedPayload tests that flipping a byte
// anywhere in the signed blob fails verification.
func TestSignatureManager_RejectsTamperedPayload(t *testing.T) {
	manager := newManager(t, "super-secret-key")

	signed, err := manager.Sign([]byte("hello"))
	assert.NoError(t, err)

	signed[0] ^= 0xff
	_, ok := manager.Verify(signed)
	assert.False(t, ok)
}

// TestSignatureManager_RejectsShortPayload tests that a blob shorter
// than the signature trailer is rejected outright.
func TestSignatureManager_RejectsShortPayload(t *testing.T) {
	manager := newManager(t, "super-secret-key")

	_, ok := manager.Verify([]byte("short"))
	assert.False(t, ok)
}

// TestSignatureManager_RejectsWrongKey tests that a payload signed with
// a different key does not verify.
func TestSignatureManager_RejectsWrongKey(t *testing.T) {
	signer := newManager(t, "key-one")
	verifier := newManager(t, "key-two")

	signed, err := signer.Sign([]byte("payload"))
	assert.NoError(t, err)

	_, ok := verifier.Verify(signed)
	assert.False(t, ok)
}

// TestSignatureManager_RequiresInitialization tests the uninitialized
// error paths.
func TestSignatureManager_RequiresInitialization(t *testing.T) {
	manager := encryption.NewSignatureManager(file.NewFileService())

	_, err := manager.Sign([]byte("payload"))
	assert.Error(t, err)

	_, ok := manager.Verify(make([]byte, encryption.SignatureSize+1))
	assert.False(t, ok)
}

// TestSignatureManager_EmptyKeyFile tests that an all-whitespace key
// file is rejected during initialization.
func TestSignatureManager_EmptyKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "signing.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("  \n"), 0o600))

	manager := encryption.NewSignatureManager(file.NewFileService())
	assert.Error(t, manager.Initialize(keyPath))
}
