// Package encryption verifies the authenticity of payloads exchanged
// with the backend. Signed payloads carry an HMAC-SHA256 trailer over
// the payload bytes, computed with a shared key.
package encryption

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"strings"

	"gpsbridge/pkg/file"
)

// SignatureSize is the length of the HMAC-SHA256 trailer in bytes.
const SignatureSize = sha256.Size

// SignatureVerifier signs payloads and verifies signed ones.
type SignatureVerifier interface {
	// Sign returns payload with its signature appended.
	Sign(payload []byte) ([]byte, error)
	// Verify splits a signed payload and reports whether the signature
	// matches. On success it returns the payload without the trailer.
	Verify(signed []byte) ([]byte, bool)
}

// SignatureManager implements SignatureVerifier with a key loaded from a
// file.
type SignatureManager struct {
	signingKey []byte
	fileClient file.FileOperations
}

// NewSignatureManager creates an uninitialized SignatureManager.
func NewSignatureManager(fileClient file.FileOperations) *SignatureManager {
	return &SignatureManager{fileClient: fileClient}
}

// Initialize loads the signing key from keyPath.
func (s *SignatureManager) Initialize(keyPath string) error {
	raw, err := s.fileClient.ReadFile(keyPath)
	if err != nil {
		return err
	}
	key := strings.TrimSpace(raw)
	if key == "" {
		return errors.New("signing key file is empty")
	}
	s.signingKey = []byte(key)
	return nil
}

func (s *SignatureManager) Sign(payload []byte) ([]byte, error) {
	if len(s.signingKey) == 0 {
		return nil, errors.New("signing key not initialized")
	}
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write(payload)
	return append(append([]byte{}, payload...), mac.Sum(nil)...), nil
}

func (s *SignatureManager) Verify(signed []byte) ([]byte, bool) {
	if len(s.signingKey) == 0 || len(signed) <= SignatureSize {
		return nil, false
	}
	payload := signed[:len(signed)-SignatureSize]
	signature := signed[len(signed)-SignatureSize:]

	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write(payload)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil, false
	}
	return payload, true
}
