package cryptox

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Purposes for keys derived from the master signing secret.
const (
	PurposeSession = "agentauth/session/v1"
	PurposeAgent   = "agentauth/agent/v1"
)

var ErrEmptySecret = errors.New("cryptox: master secret is empty")

// DeriveKey expands a master secret into a 32-byte key bound to purpose
// using HKDF-SHA256. Keys for different purposes are independent, so a
// session token never verifies as an agent token and vice versa.
func DeriveKey(master []byte, purpose string) ([]byte, error) {
	if len(master) == 0 {
		return nil, ErrEmptySecret
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, master, nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("cryptox: derive %s: %w", purpose, err)
	}
	return key, nil
}
