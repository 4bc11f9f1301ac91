package domain

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const addressByteLen = 32

// ValidateAddress checks that s is a base58-encoded 32-byte identity
// (mint reference or authority key). Returns ErrInvalidInput wrapped with
// the reason on failure.
func ValidateAddress(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidInput)
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: address %q is not base58", ErrInvalidInput, s)
	}
	if len(decoded) != addressByteLen {
		return fmt.Errorf("%w: address %q decodes to %d bytes, want %d", ErrInvalidInput, s, len(decoded), addressByteLen)
	}
	return nil
}

// IsOnCurve reports whether the address is a valid ed25519 point, i.e. a
// key that can sign (wallet authorities are on-curve; derived program
// addresses are not). Invalid encodings report false.
func IsOnCurve(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != addressByteLen {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
