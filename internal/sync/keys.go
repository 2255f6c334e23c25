// ABOUTME: Sync key generation and validation
// ABOUTME: Keys are 8 characters over [a-z0-9]; input is trimmed and case-folded

package sync

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// KeyLength is the exact length of a sync key.
	KeyLength   = 8
	keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// KeyError reports a malformed sync key.
type KeyError struct {
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid sync key %q: %s", e.Key, e.Reason)
}

// NewKey returns a random sync key.
func NewKey() (string, error) {
	var b strings.Builder
	b.Grow(KeyLength)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := 0; i < KeyLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate sync key: %w", err)
		}
		b.WriteByte(keyAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeKey trims and lower-cases s and checks it is a well-formed key.
func NormalizeKey(s string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if len(key) != KeyLength {
		return "", &KeyError{Key: s, Reason: fmt.Sprintf("must be exactly %d characters", KeyLength)}
	}
	for _, r := range key {
		if !strings.ContainsRune(keyAlphabet, r) {
			return "", &KeyError{Key: s, Reason: "only letters and digits are allowed"}
		}
	}
	return key, nil
}

// ValidateKey reports whether s is usable as a sync key. Any well-formed key
// is usable; unknown keys simply start with an empty history.
func ValidateKey(s string) bool {
	_, err := NormalizeKey(s)
	return err == nil
}
