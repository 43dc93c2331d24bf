package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// RandomHex returns a hex string of n random bytes (2n characters).
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RandomBackupCode returns an 8-character uppercase alphanumeric code.
func RandomBackupCode() (string, error) {
	s, err := RandomHex(4)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}
