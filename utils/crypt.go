package utils

import (
	"crypto/rand"
	"encoding/hex"
)

func RandomHexString(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// RandomID returns a 16 hex chars identifier and panics if the system
// random source fails.
func RandomID() string {
	s, err := RandomHexString(8)
	if err != nil {
		panic(err)
	}
	return s
}
