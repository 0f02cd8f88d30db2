package common

import (
	"crypto/rand"
	"crypto/sha256"
)

// GenerateRandByteArray returns size bytes read from crypto/rand.
// crypto/rand never fails on supported platforms, so it panics if it does.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites b with zeros. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// HashSecret returns the SHA-256 digest under which token secrets are stored.
func HashSecret(secret []byte) []byte {
	sum := sha256.Sum256(secret)
	return sum[:]
}
