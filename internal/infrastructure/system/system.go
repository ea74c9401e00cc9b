package system

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

type Clock struct{}

func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// TokenGenerator issues unguessable signing tokens: 32 random bytes,
// URL-safe base64 without padding.
type TokenGenerator struct{}

func (TokenGenerator) NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
