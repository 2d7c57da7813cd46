package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewTestLink returns an unguessable, URL-safe candidate access token.
func NewTestLink(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate test link: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
