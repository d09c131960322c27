package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// inviteTokenBytes yields a 24 character token, short enough for a Telegram
// start parameter.
const inviteTokenBytes = 18

// GenerateInviteToken generates a random URL-safe invite token
func GenerateInviteToken() (string, error) {
	bytes := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
