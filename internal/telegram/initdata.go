// Package telegram verifies Telegram WebApp login payloads and sends bot messages.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxAge bounds how old an accepted auth_date may be.
const DefaultMaxAge = 24 * time.Hour

const webAppDataKey = "WebAppData"

var (
	// ErrVerificationFailed wraps every rejection of a login payload.
	ErrVerificationFailed = errors.New("init data verification failed")
	// ErrMissingBotToken is returned when no bot token is configured.
	ErrMissingBotToken = fmt.Errorf("%w: bot token is not configured", ErrVerificationFailed)
)

// Claim is the identity embedded in the signed payload's "user" field.
type Claim struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// InitData is a verified login payload.
type InitData struct {
	Claim    Claim
	AuthDate time.Time
}

// InitDataVerifier checks WebApp initData signatures against the bot token.
type InitDataVerifier struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

// NewInitDataVerifier creates a verifier. A non-positive maxAge selects DefaultMaxAge.
func NewInitDataVerifier(botToken string, maxAge time.Duration) *InitDataVerifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &InitDataVerifier{
		botToken: botToken,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (v *InitDataVerifier) WithClock(now func() time.Time) *InitDataVerifier {
	v.now = now
	return v
}

// VerifyString parses a raw query-string payload and verifies it.
func (v *InitDataVerifier) VerifyString(raw string) (*InitData, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: payload is empty", ErrVerificationFailed)
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed payload", ErrVerificationFailed)
	}
	return v.Verify(values)
}

// Verify checks the hash and freshness of the payload and parses the claim.
func (v *InitDataVerifier) Verify(values url.Values) (*InitData, error) {
	if v.botToken == "" {
		return nil, ErrMissingBotToken
	}

	fields := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			fields[key] = vals[0]
		}
	}

	received, ok := fields["hash"]
	if !ok || received == "" {
		return nil, fmt.Errorf("%w: hash is missing", ErrVerificationFailed)
	}
	delete(fields, "hash")

	rawAuthDate, ok := fields["auth_date"]
	if !ok {
		return nil, fmt.Errorf("%w: auth_date is missing", ErrVerificationFailed)
	}
	authDate, err := strconv.ParseInt(rawAuthDate, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: auth_date is not an integer", ErrVerificationFailed)
	}

	age := v.now().Unix() - authDate
	if age > int64(v.maxAge/time.Second) {
		return nil, fmt.Errorf("%w: auth_date is older than %s", ErrVerificationFailed, v.maxAge)
	}

	expected := Sign(v.botToken, fields)
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return nil, fmt.Errorf("%w: hash mismatch", ErrVerificationFailed)
	}

	var claim Claim
	if rawUser, ok := fields["user"]; ok && rawUser != "" {
		if err := json.Unmarshal([]byte(rawUser), &claim); err != nil {
			return nil, fmt.Errorf("%w: user claim is malformed", ErrVerificationFailed)
		}
	}

	return &InitData{
		Claim:    claim,
		AuthDate: time.Unix(authDate, 0).UTC(),
	}, nil
}

// Sign computes the hex signature Telegram attaches to a payload with the
// given fields. The "hash" field must not be among them.
func Sign(botToken string, fields map[string]string) string {
	secret := hmacSHA256([]byte(webAppDataKey), []byte(botToken))
	return hex.EncodeToString(hmacSHA256(secret, []byte(DataCheckString(fields))))
}

// DataCheckString joins key=value pairs sorted by key with newlines.
func DataCheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, key := range keys {
		lines[i] = key + "=" + fields[key]
	}
	return strings.Join(lines, "\n")
}

func hmacSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(msg)
	return mac.Sum(nil)
}
