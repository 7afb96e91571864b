// Package auth implements the shared-secret bearer token scheme used at the
// API edge. A token is the base64 encoding of "<unix>.<hex hmac>", where the
// HMAC-SHA256 is computed over the decimal unix-seconds string with the
// shared secret as the key. Tokens expire after a configured lifetime.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

// Tokens holds the shared secret and token lifetime.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// New creates a token issuer/verifier with the given shared secret and
// lifetime.
func New(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Issue returns a fresh token stamped with the current time.
func (t *Tokens) Issue() string {
	return t.IssueAt(time.Now())
}

// IssueAt is like Issue but lets the caller supply the timestamp (useful for
// deterministic testing).
func (t *Tokens) IssueAt(now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	raw := ts + "." + t.sign(ts)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Verify checks a token's shape, signature, and age. It returns
// domain.ErrUnauthorized for every failure mode so callers cannot distinguish
// which check rejected.
func (t *Tokens) Verify(token string) error {
	return t.VerifyAt(token, time.Now())
}

// VerifyAt is like Verify but lets the caller supply the current time.
func (t *Tokens) VerifyAt(token string, now time.Time) error {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("%w: malformed token", domain.ErrUnauthorized)
	}

	ts, sig, ok := strings.Cut(string(raw), ".")
	if !ok {
		return fmt.Errorf("%w: malformed token", domain.ErrUnauthorized)
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", domain.ErrUnauthorized)
	}

	if !hmac.Equal([]byte(sig), []byte(t.sign(ts))) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrUnauthorized)
	}

	issued := time.Unix(unix, 0)
	if now.Sub(issued) > t.ttl {
		return fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	}

	return nil
}

// sign computes the hex HMAC-SHA256 of the timestamp string.
func (t *Tokens) sign(ts string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(ts))
	return hex.EncodeToString(mac.Sum(nil))
}
