// Package slacksig verifies Slack webhook request signatures against the
// app's signing secret. Comparison uses constant-time equality to prevent
// timing side-channel attacks.
package slacksig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Slack signs requests with header versioning; only v0 exists today.
const version = "v0"

// MaxSkew is the replay window: requests whose timestamp differs from the
// local clock by more than this are rejected.
const MaxSkew = 300 * time.Second

// Header names used by Slack's request signing scheme.
const (
	SignatureHeader = "X-Slack-Signature"
	TimestampHeader = "X-Slack-Request-Timestamp"
)

var (
	// ErrMissingHeaders means the signature or timestamp header was absent.
	ErrMissingHeaders = errors.New("slacksig: missing signature headers")

	// ErrBadTimestamp means the timestamp header did not parse as an epoch value.
	ErrBadTimestamp = errors.New("slacksig: timestamp is not a numeric epoch value")

	// ErrStaleTimestamp means the request fell outside the replay window.
	ErrStaleTimestamp = errors.New("slacksig: timestamp outside replay window")

	// ErrMismatch means the computed signature did not match the supplied one.
	ErrMismatch = errors.New("slacksig: signature mismatch")
)

// Verifier checks request signatures. The clock is injectable for tests;
// a nil now uses time.Now.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// New creates a Verifier for the given signing secret.
func New(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// NewAt creates a Verifier with a fixed clock source.
func NewAt(secret string, now func() time.Time) *Verifier {
	return &Verifier{secret: []byte(secret), now: now}
}

// Verify authenticates a request from its signature header, timestamp header,
// and raw body. It is a pure function of its inputs, the secret, and the
// current time. A nil error means the request is authentic and fresh.
func (v *Verifier) Verify(signature, timestamp string, body []byte) error {
	if signature == "" || timestamp == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseFloat(timestamp, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadTimestamp, timestamp)
	}

	skew := v.now().Sub(time.Unix(int64(ts), 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxSkew {
		return ErrStaleTimestamp
	}

	base := fmt.Sprintf("%s:%d:%s", version, int64(ts), body)
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(base))
	expected := version + "=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrMismatch
	}
	return nil
}
