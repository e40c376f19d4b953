// Package signature verifies the HMAC-SHA256 signature the payment provider
// attaches to webhook deliveries via the x-signature header.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingHeader   = errors.New("signature header missing")
	ErrMalformedHeader = errors.New("signature header malformed")
	ErrMismatch        = errors.New("signature mismatch")
)

// Verifier checks webhook signatures against a pre-shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses a header of the form "ts=<unix-seconds>,v1=<hex-digest>" and
// compares the received digest against HMAC-SHA256 of the manifest
// "id:{paymentID};request-id:{requestID};ts:{timestamp};".
//
// Any parse failure fails closed: a request with a missing or malformed
// header is rejected, never best-effort processed.
func (v *Verifier) Verify(header, requestID, paymentID string) error {
	ts, digest, err := parseHeader(header)
	if err != nil {
		return err
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", paymentID, requestID, ts)

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal keeps the comparison constant-time.
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(digest))) {
		return ErrMismatch
	}
	return nil
}

func parseHeader(header string) (ts, digest string, err error) {
	if header == "" {
		return "", "", ErrMissingHeader
	}

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return "", "", ErrMalformedHeader
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			digest = value
		}
	}

	if !isInteger(ts) {
		return "", "", fmt.Errorf("%w: bad timestamp", ErrMalformedHeader)
	}
	if !isHex(digest) {
		return "", "", fmt.Errorf("%w: bad digest", ErrMalformedHeader)
	}
	return ts, digest, nil
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	_, err := hex.DecodeString(strings.ToLower(s))
	return err == nil
}
