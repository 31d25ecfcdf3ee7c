package qrsign

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wrc-program/attendance/internal/program"
)

// ServerSecret is the service-wide HMAC key. It never leaves the server.
type ServerSecret []byte

// AttendeeSecret is the random per-attendee value mixed into every signed
// payload for that attendee.
type AttendeeSecret string

const attendeeSecretBytes = 32

// ErrEmptyServerSecret is returned when constructing a Signer without a key.
var ErrEmptyServerSecret = errors.New("qr signature secret is required")

// Signer derives and checks per-attendee, per-day QR signatures.
type Signer struct {
	key ServerSecret
}

// NewSigner builds a Signer keyed by the server secret.
func NewSigner(key ServerSecret) (*Signer, error) {
	if len(key) == 0 {
		return nil, ErrEmptyServerSecret
	}
	k := make(ServerSecret, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// Sign returns hex(HMAC-SHA256(server, "uid:day:attendeeSecret")).
func (s *Signer) Sign(uid string, day program.Day, secret AttendeeSecret) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload(uid, day, secret)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares it in constant time.
func (s *Signer) Verify(uid string, day program.Day, signature string, secret AttendeeSecret) bool {
	expected := s.Sign(uid, day, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerificationURL builds the link encoded in an attendee's QR code for day.
func (s *Signer) VerificationURL(baseURL, uid string, day program.Day, secret AttendeeSecret) string {
	q := url.Values{}
	q.Set("uid", uid)
	q.Set("day", strconv.Itoa(int(day)))
	q.Set("sig", s.Sign(uid, day, secret))
	return fmt.Sprintf("%s/api/v1/verify?%s", strings.TrimRight(baseURL, "/"), q.Encode())
}

// NewAttendeeSecret draws a fresh 256-bit secret, hex encoded.
func NewAttendeeSecret() (AttendeeSecret, error) {
	buf := make([]byte, attendeeSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate attendee secret: %w", err)
	}
	return AttendeeSecret(hex.EncodeToString(buf)), nil
}

func payload(uid string, day program.Day, secret AttendeeSecret) string {
	return uid + ":" + strconv.Itoa(int(day)) + ":" + string(secret)
}
