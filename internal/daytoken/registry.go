package daytoken

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/wrc-program/attendance/internal/program"
)

// Slot is one day's venue token as configured by the operator.
type Slot struct {
	Day    program.Day
	EnvKey string
	Token  string
}

// Configured reports whether the operator supplied a token for this day.
func (s Slot) Configured() bool {
	return s.Token != ""
}

// Registry resolves venue QR tokens to program days by exact match.
type Registry struct {
	slots [program.NumDays]Slot
}

// NewRegistry builds a registry from one token per day; empty strings leave
// the day unconfigured.
func NewRegistry(tokens [program.NumDays]string) *Registry {
	r := &Registry{}
	for i, token := range tokens {
		day := program.Day(i + 1)
		r.slots[i] = Slot{Day: day, EnvKey: EnvKey(day), Token: token}
	}
	return r
}

// EnvKey is the environment variable holding the token for day.
func EnvKey(day program.Day) string {
	return fmt.Sprintf("DAY%d_TOKEN", int(day))
}

// ResolveDay returns the day whose token equals token. Unconfigured slots
// never match, including against an empty token.
func (r *Registry) ResolveDay(token string) (program.Day, bool) {
	if token == "" {
		return 0, false
	}
	for _, slot := range r.slots {
		if !slot.Configured() {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(slot.Token), []byte(token)) == 1 {
			return slot.Day, true
		}
	}
	return 0, false
}

// Slots returns every day's slot in day order.
func (r *Registry) Slots() []Slot {
	out := make([]Slot, len(r.slots))
	copy(out, r.slots[:])
	return out
}

// MissingEnvKeys lists the env vars of unconfigured days.
func (r *Registry) MissingEnvKeys() []string {
	var keys []string
	for _, slot := range r.slots {
		if !slot.Configured() {
			keys = append(keys, slot.EnvKey)
		}
	}
	return keys
}

// Generate returns a random URL-safe token suitable for a venue QR code.
func Generate() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate day token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VenueURL is the link encoded in the venue QR code for token.
func VenueURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/confirm?token=" + url.QueryEscape(token)
}
