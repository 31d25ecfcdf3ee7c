package attendee

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"
)

// PhoneDigits is the length of a valid local mobile number.
const PhoneDigits = 11

const (
	uidPrefix   = "WRC"
	uidLength   = 10
	uidAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NormalizePhone strips everything but digits.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePhone normalises raw and checks its length.
func ValidatePhone(raw string) (string, error) {
	phone := NormalizePhone(raw)
	if len(phone) != PhoneDigits {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

// NewUID returns a short attendee code such as "WRC7K2QX9A".
func NewUID() (string, error) {
	buf := make([]byte, uidLength-len(uidPrefix))
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate uid: %w", err)
	}
	out := []byte(uidPrefix)
	for _, b := range buf {
		out = append(out, uidAlphabet[int(b)%len(uidAlphabet)])
	}
	return string(out), nil
}
