package wallet

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidAddress is returned when an address does not match the
// 0x-prefixed 40-hex-character proxy wallet format.
var ErrInvalidAddress = errors.New("invalid address format (expected 0x + 40 hex chars)")

var addressPattern = regexp.MustCompile(`^0x[a-f0-9]{40}$`)

// Normalize lowercases and trims an address and validates its shape.
// Validation happens before any network call is made.
func Normalize(address string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if !addressPattern.MatchString(normalized) {
		return "", ErrInvalidAddress
	}
	return normalized, nil
}

// IsValid reports whether an address normalizes cleanly.
func IsValid(address string) bool {
	_, err := Normalize(address)
	return err == nil
}

// Shorten formats an address for display, e.g. 0x1234…abcd.
func Shorten(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}
