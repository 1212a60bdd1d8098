// ABOUTME: Hex helpers for channel key material and business card envelopes.
// ABOUTME: Validates the hex alphabet and the 32/64-character key lengths.

package codec

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// IsHexChar reports whether c is a valid hexadecimal digit.
func IsHexChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// DecodeKey decodes channel key material given as 32 or 64 hex characters
// (16 or 32 raw bytes). Any other length or a non-hex character is an error.
func DecodeKey(s string) ([]byte, error) {
	if len(s) != 32 && len(s) != 64 {
		return nil, fmt.Errorf("key must be 32 or 64 hex characters, got %d", len(s))
	}
	for i := 0; i < len(s); i++ {
		if !IsHexChar(s[i]) {
			return nil, fmt.Errorf("invalid hex character %q", s[i])
		}
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	return raw, nil
}

// EncodeHex returns the lowercase hex encoding of b.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex decodes an even-length hex string of arbitrary size.
func DecodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.ToLower(s))
}
