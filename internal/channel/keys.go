// ABOUTME: Symmetric channel key derivation and the on-air base64 PSK encoding.
// ABOUTME: Hashtag keys are the first 16 bytes of SHA-256 over the channel name.

package channel

import (
	"crypto/sha256"
	"encoding/base64"
)

// hashtagKeyLen is how much of the name hash becomes the channel key. Only
// 16 of the 32 hash bytes are used, matching the companion mobile app.
const hashtagKeyLen = 16

// DeriveHashtagKey derives the symmetric key for a hashtag channel from its
// full name bytes, '#' included. The result is a pure function of the name.
func DeriveHashtagKey(name string) []byte {
	sum := sha256.Sum256([]byte(name))
	key := make([]byte, hashtagKeyLen)
	copy(key, sum[:hashtagKeyLen])
	return key
}

// EncodePSK encodes a raw channel key in the on-air base64 form shared with
// the built-in channel's well-known PSK.
func EncodePSK(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodePSK decodes an on-air base64 PSK to raw key bytes.
func DecodePSK(psk string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(psk)
}
