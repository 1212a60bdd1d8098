// ABOUTME: Channel datagram sealing with ChaCha20-Poly1305.
// ABOUTME: The 16- or 32-byte channel secret is stretched to a sealing key.

package udpmesh

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const nonceSize = chacha20poly1305.NonceSize

// sealingKey derives the fixed-size AEAD key from the channel secret, which
// may be 16 or 32 bytes.
func sealingKey(secret []byte) []byte {
	h := sha256.Sum256(secret)
	return h[:]
}

// sealChannelText seals timestamp+text under the channel secret with a
// fresh random nonce.
func sealChannelText(secret []byte, timestamp uint32, text string) (*channelPayload, error) {
	aead, err := chacha20poly1305.New(sealingKey(secret))
	if err != nil {
		return nil, fmt.Errorf("channel seal: %w", err)
	}
	var c channelPayload
	if _, err := rand.Read(c.Nonce[:]); err != nil {
		return nil, fmt.Errorf("channel seal nonce: %w", err)
	}
	plain := make([]byte, 4+len(text))
	binary.LittleEndian.PutUint32(plain, timestamp)
	copy(plain[4:], text)
	c.Ciphertext = aead.Seal(nil, c.Nonce[:], plain, nil)
	return &c, nil
}

// openChannelText attempts to open a sealed datagram with the channel
// secret. ok is false when the key does not match.
func openChannelText(secret []byte, c *channelPayload) (timestamp uint32, text string, ok bool) {
	aead, err := chacha20poly1305.New(sealingKey(secret))
	if err != nil {
		return 0, "", false
	}
	plain, err := aead.Open(nil, c.Nonce[:], c.Ciphertext, nil)
	if err != nil || len(plain) < 4 {
		return 0, "", false
	}
	return binary.LittleEndian.Uint32(plain), string(plain[4:]), true
}
