// ABOUTME: Node identity keypair: generation, signing, and file persistence.
// ABOUTME: First bytes 0x00 and 0xFF are reserved hash prefixes and re-rolled.

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meshwork-dev/meshterm/internal/codec"
)

// PubKeySize is the identity public key size shared with contact records.
const PubKeySize = ed25519.PublicKeySize

// reservedRetries bounds how often generation re-rolls a reserved prefix.
const reservedRetries = 10

// LocalIdentity is this node's keypair.
type LocalIdentity struct {
	PubKey  [PubKeySize]byte
	privKey ed25519.PrivateKey
}

// Generate creates a fresh random identity. Public keys whose first byte is
// 0x00 or 0xFF collide with reserved id hashes and are re-rolled a bounded
// number of times.
func Generate() (*LocalIdentity, error) {
	var id *LocalIdentity
	for i := 0; i < reservedRetries; i++ {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generating keypair: %w", err)
		}
		id = &LocalIdentity{privKey: priv}
		copy(id.PubKey[:], pub)
		if pub[0] != 0x00 && pub[0] != 0xFF {
			return id, nil
		}
	}
	return id, nil
}

// Sign returns a signature over msg.
func (id *LocalIdentity) Sign(msg []byte) []byte {
	return ed25519.Sign(id.privKey, msg)
}

// Verify reports whether sig is a valid signature over msg by pub.
func Verify(pub [PubKeySize]byte, msg, sig []byte) bool {
	return ed25519.Verify(pub[:], msg, sig)
}

// Store persists identities under a directory, one file per key name.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, "identity"+name)
}

// Load reads the identity saved under name. A missing or malformed file is
// an error; callers treat it as "not provisioned yet".
func (s *Store) Load(name string) (*LocalIdentity, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer f.Close()
	return read(f)
}

// Save writes the identity under name, creating the directory if needed.
func (s *Store) Save(name string, id *LocalIdentity) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}
	f, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	defer f.Close()
	return write(f, id)
}

func read(r io.Reader) (*LocalIdentity, error) {
	cr := codec.NewReader(r)
	cr.Begin()
	var id LocalIdentity
	cr.Bytes(id.PubKey[:])
	priv := make([]byte, ed25519.PrivateKeySize)
	cr.Bytes(priv)
	if err := cr.Err(); err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}
	id.privKey = priv
	return &id, nil
}

func write(w io.Writer, id *LocalIdentity) error {
	cw := codec.NewWriter(w)
	cw.Bytes(id.PubKey[:])
	cw.Bytes(id.privKey)
	if err := cw.Err(); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}
