package keygen

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// KeyPair holds a key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKey is the private key in PEM encoding.
	PrivateKey []byte
	// PublicKey is the public key in OpenSSH authorized_keys format.
	PublicKey []byte
	// Fingerprint is the SHA256 fingerprint of the public key.
	Fingerprint string
}

// AuthorizedKey returns the public key as a single authorized_keys line
// without the trailing newline.
func (k *KeyPair) AuthorizedKey() string {
	return strings.TrimSpace(string(k.PublicKey))
}

// GenerateED25519KeyPair generates a new Ed25519 key pair. The comment is
// appended to the authorized_keys line and embedded in the OpenSSH private key.
func GenerateED25519KeyPair(comment string) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ed25519 private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return newKeyPair(pem.EncodeToMemory(block), sshPub, comment), nil
}

func newKeyPair(privatePEM []byte, pub ssh.PublicKey, comment string) *KeyPair {
	authorized := ssh.MarshalAuthorizedKey(pub)
	if comment != "" {
		authorized = []byte(strings.TrimSpace(string(authorized)) + " " + comment + "\n")
	}
	return &KeyPair{
		PrivateKey:  privatePEM,
		PublicKey:   authorized,
		Fingerprint: ssh.FingerprintSHA256(pub),
	}
}
