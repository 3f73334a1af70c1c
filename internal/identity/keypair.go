package identity

import (
	"crypto/ed25519"
	"fmt"

	"github.com/tv42/zbase32"
	"github.com/tyler-smith/go-bip39"
)

// Keypair is the bot's signing identity, derived from a BIP-39 mnemonic.
// The first 32 bytes of the seed become the ed25519 private seed, matching
// how the bot's identity was originally provisioned.
type Keypair struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// FromMnemonic derives the keypair from a normalized mnemonic phrase.
func FromMnemonic(words string) (*Keypair, error) {
	seed, err := bip39.NewSeedWithErrorChecking(words, "")
	if err != nil {
		return nil, fmt.Errorf("parsing mnemonic: %w", err)
	}

	private := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	return &Keypair{
		private: private,
		public:  private.Public().(ed25519.PublicKey),
	}, nil
}

// PublicID returns the z-base-32 form of the public key, the identity that
// appears in pubky:// URIs.
func (k *Keypair) PublicID() string {
	return zbase32.EncodeToString(k.public)
}

// Verify checks the derived identity against the configured public key.
// Startup must not proceed past a failed check.
func (k *Keypair) Verify(expected string) error {
	if id := k.PublicID(); id != expected {
		return fmt.Errorf("derived public key %s does not match configured key %s", id, expected)
	}
	return nil
}

// Sign signs msg with the private key.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}
