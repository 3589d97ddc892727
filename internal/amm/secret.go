package amm

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func randomHash(r io.Reader) (common.Hash, error) {
	var h common.Hash
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return common.Hash{}, fmt.Errorf("read random: %w", err)
	}
	return h, nil
}

// SecretHash is the commitment published in place of a redemption secret.
func SecretHash(secret common.Hash) common.Hash {
	return crypto.Keccak256Hash(secret.Bytes())
}

// NewRedemptionSecret returns a fresh secret and its hash.
func NewRedemptionSecret() (common.Hash, common.Hash, error) {
	secret, err := randomHash(rand.Reader)
	if err != nil {
		return common.Hash{}, common.Hash{}, err
	}
	return secret, SecretHash(secret), nil
}
