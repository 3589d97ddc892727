package amm

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// Canonicalize orders two token addresses the way the AMM contract does:
// as unsigned big-endian byte strings, smaller first. Equal addresses are
// rejected.
func Canonicalize(a, b common.Address) (common.Address, common.Address, error) {
	switch bytes.Compare(a.Bytes(), b.Bytes()) {
	case 0:
		return common.Address{}, common.Address{}, ErrInvalidTokenPair
	case 1:
		return b, a, nil
	default:
		return a, b, nil
	}
}
