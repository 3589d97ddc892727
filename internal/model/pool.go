package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool is a snapshot of the AMM pool in canonical token order.
// Reserve0 and Reserve1 are always read together from a single view call.
type Pool struct {
	Address  common.Address `json:"address"`
	Token0   common.Address `json:"token0"`
	Token1   common.Address `json:"token1"`
	Reserve0 *big.Int       `json:"reserve0"`
	Reserve1 *big.Int       `json:"reserve1"`
}

// ReservesFor returns (reserveIn, reserveOut) for a swap from tokenIn.
// ok is false when tokenIn is not one of the pool tokens.
func (p Pool) ReservesFor(tokenIn common.Address) (reserveIn, reserveOut *big.Int, ok bool) {
	switch tokenIn {
	case p.Token0:
		return p.Reserve0, p.Reserve1, true
	case p.Token1:
		return p.Reserve1, p.Reserve0, true
	default:
		return nil, nil, false
	}
}

// Contains reports whether token is one of the pool tokens.
func (p Pool) Contains(token common.Address) bool {
	return token == p.Token0 || token == p.Token1
}
