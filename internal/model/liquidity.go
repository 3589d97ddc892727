package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LiquidityRequest is order-agnostic from the caller's side.
type LiquidityRequest struct {
	TokenA  common.Address
	TokenB  common.Address
	AmountA *big.Int
	AmountB *big.Int
}

// LiquidityResult is returned by a completed add-liquidity call.
type LiquidityResult struct {
	OperationID string
	TxHash      common.Hash
	Token0      common.Address
	Token1      common.Address
	Amount0     *big.Int
	Amount1     *big.Int
}
