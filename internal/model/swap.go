package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SwapRequest is a caller's intent to sell AmountIn of TokenIn for TokenOut.
type SwapRequest struct {
	TokenIn  common.Address
	TokenOut common.Address
	AmountIn *big.Int
}

// SwapQuote is a snapshot prediction of the swap output. It is not
// guaranteed to hold if reserves move before submission.
type SwapQuote struct {
	AmountOut  *big.Int
	ReserveIn  *big.Int
	ReserveOut *big.Int
}

// SwapSplit projects a swap onto the pool's canonical token positions.
type SwapSplit struct {
	Token0     common.Address
	Token1     common.Address
	Amount0In  *big.Int
	Amount0Out *big.Int
	Amount1In  *big.Int
	Amount1Out *big.Int
}

// SwapResult is returned by a completed swap.
type SwapResult struct {
	OperationID string
	TxHash      common.Hash
	AmountIn    *big.Int
	AmountOut   *big.Int
	Redeemed    []ShieldedRedemption
}
