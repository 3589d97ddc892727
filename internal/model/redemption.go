package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ShieldedRedemption is a claim ticket for a private note. Secret is only
// known client-side; SecretHash is published with the producing transaction.
type ShieldedRedemption struct {
	Token      common.Address
	Amount     *big.Int
	Secret     common.Hash
	SecretHash common.Hash
}

// PrivateNote binds a redemption secret hash to the transaction that will
// create the note.
type PrivateNote struct {
	Owner      common.Address
	Token      common.Address
	Amount     *big.Int
	SecretHash common.Hash
	TxHash     common.Hash
}

// PendingRedemption is the anchor needed to retry a redemption after its
// transaction was confirmed. OperationID links it back to the journal.
type PendingRedemption struct {
	OperationID string
	Token       common.Address
	TxHash      common.Hash
	Owner       common.Address
	Amount      *big.Int
	Secret      common.Hash
}

// Receipt is a confirmed transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
}
