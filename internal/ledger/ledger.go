// Package ledger declares the surface this client consumes from the ledger
// node: pool views, authorization witnesses, transaction submission and
// private note redemption.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"shieldswap/internal/model"
)

//go:generate mockgen -destination=mock/ledger_mock.go -package=mock shieldswap/internal/ledger Ledger

// Ledger is the minimum ledger surface the orchestrators depend on.
type Ledger interface {
	// ViewReserves returns the pool reserves in canonical order from a single view.
	ViewReserves(ctx context.Context, pool common.Address) (*big.Int, *big.Int, error)
	// ViewTokens returns the pool's (token0, token1).
	ViewTokens(ctx context.Context, pool common.Address) (common.Address, common.Address, error)
	// CreateAuthorization registers a witness letting spender present call on owner's behalf.
	CreateAuthorization(ctx context.Context, owner, spender common.Address, call model.CallDescriptor) (model.AuthorizationWitness, error)
	// Submit sends call from the given account and blocks until it is confirmed.
	Submit(ctx context.Context, from common.Address, call model.CallDescriptor) (model.Receipt, error)
	// RegisterPrivateNote binds a secret hash to the note a transaction produced.
	RegisterPrivateNote(ctx context.Context, note model.PrivateNote) error
	// Redeem claims a registered note with its secret and blocks until confirmed.
	Redeem(ctx context.Context, token common.Address, txHash common.Hash, owner common.Address, amount *big.Int, secret common.Hash) error
}

// BalanceViewer reads token balances.
type BalanceViewer interface {
	BalanceOfPrivate(ctx context.Context, token, owner common.Address) (*big.Int, error)
	BalanceOfPublic(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// MetadataViewer reads display metadata of a token contract.
type MetadataViewer interface {
	TokenMeta(ctx context.Context, token common.Address) (symbol string, decimals uint8, err error)
}

// Deployer deploys contract artifacts.
type Deployer interface {
	DeployContract(ctx context.Context, from common.Address, artifact string, args ...interface{}) (common.Address, error)
}
