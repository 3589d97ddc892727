package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"shieldswap/internal/ledger"
	"shieldswap/internal/model"
)

// Balance is an owner's holding of one token. Public is nil when the token
// kind has no public balance.
type Balance struct {
	Token   model.Token
	Private *big.Int
	Public  *big.Int
}

// HasPublic reports whether Public was read.
func (b Balance) HasPublic() bool {
	return b.Public != nil
}

// Balances reads owner's balance of tok. The public view is only called for
// tokens registered as having one.
func Balances(ctx context.Context, viewer ledger.BalanceViewer, tok model.Token, owner common.Address) (Balance, error) {
	if viewer == nil {
		return Balance{}, fmt.Errorf("balance viewer is nil")
	}
	private, err := viewer.BalanceOfPrivate(ctx, tok.Address, owner)
	if err != nil {
		return Balance{}, fmt.Errorf("private balance of %s: %w", tok.Label(), err)
	}
	out := Balance{Token: tok, Private: private}
	if tok.Kind.HasPublicBalance() {
		public, err := viewer.BalanceOfPublic(ctx, tok.Address, owner)
		if err != nil {
			return Balance{}, fmt.Errorf("public balance of %s: %w", tok.Label(), err)
		}
		out.Public = public
	}
	return out, nil
}
