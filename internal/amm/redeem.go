package amm

import (
	"context"
	"fmt"

	"shieldswap/internal/ledger"
	"shieldswap/internal/model"
)

// RedeemNote registers the private note produced by p.TxHash and claims it
// with p.Secret. Re-running it for the same anchor is safe.
func RedeemNote(ctx context.Context, l ledger.Ledger, p model.PendingRedemption) error {
	if l == nil {
		return fmt.Errorf("ledger is nil")
	}
	note := model.PrivateNote{
		Owner:      p.Owner,
		Token:      p.Token,
		Amount:     p.Amount,
		SecretHash: SecretHash(p.Secret),
		TxHash:     p.TxHash,
	}
	if err := l.RegisterPrivateNote(ctx, note); err != nil {
		return remoteError("register private note", err)
	}
	if err := l.Redeem(ctx, p.Token, p.TxHash, p.Owner, p.Amount, p.Secret); err != nil {
		return remoteError("redeem", err)
	}
	return nil
}
