package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shieldswap/internal/amm"
	"shieldswap/internal/config"
	"shieldswap/internal/model"
	"shieldswap/internal/token"
)

func runQuote(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		session, err := a.session(ctx)
		if err != nil {
			return err
		}
		req, tokenIn, tokenOut, err := a.swapRequest(ctx, args)
		if err != nil {
			return err
		}
		quote, err := session.Quote(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s %s (reserves %s / %s)\n",
			token.FormatAmount(req.AmountIn, tokenIn.Decimals), tokenIn.Label(),
			token.FormatAmount(quote.AmountOut, tokenOut.Decimals), tokenOut.Label(),
			token.FormatAmount(quote.ReserveIn, tokenIn.Decimals),
			token.FormatAmount(quote.ReserveOut, tokenOut.Decimals),
		)
		return nil
	})
}

func runSwap(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		signer, err := a.signer()
		if err != nil {
			return err
		}
		session, err := a.session(ctx)
		if err != nil {
			return err
		}
		req, tokenIn, tokenOut, err := a.swapRequest(ctx, args)
		if err != nil {
			return err
		}
		quote, err := session.Quote(ctx, req)
		if err != nil {
			return err
		}
		if override, _ := cmd.Flags().GetString("amount-out"); override != "" {
			amountOut, err := token.ParseAmount(override, tokenOut.Decimals)
			if err != nil {
				return fmt.Errorf("amount-out %q: %w", override, err)
			}
			quote.AmountOut = amountOut
		}

		a.logger.Info("swap start",
			zap.String("token_in", tokenIn.Label()),
			zap.String("token_out", tokenOut.Label()),
			zap.String("amount_in", req.AmountIn.String()),
			zap.String("amount_out", quote.AmountOut.String()),
		)
		result, err := session.Swap(ctx, req, quote, signer)
		if err != nil {
			var pending *amm.RedemptionPendingError
			if errors.As(err, &pending) {
				printPending(cmd.OutOrStdout(), pending.Pending, a.mustShowSecrets(pending))
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "swapped %s %s for %s %s in %s\n",
			token.FormatAmount(result.AmountIn, tokenIn.Decimals), tokenIn.Label(),
			token.FormatAmount(result.AmountOut, tokenOut.Decimals), tokenOut.Label(),
			result.TxHash.Hex(),
		)
		return nil
	})
}

func (a *app) swapRequest(ctx context.Context, args []string) (model.SwapRequest, model.Token, model.Token, error) {
	in, err := a.registry.Parse(args[0])
	if err != nil {
		return model.SwapRequest{}, model.Token{}, model.Token{}, err
	}
	out, err := a.registry.Parse(args[1])
	if err != nil {
		return model.SwapRequest{}, model.Token{}, model.Token{}, err
	}
	tokenIn, amountIn, err := a.amount(ctx, in, args[2])
	if err != nil {
		return model.SwapRequest{}, model.Token{}, model.Token{}, err
	}
	tokenOut := a.label(ctx, out)
	return model.SwapRequest{TokenIn: in, TokenOut: out, AmountIn: amountIn}, tokenIn, tokenOut, nil
}

// mustShowSecrets reports whether the printed anchors are the only copy of
// their secrets: nothing was persisted, or it went to process memory.
func (a *app) mustShowSecrets(err *amm.RedemptionPendingError) bool {
	return !err.Persisted || a.cfg.Store == config.StoreMemory
}

// printPending lists anchors. With withSecret each line carries an --anchor
// value that `shieldswap redeem` accepts.
func printPending(w io.Writer, pending []model.PendingRedemption, withSecret bool) {
	fmt.Fprintf(w, "%d redemption(s) pending; retry with `shieldswap redeem`\n", len(pending))
	if withSecret {
		fmt.Fprintln(w, "these anchors are not stored; keep them, the secret cannot be recovered")
	}
	for _, p := range pending {
		fmt.Fprintf(w, "  operation=%s token=%s tx=%s owner=%s amount=%s\n",
			p.OperationID, p.Token.Hex(), p.TxHash.Hex(), p.Owner.Hex(), p.Amount.String())
		if withSecret {
			fmt.Fprintf(w, "    --anchor %s\n", formatAnchor(p))
		}
	}
}

// formatAnchor encodes p as token:tx:owner:amount:secret.
func formatAnchor(p model.PendingRedemption) string {
	return strings.Join([]string{p.Token.Hex(), p.TxHash.Hex(), p.Owner.Hex(), p.Amount.String(), p.Secret.Hex()}, ":")
}

func parseAnchor(value string) (model.PendingRedemption, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 5 {
		return model.PendingRedemption{}, fmt.Errorf("anchor %q: want token:tx:owner:amount:secret", value)
	}
	if !common.IsHexAddress(parts[0]) || !common.IsHexAddress(parts[2]) {
		return model.PendingRedemption{}, fmt.Errorf("anchor %q: invalid address", value)
	}
	amount, ok := new(big.Int).SetString(parts[3], 10)
	if !ok || amount.Sign() <= 0 {
		return model.PendingRedemption{}, fmt.Errorf("anchor %q: invalid amount", value)
	}
	tx, err := hexutil.Decode(parts[1])
	if err != nil || len(tx) != common.HashLength {
		return model.PendingRedemption{}, fmt.Errorf("anchor %q: invalid tx hash", value)
	}
	secret, err := hexutil.Decode(parts[4])
	if err != nil || len(secret) != common.HashLength {
		return model.PendingRedemption{}, fmt.Errorf("anchor %q: invalid secret", value)
	}
	return model.PendingRedemption{
		Token:  common.HexToAddress(parts[0]),
		TxHash: common.BytesToHash(tx),
		Owner:  common.HexToAddress(parts[2]),
		Amount: amount,
		Secret: common.BytesToHash(secret),
	}, nil
}
