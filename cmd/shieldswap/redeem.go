package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shieldswap/internal/amm"
	"shieldswap/internal/model"
)

func runPending(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		session, err := a.session(ctx)
		if err != nil {
			return err
		}
		pending, err := session.ListPending(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no pending redemptions")
			return nil
		}
		printPending(cmd.OutOrStdout(), pending, false)
		return nil
	})
}

func runRedeem(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		session, err := a.session(ctx)
		if err != nil {
			return err
		}
		var pending []model.PendingRedemption
		anchors, _ := cmd.Flags().GetStringArray("anchor")
		if len(anchors) > 0 {
			for _, raw := range anchors {
				p, err := parseAnchor(raw)
				if err != nil {
					return err
				}
				pending = append(pending, p)
			}
		} else {
			pending, err = session.ListPending(ctx)
			if err != nil {
				return err
			}
		}
		if len(args) == 1 {
			pending = filterByTx(pending, common.HexToHash(args[0]))
		}
		if len(pending) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to redeem")
			return nil
		}

		var errs []error
		var unsaved []model.PendingRedemption
		redeemed := 0
		for _, p := range pending {
			if err := session.RetryRedemption(ctx, p); err != nil {
				var pendingErr *amm.RedemptionPendingError
				if errors.As(err, &pendingErr) && a.mustShowSecrets(pendingErr) {
					unsaved = append(unsaved, pendingErr.Pending...)
				}
				a.logger.Warn("redemption retry failed",
					zap.String("operation_id", p.OperationID),
					zap.String("token", p.Token.Hex()),
					zap.String("tx_hash", p.TxHash.Hex()),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}
			redeemed++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "redeemed %d of %d\n", redeemed, len(pending))
		if len(unsaved) > 0 {
			printPending(cmd.OutOrStdout(), unsaved, true)
		}
		return errors.Join(errs...)
	})
}

func filterByTx(pending []model.PendingRedemption, tx common.Hash) []model.PendingRedemption {
	out := pending[:0]
	for _, p := range pending {
		if p.TxHash == tx {
			out = append(out, p)
		}
	}
	return out
}
