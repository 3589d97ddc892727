package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"shieldswap/internal/token"
)

func runAddLiquidity(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		signer, err := a.signer()
		if err != nil {
			return err
		}
		session, err := a.session(ctx)
		if err != nil {
			return err
		}
		addrA, err := a.registry.Parse(args[0])
		if err != nil {
			return err
		}
		addrB, err := a.registry.Parse(args[2])
		if err != nil {
			return err
		}
		_, amountA, err := a.amount(ctx, addrA, args[1])
		if err != nil {
			return err
		}
		_, amountB, err := a.amount(ctx, addrB, args[3])
		if err != nil {
			return err
		}

		result, err := session.AddLiquidity(ctx, addrA, addrB, amountA, amountB, signer)
		if err != nil {
			return err
		}
		token0 := a.label(ctx, result.Token0)
		token1 := a.label(ctx, result.Token1)
		fmt.Fprintf(cmd.OutOrStdout(), "added %s %s and %s %s in %s\n",
			token.FormatAmount(result.Amount0, token0.Decimals), token0.Label(),
			token.FormatAmount(result.Amount1, token1.Decimals), token1.Label(),
			result.TxHash.Hex(),
		)
		return nil
	})
}
