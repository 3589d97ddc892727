package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"shieldswap/internal/token"
)

func runReserves(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		session, err := a.session(ctx)
		if err != nil {
			return err
		}
		pool, err := session.Snapshot(ctx)
		if err != nil {
			return err
		}
		token0 := a.label(ctx, pool.Token0)
		token1 := a.label(ctx, pool.Token1)
		fmt.Fprintf(cmd.OutOrStdout(), "pool %s\n  %s %s\n  %s %s\n",
			pool.Address.Hex(),
			token0.Label(), token.FormatAmount(pool.Reserve0, token0.Decimals),
			token1.Label(), token.FormatAmount(pool.Reserve1, token1.Decimals),
		)
		return nil
	})
}

func runBalances(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		var owner common.Address
		if len(args) == 1 {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid owner %q", args[0])
			}
			owner = common.HexToAddress(args[0])
		} else {
			signer, err := a.signer()
			if err != nil {
				return err
			}
			owner = signer
		}

		tokens := a.registry.Configured()
		if len(tokens) == 0 {
			return fmt.Errorf("no tokens configured; set token-map")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "balances of %s\n", owner.Hex())
		for _, tok := range tokens {
			tok = a.label(ctx, tok.Address)
			bal, err := token.Balances(ctx, a.client, tok, owner)
			if err != nil {
				return err
			}
			public := "N/A"
			if bal.HasPublic() {
				public = token.FormatAmount(bal.Public, tok.Decimals)
			}
			fmt.Fprintf(out, "  %s private=%s public=%s\n",
				tok.Label(), token.FormatAmount(bal.Private, tok.Decimals), public)
		}
		return nil
	})
}
