package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shieldswap/internal/amm"
	"shieldswap/internal/deploy"
)

func runSetup(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		deployer, err := a.signer()
		if err != nil {
			return err
		}
		holder := deployer
		if a.cfg.SetupHolder != "" {
			if !common.IsHexAddress(a.cfg.SetupHolder) {
				return fmt.Errorf("invalid setup-holder %q", a.cfg.SetupHolder)
			}
			holder = common.HexToAddress(a.cfg.SetupHolder)
		}
		liquidity, err := parseLiquidity(a.cfg.SetupLiquidity)
		if err != nil {
			return err
		}

		cache, err := deploy.NewCache(a.store, a.logger)
		if err != nil {
			return err
		}
		setup := deploy.DefaultSetup(deployer, holder)
		setup.InitialLiquidity = liquidity

		a.logger.Info("setup start",
			zap.String("deployer", deployer.Hex()),
			zap.String("holder", holder.Hex()),
			zap.String("store", a.cfg.Store),
		)
		deployment, err := deploy.Setup(ctx, a.client, cache, setup, a.logger)
		if err != nil {
			var pending *amm.RedemptionPendingError
			if errors.As(err, &pending) {
				printPending(cmd.OutOrStdout(), pending.Pending, a.mustShowSecrets(pending))
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pool %s\n", deployment.Pool.Hex())
		for _, tok := range deployment.Tokens {
			fmt.Fprintf(out, "  %s %s\n", tok.Label(), tok.Address.Hex())
		}
		return nil
	})
}

func runClearCache(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		cache, err := deploy.NewCache(a.store, a.logger)
		if err != nil {
			return err
		}
		n, err := cache.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %d cached deployment(s)\n", n)
		return nil
	})
}

func parseLiquidity(values []string) ([2]*big.Int, error) {
	var out [2]*big.Int
	if len(values) != 2 {
		return out, fmt.Errorf("setup-liquidity needs two amounts, got %d", len(values))
	}
	for i, v := range values {
		amount, ok := new(big.Int).SetString(v, 10)
		if !ok || amount.Sign() <= 0 {
			return out, fmt.Errorf("setup-liquidity: invalid amount %q", v)
		}
		out[i] = amount
	}
	return out, nil
}
