package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "shieldswap",
		Short:        "Shielded AMM client",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "ledger node RPC URL")
	flags.String("pool", "", "AMM pool address")
	flags.String("signer", "", "account that signs operations")
	flags.String("token-map", "", "token symbols (comma-separated SYMBOL=address)")
	flags.StringSlice("public-tokens", nil, "symbols of tokens exposing a public balance")
	flags.String("token-decimals", "", "token decimals (comma-separated SYMBOL=decimals)")
	flags.String("store", "pebble", "key-value store (memory, pebble, postgres, redis)")
	flags.String("store-path", "./data/store", "pebble store directory")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("redis-addr", "", "Redis address")
	flags.String("journal", "./data/operations.jsonl", "operation journal JSONL path")
	flags.Duration("max-wait", 2*time.Minute, "maximum wait for each ledger call")
	flags.Duration("confirm-poll", time.Second, "receipt polling interval")
	flags.Int("max-retries", 5, "maximum retry attempts for views")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Bool("preflight-invariant", true, "check the pool invariant before submitting a swap")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	quoteCmd := &cobra.Command{
		Use:   "quote <token-in> <token-out> <amount-in>",
		Short: "Estimate a swap output from current reserves",
		Args:  cobra.ExactArgs(3),
		RunE:  runQuote,
	}
	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap <token-in> <token-out> <amount-in>",
		Short: "Quote, authorize, submit and redeem a swap",
		Args:  cobra.ExactArgs(3),
		RunE:  runSwap,
	}
	swapCmd.Flags().String("amount-out", "", "requested output instead of the quoted amount")
	root.AddCommand(swapCmd)

	liquidityCmd := &cobra.Command{
		Use:   "add-liquidity <token-a> <amount-a> <token-b> <amount-b>",
		Short: "Deposit both pool tokens",
		Args:  cobra.ExactArgs(4),
		RunE:  runAddLiquidity,
	}
	root.AddCommand(liquidityCmd)

	reservesCmd := &cobra.Command{
		Use:   "reserves",
		Short: "Print pool reserves",
		Args:  cobra.NoArgs,
		RunE:  runReserves,
	}
	root.AddCommand(reservesCmd)

	balancesCmd := &cobra.Command{
		Use:   "balances [owner]",
		Short: "Print token balances of an account",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBalances,
	}
	root.AddCommand(balancesCmd)

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List redemptions awaiting retry",
		Args:  cobra.NoArgs,
		RunE:  runPending,
	}
	root.AddCommand(pendingCmd)

	redeemCmd := &cobra.Command{
		Use:   "redeem [tx-hash]",
		Short: "Retry pending redemptions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRedeem,
	}
	redeemCmd.Flags().StringArray("anchor", nil, "redeem this token:tx:owner:amount:secret instead of stored anchors")
	root.AddCommand(redeemCmd)

	statusCmd := &cobra.Command{
		Use:   "status <operation-id>",
		Short: "Show the journaled state transitions of an operation",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	root.AddCommand(statusCmd)

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Deploy or reconnect the tokens and the pool",
		Args:  cobra.NoArgs,
		RunE:  runSetup,
	}
	setupCmd.Flags().String("setup-holder", "", "second account receiving minted tokens")
	setupCmd.Flags().String("setup-liquidity", "1000,23", "initial liquidity in canonical order")
	root.AddCommand(setupCmd)

	clearCmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Forget cached deployments",
		Args:  cobra.NoArgs,
		RunE:  runClearCache,
	}
	root.AddCommand(clearCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}
