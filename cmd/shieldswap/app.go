package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shieldswap/internal/amm"
	"shieldswap/internal/chain"
	"shieldswap/internal/config"
	"shieldswap/internal/metrics"
	"shieldswap/internal/model"
	"shieldswap/internal/storage"
	"shieldswap/internal/storage/pebble"
	"shieldswap/internal/storage/postgres"
	"shieldswap/internal/storage/redis"
	"shieldswap/internal/token"
)

// app is the wiring shared by every command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	client   *chain.Client
	store    storage.KeyValueStore
	registry *token.Registry
	recorder *metrics.Recorder
	journal  amm.Journal
	closers  []func()
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	a := &app{cfg: cfg, logger: logger, recorder: metrics.NewRecorder()}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		ConfirmPoll:  cfg.ConfirmPoll,
		Logger:       logger,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	a.client = client
	a.closers = append(a.closers, client.Close)

	if err := a.openStore(ctx); err != nil {
		a.close()
		return nil, err
	}

	if cfg.Journal != "" {
		a.journal = storage.NewJsonlJournal(cfg.Journal)
	}

	registry, err := token.NewRegistry(client, 0, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	for symbol, raw := range cfg.TokenMap {
		if !common.IsHexAddress(raw) {
			a.close()
			return nil, fmt.Errorf("token-map %s: invalid address %q", symbol, raw)
		}
		kind := model.KindPrivate
		if cfg.IsPublic(symbol) {
			kind = model.KindPrivateAndPublic
		}
		tok := model.Token{
			Address:  common.HexToAddress(raw),
			Symbol:   strings.ToUpper(symbol),
			Decimals: cfg.TokenDecimals[strings.ToUpper(symbol)],
			Kind:     kind,
		}
		if err := registry.Register(tok); err != nil {
			a.close()
			return nil, err
		}
	}
	a.registry = registry

	if cfg.MetricsAddr != "" {
		go func() {
			if err := a.recorder.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store {
	case config.StoreMemory:
		a.store = storage.NewMemoryStore()
	case config.StorePebble:
		if err := os.MkdirAll(a.cfg.StorePath, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
		db, err := pebble.Open(a.cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open pebble store: %w", err)
		}
		a.store = db
		a.closers = append(a.closers, func() { _ = db.Close() })
	case config.StorePostgres:
		if a.cfg.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres store")
		}
		db, err := postgres.NewStore(ctx, a.cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		a.store = db
	case config.StoreRedis:
		if a.cfg.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required for the redis store")
		}
		client := goredis.NewClient(&goredis.Options{Addr: a.cfg.RedisAddr})
		a.closers = append(a.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		db, err := redis.NewStore(client, "")
		if err != nil {
			return err
		}
		a.store = db
	default:
		return fmt.Errorf("unknown store %q", a.cfg.Store)
	}
	a.logger.Debug("store opened", zap.String("store", a.cfg.Store))
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) signer() (common.Address, error) {
	if !common.IsHexAddress(a.cfg.Signer) {
		return common.Address{}, fmt.Errorf("signer address is required")
	}
	return common.HexToAddress(a.cfg.Signer), nil
}

func (a *app) session(ctx context.Context) (*amm.Session, error) {
	if !common.IsHexAddress(a.cfg.Pool) {
		return nil, fmt.Errorf("pool address is required")
	}
	opts := []amm.Option{
		amm.WithLogger(a.logger),
		amm.WithObserver(a.recorder),
		amm.WithPendingStore(amm.NewPendingStore(a.store)),
		amm.WithConfig(amm.Config{
			MaxWait:            a.cfg.MaxWait,
			PreflightInvariant: a.cfg.PreflightInvariant,
		}),
	}
	if a.journal != nil {
		opts = append(opts, amm.WithJournal(a.journal))
	}
	return amm.NewSession(ctx, a.client, common.HexToAddress(a.cfg.Pool), opts...)
}

// amount parses value in the display units of tok.
func (a *app) amount(ctx context.Context, tok common.Address, value string) (model.Token, *big.Int, error) {
	resolved, err := a.registry.Resolve(ctx, tok)
	if err != nil {
		return model.Token{}, nil, err
	}
	amount, err := token.ParseAmount(value, resolved.Decimals)
	if err != nil {
		return model.Token{}, nil, fmt.Errorf("amount %q: %w", value, err)
	}
	return resolved, amount, nil
}

// label resolves tok for display, falling back to its address.
func (a *app) label(ctx context.Context, tok common.Address) model.Token {
	resolved, err := a.registry.Resolve(ctx, tok)
	if err != nil {
		a.logger.Debug("token metadata unavailable", zap.String("token", tok.Hex()), zap.Error(err))
		if known, ok := a.registry.Lookup(tok); ok {
			return known
		}
		return model.Token{Address: tok}
	}
	return resolved
}

// withApp runs fn with a signal-aware context and a wired app.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
