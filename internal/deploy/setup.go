package deploy

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shieldswap/internal/amm"
	"shieldswap/internal/contract"
	"shieldswap/internal/ledger"
	"shieldswap/internal/model"
)

const (
	DefaultTokenArtifact = "Token"
	DefaultAMMArtifact   = "AMM"
)

// Ledger is what Setup needs from the node.
type Ledger interface {
	ledger.Ledger
	ledger.Deployer
}

// Mint credits Amount private units of a freshly deployed token to Owner.
type Mint struct {
	Owner  common.Address
	Amount *big.Int
}

// TokenSpec describes one token of the pair. Name is the cache key.
type TokenSpec struct {
	Name     string
	Symbol   string
	Decimals uint8
	Kind     model.TokenKind
	Mints    []Mint
}

// SetupConfig describes a pool bootstrap. InitialLiquidity is in canonical
// token order and is only deposited when the AMM is freshly deployed.
type SetupConfig struct {
	Deployer         common.Address
	Tokens           [2]TokenSpec
	InitialLiquidity [2]*big.Int
	TokenArtifact    string
	AMMArtifact      string
}

// Deployment is the result of Setup.
type Deployment struct {
	Tokens [2]model.Token
	Pool   common.Address
}

// DefaultSetup mirrors the local sandbox: two wallets holding WETH and DAI
// and a pool seeded with 1000 / 23.
func DefaultSetup(deployer, second common.Address) SetupConfig {
	return SetupConfig{
		Deployer: deployer,
		Tokens: [2]TokenSpec{
			{Name: "weth", Symbol: "WETH", Decimals: 0, Kind: model.KindPrivateAndPublic, Mints: []Mint{
				{Owner: deployer, Amount: big.NewInt(100)},
				{Owner: second, Amount: big.NewInt(20)},
			}},
			{Name: "dai", Symbol: "DAI", Decimals: 0, Kind: model.KindPrivateAndPublic, Mints: []Mint{
				{Owner: deployer, Amount: big.NewInt(30_000)},
				{Owner: second, Amount: big.NewInt(50_000)},
			}},
		},
		InitialLiquidity: [2]*big.Int{big.NewInt(1000), big.NewInt(23)},
	}
}

// Setup deploys or reconnects both tokens and the AMM over them.
func Setup(ctx context.Context, l Ledger, cache *Cache, cfg SetupConfig, logger *zap.Logger) (Deployment, error) {
	if l == nil {
		return Deployment{}, fmt.Errorf("ledger is nil")
	}
	if cache == nil {
		return Deployment{}, fmt.Errorf("deployment cache is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TokenArtifact == "" {
		cfg.TokenArtifact = DefaultTokenArtifact
	}
	if cfg.AMMArtifact == "" {
		cfg.AMMArtifact = DefaultAMMArtifact
	}

	var tokens [2]model.Token
	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.Tokens {
		i := i
		g.Go(func() error {
			tok, err := setupToken(gctx, l, cache, cfg, cfg.Tokens[i], logger)
			if err != nil {
				return err
			}
			tokens[i] = tok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Deployment{}, err
	}

	token0, token1, err := amm.Canonicalize(tokens[0].Address, tokens[1].Address)
	if err != nil {
		return Deployment{}, err
	}
	if tokens[0].Address != token0 {
		tokens[0], tokens[1] = tokens[1], tokens[0]
	}

	pool, _, err := cache.DeployOrConnect(ctx, "amm", func(ctx context.Context) (common.Address, error) {
		addr, err := l.DeployContract(ctx, cfg.Deployer, cfg.AMMArtifact, cfg.Deployer, token0, token1)
		if err != nil {
			return common.Address{}, err
		}
		if err := seedLiquidity(ctx, l, addr, cfg, logger); err != nil {
			return common.Address{}, err
		}
		return addr, nil
	})
	if err != nil {
		return Deployment{}, err
	}
	logger.Info("pool ready", zap.String("pool", pool.Hex()))
	return Deployment{Tokens: tokens, Pool: pool}, nil
}

func setupToken(ctx context.Context, l Ledger, cache *Cache, cfg SetupConfig, spec TokenSpec, logger *zap.Logger) (model.Token, error) {
	addr, _, err := cache.DeployOrConnect(ctx, spec.Name, func(ctx context.Context) (common.Address, error) {
		addr, err := l.DeployContract(ctx, cfg.Deployer, cfg.TokenArtifact, cfg.Deployer, spec.Symbol, spec.Symbol, spec.Decimals)
		if err != nil {
			return common.Address{}, err
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, m := range spec.Mints {
			m := m
			g.Go(func() error {
				return mintPrivate(gctx, l, amm.NewPendingStore(cache.store), spec.Name, addr, cfg.Deployer, m)
			})
		}
		if err := g.Wait(); err != nil {
			return common.Address{}, fmt.Errorf("mint %s: %w", spec.Name, err)
		}
		logger.Info("token minted", zap.String("name", spec.Name), zap.Int("holders", len(spec.Mints)))
		return addr, nil
	})
	if err != nil {
		return model.Token{}, err
	}
	return model.Token{Address: addr, Symbol: spec.Symbol, Decimals: spec.Decimals, Kind: spec.Kind}, nil
}

// mintPrivate mints a shielded note to the minter and redeems it for the
// recipient. A failed redemption is saved to pending so it can be retried.
func mintPrivate(ctx context.Context, l Ledger, pending *amm.PendingStore, name string, token, minter common.Address, m Mint) error {
	secret, secretHash, err := amm.NewRedemptionSecret()
	if err != nil {
		return err
	}
	call, err := contract.NewCall(token, "mint_private", m.Amount, secretHash)
	if err != nil {
		return err
	}
	receipt, err := l.Submit(ctx, minter, call)
	if err != nil {
		return err
	}
	anchor := model.PendingRedemption{
		OperationID: "mint_" + name,
		Token:       token,
		TxHash:      receipt.TxHash,
		Owner:       m.Owner,
		Amount:      m.Amount,
		Secret:      secret,
	}
	if err := amm.RedeemNote(ctx, l, anchor); err != nil {
		persisted := pending.Enabled()
		if saveErr := pending.Save(context.WithoutCancel(ctx), anchor); saveErr != nil {
			persisted = false
		}
		return &amm.RedemptionPendingError{
			OperationID: anchor.OperationID,
			Pending:     []model.PendingRedemption{anchor},
			Persisted:   persisted,
			Err:         err,
		}
	}
	return nil
}

func seedLiquidity(ctx context.Context, l Ledger, pool common.Address, cfg SetupConfig, logger *zap.Logger) error {
	a0, a1 := cfg.InitialLiquidity[0], cfg.InitialLiquidity[1]
	if a0 == nil || a1 == nil || a0.Sign() == 0 || a1.Sign() == 0 {
		return nil
	}
	session, err := amm.NewSession(ctx, l, pool, amm.WithLogger(logger))
	if err != nil {
		return err
	}
	p := session.Pool()
	res, err := session.AddLiquidity(ctx, p.Token0, p.Token1, a0, a1, cfg.Deployer)
	if err != nil {
		return fmt.Errorf("seed liquidity: %w", err)
	}
	logger.Info("initial liquidity added",
		zap.String("tx_hash", res.TxHash.Hex()),
		zap.String("amount0", a0.String()),
		zap.String("amount1", a1.String()),
	)
	return nil
}
