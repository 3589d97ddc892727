package amm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shieldswap/internal/ledger"
	"shieldswap/internal/model"
)

// Config tunes how a Session drives remote calls.
type Config struct {
	// MaxWait bounds each awaited submission or redemption. Zero means no bound
	// beyond the caller's context.
	MaxWait time.Duration
	// PreflightInvariant re-reads reserves before authorizing a swap and
	// refuses to submit when the quote no longer satisfies the invariant.
	PreflightInvariant bool
}

// Session holds one resolved pool. It replaces process-wide state: callers
// may hold several sessions side by side.
type Session struct {
	ledger     ledger.Ledger
	pool       model.Pool
	authorizer *Authorizer
	pending    *PendingStore
	journal    Journal
	observer   Observer
	logger     *zap.Logger
	cfg        Config
}

type Option func(*Session)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithJournal(j Journal) Option {
	return func(s *Session) {
		if j != nil {
			s.journal = j
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithPendingStore(p *PendingStore) Option {
	return func(s *Session) { s.pending = p }
}

func WithConfig(cfg Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// NewSession resolves the pool's canonical tokens.
func NewSession(ctx context.Context, l ledger.Ledger, pool common.Address, opts ...Option) (*Session, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if pool == (common.Address{}) {
		return nil, fmt.Errorf("pool address is empty: %w", ErrContractUnavailable)
	}

	s := &Session{
		ledger:   l,
		journal:  nopJournal{},
		observer: nopObserver{},
		logger:   zap.NewNop(),
		cfg:      Config{PreflightInvariant: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.authorizer = NewAuthorizer(l, s.logger)

	token0, token1, err := l.ViewTokens(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("resolve pool tokens: %w", errors.Join(ErrContractUnavailable, err))
	}
	c0, c1, err := Canonicalize(token0, token1)
	if err != nil {
		return nil, fmt.Errorf("resolve pool tokens: %w", err)
	}
	if c0 != token0 || c1 != token1 {
		return nil, fmt.Errorf("pool %s tokens are not in canonical order: %w", pool.Hex(), ErrContractUnavailable)
	}
	s.pool = model.Pool{Address: pool, Token0: token0, Token1: token1}

	s.logger.Info("session ready",
		zap.String("pool", pool.Hex()),
		zap.String("token0", token0.Hex()),
		zap.String("token1", token1.Hex()),
	)
	return s, nil
}

func (s *Session) ready() error {
	if s == nil || s.ledger == nil || s.pool.Address == (common.Address{}) {
		return ErrContractUnavailable
	}
	return nil
}

// Pool returns the resolved pool without reserves.
func (s *Session) Pool() model.Pool {
	if s == nil {
		return model.Pool{}
	}
	return model.Pool{Address: s.pool.Address, Token0: s.pool.Token0, Token1: s.pool.Token1}
}

// Snapshot reads both reserves from a single view call.
func (s *Session) Snapshot(ctx context.Context) (model.Pool, error) {
	if err := s.ready(); err != nil {
		return model.Pool{}, err
	}
	r0, r1, err := s.ledger.ViewReserves(ctx, s.pool.Address)
	if err != nil {
		return model.Pool{}, remoteError("view reserves", err)
	}
	pool := s.Pool()
	pool.Reserve0 = r0
	pool.Reserve1 = r1
	return pool, nil
}

// Reserves returns the reserves of a and b in the caller's argument order.
func (s *Session) Reserves(ctx context.Context, a, b common.Address) (*big.Int, *big.Int, error) {
	if err := s.ready(); err != nil {
		return nil, nil, err
	}
	if a == b {
		return nil, nil, ErrInvalidTokenPair
	}
	if err := checkPoolTokens(s.pool, a, b); err != nil {
		return nil, nil, err
	}
	pool, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	ra, rb, _ := pool.ReservesFor(a)
	return ra, rb, nil
}

// Quote prices req against the current reserves. It never writes.
func (s *Session) Quote(ctx context.Context, req model.SwapRequest) (model.SwapQuote, error) {
	if err := s.ready(); err != nil {
		return model.SwapQuote{}, err
	}
	if req.TokenIn == req.TokenOut {
		return model.SwapQuote{}, ErrInvalidTokenPair
	}
	if err := checkPoolTokens(s.pool, req.TokenIn, req.TokenOut); err != nil {
		return model.SwapQuote{}, err
	}
	pool, err := s.Snapshot(ctx)
	if err != nil {
		return model.SwapQuote{}, err
	}
	return QuoteSwap(pool, req)
}

// Swap executes req at the caller's quote on behalf of signer and drives it
// to a terminal state. The quote is not re-derived.
func (s *Session) Swap(ctx context.Context, req model.SwapRequest, quote model.SwapQuote, signer common.Address) (model.SwapResult, error) {
	if err := s.ready(); err != nil {
		return model.SwapResult{}, err
	}
	op := s.NewSwap(req, quote, signer)
	if err := op.Run(ctx); err != nil {
		return model.SwapResult{}, err
	}
	return op.Result(), nil
}

// AddLiquidity deposits amountA of tokenA and amountB of tokenB from signer.
func (s *Session) AddLiquidity(ctx context.Context, tokenA, tokenB common.Address, amountA, amountB *big.Int, signer common.Address) (model.LiquidityResult, error) {
	if err := s.ready(); err != nil {
		return model.LiquidityResult{}, err
	}
	req := model.LiquidityRequest{TokenA: tokenA, TokenB: tokenB, AmountA: amountA, AmountB: amountB}
	op := s.NewLiquidity(req, signer)
	if err := op.Run(ctx); err != nil {
		return model.LiquidityResult{}, err
	}
	return op.Result(), nil
}

// ListPending returns persisted redemption anchors.
func (s *Session) ListPending(ctx context.Context) ([]model.PendingRedemption, error) {
	if s == nil {
		return nil, ErrContractUnavailable
	}
	return s.pending.List(ctx)
}

// RetryRedemption re-attempts one pending redemption and forgets the anchor
// once it succeeds. The attempt is journaled under the anchor's operation.
func (s *Session) RetryRedemption(ctx context.Context, p model.PendingRedemption) error {
	if err := s.ready(); err != nil {
		return err
	}
	wctx, cancel := s.withWait(ctx)
	defer cancel()
	if err := RedeemNote(wctx, s.ledger, p); err != nil {
		persisted := s.pending.Enabled()
		if saveErr := s.pending.Save(context.WithoutCancel(ctx), p); saveErr != nil {
			persisted = false
			s.logger.Error("persist pending redemption failed", zap.String("operation_id", p.OperationID), zap.Error(saveErr))
		}
		s.observer.ObserveOutcome(kindRedeem, outcomeRedemptionPending)
		s.record(redeemRecord(p, SwapRedeeming.String(), err))
		return &RedemptionPendingError{
			OperationID: p.OperationID,
			Pending:     []model.PendingRedemption{p},
			Persisted:   persisted,
			Err:         err,
		}
	}
	s.observer.ObserveOutcome(kindRedeem, outcomeDone)
	s.record(redeemRecord(p, SwapDone.String(), nil))
	s.logger.Info("redemption completed",
		zap.String("operation_id", p.OperationID),
		zap.String("token", p.Token.Hex()),
		zap.String("tx_hash", p.TxHash.Hex()),
	)
	return s.pending.Delete(ctx, p)
}

func redeemRecord(p model.PendingRedemption, state string, err error) model.OperationRecord {
	rec := model.OperationRecord{
		OperationID: p.OperationID,
		Kind:        kindRedeem,
		State:       state,
		Token0:      p.Token.Hex(),
		Amount0Out:  amountString(p.Amount),
		TxHash:      p.TxHash.Hex(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

func (s *Session) withWait(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.MaxWait > 0 {
		return context.WithTimeout(ctx, s.cfg.MaxWait)
	}
	return context.WithCancel(ctx)
}

func (s *Session) record(rec model.OperationRecord) {
	rec.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.journal.Append(rec); err != nil {
		s.logger.Warn("journal append failed", zap.String("operation_id", rec.OperationID), zap.Error(err))
	}
}

func newOperationID() string {
	return uuid.NewString()
}

func amountString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
