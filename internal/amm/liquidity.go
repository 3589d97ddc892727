package amm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shieldswap/internal/contract"
	"shieldswap/internal/model"
)

type LiquidityState int

const (
	LiquidityValidated LiquidityState = iota
	LiquidityAuthorizing
	LiquiditySubmitted
	LiquidityDone
	LiquidityAborted
)

func (s LiquidityState) String() string {
	switch s {
	case LiquidityValidated:
		return "validated"
	case LiquidityAuthorizing:
		return "authorizing"
	case LiquiditySubmitted:
		return "submitted"
	case LiquidityDone:
		return "done"
	case LiquidityAborted:
		return "aborted"
	default:
		return fmt.Sprintf("liquidity_state(%d)", int(s))
	}
}

func (s LiquidityState) Terminal() bool {
	return s == LiquidityDone || s == LiquidityAborted
}

// LiquidityOperation deposits both pool tokens in one call.
type LiquidityOperation struct {
	ID      string
	Request model.LiquidityRequest
	Signer  common.Address
	State   LiquidityState
	Err     error

	Token0    common.Address
	Token1    common.Address
	Amount0   *big.Int
	Amount1   *big.Int
	Nonce0    common.Hash
	Nonce1    common.Hash
	Witnesses []model.AuthorizationWitness
	Receipt   model.Receipt

	session *Session
}

func (s *Session) NewLiquidity(req model.LiquidityRequest, signer common.Address) *LiquidityOperation {
	return &LiquidityOperation{
		ID:      newOperationID(),
		Request: req,
		Signer:  signer,
		State:   LiquidityValidated,
		session: s,
	}
}

func (op *LiquidityOperation) Run(ctx context.Context) error {
	for !op.State.Terminal() {
		if err := op.Step(ctx); err != nil {
			return err
		}
	}
	return op.Err
}

func (op *LiquidityOperation) Step(ctx context.Context) error {
	if op.session == nil {
		return ErrContractUnavailable
	}
	if op.State.Terminal() {
		return op.Err
	}

	stage := op.State
	start := time.Now()
	var err error
	switch stage {
	case LiquidityValidated:
		err = op.validate()
	case LiquidityAuthorizing:
		err = op.authorize(ctx)
	case LiquiditySubmitted:
		err = op.submit(ctx)
	}
	op.session.observer.ObserveStage(kindLiquidity, stage.String(), time.Since(start))

	if err != nil {
		op.State = LiquidityAborted
		op.Err = err
		op.session.observer.ObserveOutcome(kindLiquidity, outcomeAborted)
		op.session.logger.Warn("add liquidity aborted", zap.String("operation_id", op.ID), zap.Error(err))
	}
	op.session.record(op.record())
	if op.State == LiquidityDone {
		op.session.observer.ObserveOutcome(kindLiquidity, outcomeDone)
	}
	return err
}

func validLiquidityAmount(name string, v *big.Int) error {
	if v == nil || v.Sign() == 0 {
		return ErrInsufficientLiquidityMinted
	}
	if v.Sign() < 0 || v.BitLen() > maxAmountBits {
		return fmt.Errorf("%s %s: %w", name, v.String(), ErrAmountOutOfRange)
	}
	return nil
}

func (op *LiquidityOperation) validate() error {
	s := op.session
	req := op.Request
	token0, token1, err := Canonicalize(req.TokenA, req.TokenB)
	if err != nil {
		return err
	}
	if err := validLiquidityAmount("amount a", req.AmountA); err != nil {
		return err
	}
	if err := validLiquidityAmount("amount b", req.AmountB); err != nil {
		return err
	}
	if op.Signer == (common.Address{}) {
		return fmt.Errorf("signer address is empty")
	}
	if token0 != s.pool.Token0 || token1 != s.pool.Token1 {
		return fmt.Errorf("liquidity tokens do not match pool %s: %w", s.pool.Address.Hex(), ErrInvalidTokenPair)
	}

	op.Token0, op.Token1 = token0, token1
	if req.TokenA == token0 {
		op.Amount0, op.Amount1 = new(big.Int).Set(req.AmountA), new(big.Int).Set(req.AmountB)
	} else {
		op.Amount0, op.Amount1 = new(big.Int).Set(req.AmountB), new(big.Int).Set(req.AmountA)
	}
	op.State = LiquidityAuthorizing
	return nil
}

func (op *LiquidityOperation) authorize(ctx context.Context) error {
	s := op.session
	var err error
	if op.Nonce0, err = s.authorizer.NewNonce(); err != nil {
		return err
	}
	if op.Nonce1, err = s.authorizer.NewNonce(); err != nil {
		return err
	}
	if op.Nonce0 == op.Nonce1 {
		return errors.New("nonce collision")
	}

	witnesses := make([]model.AuthorizationWitness, 2)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.authorizer.Authorize(gctx, op.Token0, op.Signer, s.pool.Address, op.Amount0, op.Nonce0)
		witnesses[0] = w
		return err
	})
	g.Go(func() error {
		w, err := s.authorizer.Authorize(gctx, op.Token1, op.Signer, s.pool.Address, op.Amount1, op.Nonce1)
		witnesses[1] = w
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	op.Witnesses = witnesses
	op.State = LiquiditySubmitted
	return nil
}

func (op *LiquidityOperation) submit(ctx context.Context) error {
	s := op.session
	call, err := contract.NewCall(s.pool.Address, "add_liquidity",
		op.Token0, op.Token1, op.Amount0, op.Amount1, op.Nonce0, op.Nonce1)
	if err != nil {
		return err
	}

	wctx, cancel := s.withWait(ctx)
	defer cancel()
	receipt, err := s.ledger.Submit(wctx, op.Signer, call)
	if err != nil {
		return remoteError("submit add liquidity", err)
	}
	op.Receipt = receipt
	op.State = LiquidityDone
	s.logger.Info("liquidity added",
		zap.String("operation_id", op.ID),
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.String("amount0", op.Amount0.String()),
		zap.String("amount1", op.Amount1.String()),
	)
	return nil
}

func (op *LiquidityOperation) Result() model.LiquidityResult {
	return model.LiquidityResult{
		OperationID: op.ID,
		TxHash:      op.Receipt.TxHash,
		Token0:      op.Token0,
		Token1:      op.Token1,
		Amount0:     op.Amount0,
		Amount1:     op.Amount1,
	}
}

func (op *LiquidityOperation) record() model.OperationRecord {
	rec := model.OperationRecord{
		OperationID: op.ID,
		Kind:        kindLiquidity,
		State:       op.State.String(),
		Token0:      hexOrEmpty(op.Token0),
		Token1:      hexOrEmpty(op.Token1),
		Amount0In:   amountString(op.Amount0),
		Amount1In:   amountString(op.Amount1),
	}
	if op.Receipt.TxHash != (common.Hash{}) {
		rec.TxHash = op.Receipt.TxHash.Hex()
	}
	if op.Err != nil {
		rec.Error = op.Err.Error()
	}
	return rec
}
