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

// SwapState is the phase a swap operation executes next.
type SwapState int

const (
	SwapQuoted SwapState = iota
	SwapAuthorizing
	SwapSubmitted
	SwapConfirmed
	SwapRedeeming
	SwapDone
	SwapAborted
)

func (s SwapState) String() string {
	switch s {
	case SwapQuoted:
		return "quoted"
	case SwapAuthorizing:
		return "authorizing"
	case SwapSubmitted:
		return "submitted"
	case SwapConfirmed:
		return "confirmed"
	case SwapRedeeming:
		return "redeeming"
	case SwapDone:
		return "done"
	case SwapAborted:
		return "aborted"
	default:
		return fmt.Sprintf("swap_state(%d)", int(s))
	}
}

// Terminal reports whether no further step is possible.
func (s SwapState) Terminal() bool {
	return s == SwapDone || s == SwapAborted
}

// SwapOperation carries one swap from quote to redemption. It is not safe
// for concurrent use.
type SwapOperation struct {
	ID      string
	Request model.SwapRequest
	Quote   model.SwapQuote
	Signer  common.Address
	State   SwapState
	Err     error

	Split      model.SwapSplit
	Nonce0     common.Hash
	Nonce1     common.Hash
	Witnesses  []model.AuthorizationWitness
	SecretHash common.Hash
	Receipt    model.Receipt
	Redeemed   []model.ShieldedRedemption
	Pending    []model.PendingRedemption

	secret  common.Hash
	session *Session
}

// NewSwap starts an operation in SwapQuoted for a quote the caller already holds.
func (s *Session) NewSwap(req model.SwapRequest, quote model.SwapQuote, signer common.Address) *SwapOperation {
	return &SwapOperation{
		ID:      newOperationID(),
		Request: req,
		Quote:   quote,
		Signer:  signer,
		State:   SwapQuoted,
		session: s,
	}
}

func validateSwap(pool model.Pool, req model.SwapRequest) error {
	if req.TokenIn == req.TokenOut {
		return ErrInvalidTokenPair
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return ErrInsufficientInputAmount
	}
	if req.AmountIn.BitLen() > maxAmountBits {
		return fmt.Errorf("amount in %s: %w", req.AmountIn.String(), ErrAmountOutOfRange)
	}
	return checkPoolTokens(pool, req.TokenIn, req.TokenOut)
}

// SplitSwap projects a swap of amountIn for amountOut onto canonical positions.
func SplitSwap(req model.SwapRequest, amountOut *big.Int) (model.SwapSplit, error) {
	token0, token1, err := Canonicalize(req.TokenIn, req.TokenOut)
	if err != nil {
		return model.SwapSplit{}, err
	}
	split := model.SwapSplit{
		Token0:     token0,
		Token1:     token1,
		Amount0In:  new(big.Int),
		Amount0Out: new(big.Int),
		Amount1In:  new(big.Int),
		Amount1Out: new(big.Int),
	}
	if req.TokenIn == token0 {
		split.Amount0In.Set(req.AmountIn)
		split.Amount1Out.Set(amountOut)
	} else {
		split.Amount1In.Set(req.AmountIn)
		split.Amount0Out.Set(amountOut)
	}
	return split, nil
}

// Run steps the operation until it reaches a terminal state or a step fails.
// A swap stopped in SwapRedeeming can be resumed by calling Run again.
func (op *SwapOperation) Run(ctx context.Context) error {
	for !op.State.Terminal() {
		if err := op.Step(ctx); err != nil {
			return err
		}
	}
	return op.Err
}

// Step executes the handler for the current state.
func (op *SwapOperation) Step(ctx context.Context) error {
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
	case SwapQuoted:
		err = op.validate(ctx)
	case SwapAuthorizing:
		err = op.authorize(ctx)
	case SwapSubmitted:
		err = op.submit(ctx)
	case SwapConfirmed:
		err = op.confirm()
	case SwapRedeeming:
		err = op.redeem(ctx)
	}
	op.session.observer.ObserveStage(kindSwap, stage.String(), time.Since(start))

	switch {
	case err == nil:
	case errors.Is(err, ErrRedemptionPending):
		op.Err = err
		op.session.observer.ObserveOutcome(kindSwap, outcomeRedemptionPending)
	default:
		op.abort(err)
		err = op.Err
	}
	op.session.record(op.record())
	if op.State == SwapDone {
		op.session.observer.ObserveOutcome(kindSwap, outcomeDone)
	}
	return err
}

func (op *SwapOperation) abort(err error) {
	op.State = SwapAborted
	op.Err = err
	op.session.observer.ObserveOutcome(kindSwap, outcomeAborted)
	op.session.logger.Warn("swap aborted",
		zap.String("operation_id", op.ID),
		zap.Bool("retriable", Retriable(err)),
		zap.Error(err),
	)
}

func (op *SwapOperation) validate(ctx context.Context) error {
	s := op.session
	if err := validateSwap(s.pool, op.Request); err != nil {
		return err
	}
	if op.Quote.AmountOut == nil || op.Quote.AmountOut.Sign() <= 0 {
		return ErrInsufficientOutputAmount
	}
	if op.Quote.AmountOut.BitLen() > maxAmountBits {
		return fmt.Errorf("amount out %s: %w", op.Quote.AmountOut.String(), ErrAmountOutOfRange)
	}
	if op.Signer == (common.Address{}) {
		return fmt.Errorf("signer address is empty")
	}

	split, err := SplitSwap(op.Request, op.Quote.AmountOut)
	if err != nil {
		return err
	}
	if split.Token0 != s.pool.Token0 || split.Token1 != s.pool.Token1 {
		return fmt.Errorf("swap tokens do not match pool %s: %w", s.pool.Address.Hex(), ErrInvalidTokenPair)
	}

	if s.cfg.PreflightInvariant {
		r0, r1, err := s.ledger.ViewReserves(ctx, s.pool.Address)
		if err != nil {
			return remoteError("view reserves", err)
		}
		reserveIn, reserveOut := r0, r1
		if op.Request.TokenIn == s.pool.Token1 {
			reserveIn, reserveOut = r1, r0
		}
		if err := CheckInvariant(reserveIn, reserveOut, op.Request.AmountIn, op.Quote.AmountOut); err != nil {
			if errors.Is(err, ErrInvariantViolation) {
				return &LedgerError{Op: "preflight invariant", Reason: ErrInvariantViolation, Err: err}
			}
			return err
		}
	}

	op.Split = split
	op.State = SwapAuthorizing
	return nil
}

func (op *SwapOperation) authorize(ctx context.Context) error {
	s := op.session
	type side struct {
		token  common.Address
		amount *big.Int
		nonce  *common.Hash
	}
	var sides []side
	if op.Split.Amount0In.Sign() > 0 {
		sides = append(sides, side{op.Split.Token0, op.Split.Amount0In, &op.Nonce0})
	}
	if op.Split.Amount1In.Sign() > 0 {
		sides = append(sides, side{op.Split.Token1, op.Split.Amount1In, &op.Nonce1})
	}
	for _, sd := range sides {
		nonce, err := s.authorizer.NewNonce()
		if err != nil {
			return err
		}
		*sd.nonce = nonce
	}

	witnesses := make([]model.AuthorizationWitness, len(sides))
	g, gctx := errgroup.WithContext(ctx)
	for i, sd := range sides {
		i, sd := i, sd
		g.Go(func() error {
			w, err := s.authorizer.Authorize(gctx, sd.token, op.Signer, s.pool.Address, sd.amount, *sd.nonce)
			if err != nil {
				return err
			}
			witnesses[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	secret, secretHash, err := NewRedemptionSecret()
	if err != nil {
		return err
	}
	op.Witnesses = witnesses
	op.secret = secret
	op.SecretHash = secretHash
	op.State = SwapSubmitted
	return nil
}

func (op *SwapOperation) submit(ctx context.Context) error {
	s := op.session
	call, err := contract.NewCall(s.pool.Address, "swap",
		op.Split.Token0, op.Split.Token1,
		op.Split.Amount0In, op.Split.Amount0Out,
		op.Split.Amount1In, op.Split.Amount1Out,
		op.Nonce0, op.Nonce1, op.SecretHash,
	)
	if err != nil {
		return err
	}

	wctx, cancel := s.withWait(ctx)
	defer cancel()
	receipt, err := s.ledger.Submit(wctx, op.Signer, call)
	if err != nil {
		return remoteError("submit swap", err)
	}

	op.Receipt = receipt
	op.State = SwapConfirmed
	s.logger.Info("swap confirmed",
		zap.String("operation_id", op.ID),
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.Uint64("block", receipt.BlockNumber),
	)
	return nil
}

func (op *SwapOperation) confirm() error {
	var pending []model.PendingRedemption
	add := func(token common.Address, amount *big.Int) {
		if amount.Sign() <= 0 {
			return
		}
		pending = append(pending, model.PendingRedemption{
			OperationID: op.ID,
			Token:       token,
			TxHash:      op.Receipt.TxHash,
			Owner:       op.Signer,
			Amount:      new(big.Int).Set(amount),
			Secret:      op.secret,
		})
	}
	add(op.Split.Token0, op.Split.Amount0Out)
	add(op.Split.Token1, op.Split.Amount1Out)

	op.Pending = pending
	op.State = SwapRedeeming
	return nil
}

// redeem claims every pending output independently. Outputs that fail stay
// in Pending and are persisted for a later retry.
func (op *SwapOperation) redeem(ctx context.Context) error {
	s := op.session
	errs := make([]error, len(op.Pending))

	var g errgroup.Group
	for i, p := range op.Pending {
		i, p := i, p
		g.Go(func() error {
			wctx, cancel := s.withWait(ctx)
			defer cancel()
			errs[i] = RedeemNote(wctx, s.ledger, p)
			return nil
		})
	}
	_ = g.Wait()

	var failed []model.PendingRedemption
	var failures []error
	for i, p := range op.Pending {
		if errs[i] != nil {
			failed = append(failed, p)
			failures = append(failures, errs[i])
			continue
		}
		op.Redeemed = append(op.Redeemed, model.ShieldedRedemption{
			Token:      p.Token,
			Amount:     p.Amount,
			Secret:     p.Secret,
			SecretHash: SecretHash(p.Secret),
		})
		if err := s.pending.Delete(ctx, p); err != nil {
			s.logger.Warn("drop pending redemption failed", zap.String("operation_id", op.ID), zap.Error(err))
		}
	}
	op.Pending = failed

	if len(failed) > 0 {
		persisted := s.pending.Enabled()
		if err := s.pending.Save(context.WithoutCancel(ctx), failed...); err != nil {
			persisted = false
			s.logger.Error("persist pending redemption failed", zap.String("operation_id", op.ID), zap.Error(err))
		}
		s.logger.Warn("redemption pending",
			zap.String("operation_id", op.ID),
			zap.String("tx_hash", op.Receipt.TxHash.Hex()),
			zap.Int("outputs", len(failed)),
		)
		return &RedemptionPendingError{
			OperationID: op.ID,
			Pending:     append([]model.PendingRedemption(nil), failed...),
			Persisted:   persisted,
			Err:         errors.Join(failures...),
		}
	}

	op.Err = nil
	op.State = SwapDone
	return nil
}

// Result summarizes a finished swap.
func (op *SwapOperation) Result() model.SwapResult {
	return model.SwapResult{
		OperationID: op.ID,
		TxHash:      op.Receipt.TxHash,
		AmountIn:    op.Request.AmountIn,
		AmountOut:   op.Quote.AmountOut,
		Redeemed:    op.Redeemed,
	}
}

func (op *SwapOperation) record() model.OperationRecord {
	rec := model.OperationRecord{
		OperationID: op.ID,
		Kind:        kindSwap,
		State:       op.State.String(),
		Token0:      hexOrEmpty(op.Split.Token0),
		Token1:      hexOrEmpty(op.Split.Token1),
		Amount0In:   amountString(op.Split.Amount0In),
		Amount0Out:  amountString(op.Split.Amount0Out),
		Amount1In:   amountString(op.Split.Amount1In),
		Amount1Out:  amountString(op.Split.Amount1Out),
	}
	if op.Receipt.TxHash != (common.Hash{}) {
		rec.TxHash = op.Receipt.TxHash.Hex()
	}
	if op.Err != nil {
		rec.Error = op.Err.Error()
	}
	return rec
}

func hexOrEmpty(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}
