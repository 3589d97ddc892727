package amm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"shieldswap/internal/model"
)

// Codes the AMM contract uses in its rejection messages. Callers classify
// on these verbatim.
const (
	CodeInvalidTokenAddresses       = "INVALID_TOKEN_ADDRESSES"
	CodeInsufficientInputAmount     = "INSUFFICIENT_INPUT_AMOUNT"
	CodeInsufficientOutputAmount    = "INSUFFICIENT_OUTPUT_AMOUNT"
	CodeInsufficientLiquidityMinted = "INSUFFICIENT_LIQUIDITY_MINTED"
	CodeInvariant                   = "K"
)

var (
	ErrInvalidTokenPair            = errors.New(CodeInvalidTokenAddresses)
	ErrInsufficientInputAmount     = errors.New(CodeInsufficientInputAmount)
	ErrInsufficientOutputAmount    = errors.New(CodeInsufficientOutputAmount)
	ErrInsufficientLiquidityMinted = errors.New(CodeInsufficientLiquidityMinted)
	ErrInvariantViolation          = errors.New(CodeInvariant)

	ErrContractUnavailable   = errors.New("contract unavailable")
	ErrRedemptionPending     = errors.New("redemption pending")
	ErrRemote                = errors.New("remote error")
	ErrAmountOutOfRange      = errors.New("amount out of range")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// invariantCode matches the contract's "...: K" rejection at the end of a
// message line, not any standalone K.
var invariantCode = regexp.MustCompile(`(?m)(?:^|:\s*)K\s*$`)

// LedgerError is a remote rejection re-classified into the taxonomy.
// errors.Is matches both Reason and the underlying error.
type LedgerError struct {
	Op     string
	Reason error
	Err    error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() []error {
	return []error{e.Reason, e.Err}
}

// RedemptionPendingError reports a confirmed transaction whose private
// outputs were not claimed. Pending holds everything needed to retry,
// secrets included. Persisted is false when the anchors could not be written
// to the pending store, in which case Pending is the only copy.
type RedemptionPendingError struct {
	OperationID string
	Pending     []model.PendingRedemption
	Persisted   bool
	Err         error
}

func (e *RedemptionPendingError) Error() string {
	return fmt.Sprintf("redemption pending for %d output(s): %v", len(e.Pending), e.Err)
}

func (e *RedemptionPendingError) Unwrap() []error {
	return []error{ErrRedemptionPending, e.Err}
}

// Classify maps a ledger rejection to its taxonomy sentinel. Unknown
// failures map to ErrRemote.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrInvalidTokenPair,
		ErrInsufficientInputAmount,
		ErrInsufficientOutputAmount,
		ErrInsufficientLiquidityMinted,
		ErrInvariantViolation,
		ErrContractUnavailable,
	} {
		if errors.Is(err, known) {
			return known
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, CodeInvalidTokenAddresses):
		return ErrInvalidTokenPair
	case strings.Contains(msg, CodeInsufficientInputAmount):
		return ErrInsufficientInputAmount
	case strings.Contains(msg, CodeInsufficientOutputAmount):
		return ErrInsufficientOutputAmount
	case strings.Contains(msg, CodeInsufficientLiquidityMinted):
		return ErrInsufficientLiquidityMinted
	case invariantCode.MatchString(msg):
		return ErrInvariantViolation
	default:
		return ErrRemote
	}
}

func remoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &LedgerError{Op: op, Reason: ErrRemote, Err: err}
	}
	return &LedgerError{Op: op, Reason: Classify(err), Err: err}
}

// Retriable reports whether the operation can be re-quoted and resubmitted
// with fresh nonces. Validation errors and pending redemptions are not.
func Retriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRedemptionPending) {
		return false
	}
	var le *LedgerError
	if !errors.As(err, &le) {
		return false
	}
	return errors.Is(le.Reason, ErrInvariantViolation) || errors.Is(le.Reason, ErrRemote)
}
