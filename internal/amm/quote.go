package amm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"shieldswap/internal/model"
)

// maxAmountBits is the ledger's native integer width for amounts and reserves.
const maxAmountBits = 128

func toWord(name string, v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return nil, fmt.Errorf("%s is nil: %w", name, ErrAmountOutOfRange)
	}
	if v.Sign() < 0 || v.BitLen() > maxAmountBits {
		return nil, fmt.Errorf("%s %s: %w", name, v.String(), ErrAmountOutOfRange)
	}
	w, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%s %s: %w", name, v.String(), ErrAmountOutOfRange)
	}
	return w, nil
}

// Quote returns floor(reserveOut*amountIn / (reserveIn+amountIn)), the
// zero-fee constant-product output the AMM contract accepts.
func Quote(reserveIn, reserveOut, amountIn *big.Int) (*big.Int, error) {
	rIn, err := toWord("reserve in", reserveIn)
	if err != nil {
		return nil, err
	}
	rOut, err := toWord("reserve out", reserveOut)
	if err != nil {
		return nil, err
	}
	aIn, err := toWord("amount in", amountIn)
	if err != nil {
		return nil, err
	}

	if aIn.IsZero() {
		return new(big.Int), nil
	}

	// Both operands are below 2^128 so neither step can wrap a 256-bit word.
	denom, overflow := new(uint256.Int).AddOverflow(rIn, aIn)
	if overflow {
		return nil, fmt.Errorf("reserve in + amount in: %w", ErrAmountOutOfRange)
	}
	if denom.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	num, overflow := new(uint256.Int).MulOverflow(rOut, aIn)
	if overflow {
		return nil, fmt.Errorf("reserve out * amount in: %w", ErrAmountOutOfRange)
	}

	return new(uint256.Int).Div(num, denom).ToBig(), nil
}

// CheckInvariant reports ErrInvariantViolation when paying amountOut for
// amountIn would decrease reserveIn*reserveOut.
func CheckInvariant(reserveIn, reserveOut, amountIn, amountOut *big.Int) error {
	rIn, err := toWord("reserve in", reserveIn)
	if err != nil {
		return err
	}
	rOut, err := toWord("reserve out", reserveOut)
	if err != nil {
		return err
	}
	aIn, err := toWord("amount in", amountIn)
	if err != nil {
		return err
	}
	aOut, err := toWord("amount out", amountOut)
	if err != nil {
		return err
	}
	if aOut.Cmp(rOut) >= 0 {
		return ErrInvariantViolation
	}

	before := new(uint256.Int).Mul(rIn, rOut)
	inAfter := new(uint256.Int).Add(rIn, aIn)
	outAfter := new(uint256.Int).Sub(rOut, aOut)
	after, overflow := new(uint256.Int).MulOverflow(inAfter, outAfter)
	if overflow {
		return fmt.Errorf("reserve product: %w", ErrAmountOutOfRange)
	}
	if after.Lt(before) {
		return ErrInvariantViolation
	}
	return nil
}

// QuoteSwap prices req against a pool snapshot. It performs no I/O.
func QuoteSwap(pool model.Pool, req model.SwapRequest) (model.SwapQuote, error) {
	if req.TokenIn == req.TokenOut {
		return model.SwapQuote{}, ErrInvalidTokenPair
	}
	if err := checkPoolTokens(pool, req.TokenIn, req.TokenOut); err != nil {
		return model.SwapQuote{}, err
	}
	reserveIn, reserveOut, _ := pool.ReservesFor(req.TokenIn)
	amountOut, err := Quote(reserveIn, reserveOut, req.AmountIn)
	if err != nil {
		return model.SwapQuote{}, err
	}
	return model.SwapQuote{
		AmountOut:  amountOut,
		ReserveIn:  new(big.Int).Set(reserveIn),
		ReserveOut: new(big.Int).Set(reserveOut),
	}, nil
}

func checkPoolTokens(pool model.Pool, a, b common.Address) error {
	if pool.Token0 == (common.Address{}) || pool.Token1 == (common.Address{}) {
		return ErrContractUnavailable
	}
	if !pool.Contains(a) || !pool.Contains(b) {
		return fmt.Errorf("token not in pool %s: %w", pool.Address.Hex(), ErrInvalidTokenPair)
	}
	return nil
}
