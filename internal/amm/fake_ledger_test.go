package amm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"shieldswap/internal/contract"
	"shieldswap/internal/model"
)

type shieldKey struct {
	tx    common.Hash
	token common.Address
}

type shieldOutput struct {
	amount     *big.Int
	secretHash common.Hash
	registered bool
	redeemed   bool
}

// fakeLedger mirrors the AMM contract's checks closely enough to act as the
// oracle in orchestration tests.
type fakeLedger struct {
	mu sync.Mutex

	pool     common.Address
	token0   common.Address
	token1   common.Address
	reserve0 *big.Int
	reserve1 *big.Int

	private map[common.Address]map[common.Address]*big.Int
	auths   map[common.Hash]bool
	outputs map[shieldKey]*shieldOutput

	txCount     uint64
	submits     int
	redeemFails map[common.Address]int
	blockSubmit bool
	blockRedeem bool
	authErr     error
	authCalls   int
}

func newFakeLedger(pool, token0, token1 common.Address, reserve0, reserve1 int64) *fakeLedger {
	return &fakeLedger{
		pool:        pool,
		token0:      token0,
		token1:      token1,
		reserve0:    big.NewInt(reserve0),
		reserve1:    big.NewInt(reserve1),
		private:     make(map[common.Address]map[common.Address]*big.Int),
		auths:       make(map[common.Hash]bool),
		outputs:     make(map[shieldKey]*shieldOutput),
		redeemFails: make(map[common.Address]int),
	}
}

func (f *fakeLedger) mint(token, owner common.Address, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceLocked(token, owner).Add(f.balanceLocked(token, owner), big.NewInt(amount))
}

func (f *fakeLedger) balanceLocked(token, owner common.Address) *big.Int {
	byOwner, ok := f.private[token]
	if !ok {
		byOwner = make(map[common.Address]*big.Int)
		f.private[token] = byOwner
	}
	bal, ok := byOwner[owner]
	if !ok {
		bal = new(big.Int)
		byOwner[owner] = bal
	}
	return bal
}

func (f *fakeLedger) balance(token, owner common.Address) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.balanceLocked(token, owner))
}

func (f *fakeLedger) reserves() (*big.Int, *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.reserve0), new(big.Int).Set(f.reserve1)
}

func (f *fakeLedger) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

func (f *fakeLedger) ViewReserves(_ context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	if pool != f.pool {
		return nil, nil, fmt.Errorf("unknown contract %s", pool.Hex())
	}
	r0, r1 := f.reserves()
	return r0, r1, nil
}

func (f *fakeLedger) ViewTokens(_ context.Context, pool common.Address) (common.Address, common.Address, error) {
	if pool != f.pool {
		return common.Address{}, common.Address{}, fmt.Errorf("unknown contract %s", pool.Hex())
	}
	return f.token0, f.token1, nil
}

func (f *fakeLedger) CreateAuthorization(_ context.Context, owner, spender common.Address, call model.CallDescriptor) (model.AuthorizationWitness, error) {
	hash := contract.MessageHash(spender, call)
	f.mu.Lock()
	f.authCalls++
	if f.authErr != nil {
		f.mu.Unlock()
		return model.AuthorizationWitness{}, f.authErr
	}
	f.auths[hash] = true
	f.mu.Unlock()
	return model.AuthorizationWitness{Owner: owner, Spender: spender, Witness: hash.Bytes()}, nil
}

// consumeAuthLocked checks that from authorized the pool to unshield amount
// of token under nonce, and burns the authorization.
func (f *fakeLedger) consumeAuthLocked(token, from common.Address, amount *big.Int, nonce common.Hash) error {
	call, err := contract.NewCall(token, "unshield", from, f.pool, amount, nonce)
	if err != nil {
		return err
	}
	hash := contract.MessageHash(f.pool, call)
	if !f.auths[hash] {
		return errors.New("Unknown auth witness for message hash " + hash.Hex())
	}
	delete(f.auths, hash)
	bal := f.balanceLocked(token, from)
	if bal.Cmp(amount) < 0 {
		return errors.New("Balance too low")
	}
	bal.Sub(bal, amount)
	return nil
}

func (f *fakeLedger) nextTxLocked() model.Receipt {
	f.txCount++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], f.txCount)
	return model.Receipt{TxHash: crypto.Keccak256Hash(buf[:]), BlockNumber: f.txCount}
}

func (f *fakeLedger) Submit(ctx context.Context, from common.Address, call model.CallDescriptor) (model.Receipt, error) {
	if f.blockSubmit {
		<-ctx.Done()
		return model.Receipt{}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if call.Contract != f.pool {
		return model.Receipt{}, fmt.Errorf("unknown contract %s", call.Contract.Hex())
	}
	switch call.Method {
	case "swap":
		return f.swapLocked(from, call.Args)
	case "add_liquidity":
		return f.addLiquidityLocked(from, call.Args)
	default:
		return model.Receipt{}, fmt.Errorf("unknown method %s", call.Method)
	}
}

func (f *fakeLedger) swapLocked(from common.Address, args []interface{}) (model.Receipt, error) {
	token0, token1 := args[0].(common.Address), args[1].(common.Address)
	a0In, a0Out := args[2].(*big.Int), args[3].(*big.Int)
	a1In, a1Out := args[4].(*big.Int), args[5].(*big.Int)
	nonce0, nonce1 := args[6].(common.Hash), args[7].(common.Hash)
	secretHash := args[8].(common.Hash)

	if token0 != f.token0 || token1 != f.token1 {
		return model.Receipt{}, errors.New("Assertion failed: Shieldswap: INVALID_TOKEN_ADDRESSES")
	}
	if a0In.Sign() == 0 && a1In.Sign() == 0 {
		return model.Receipt{}, errors.New("Assertion failed: Shieldswap: INSUFFICIENT_INPUT_AMOUNT")
	}
	if a0Out.Sign() == 0 && a1Out.Sign() == 0 {
		return model.Receipt{}, errors.New("Assertion failed: Shieldswap: INSUFFICIENT_OUTPUT_AMOUNT")
	}

	r0 := new(big.Int).Sub(new(big.Int).Add(f.reserve0, a0In), a0Out)
	r1 := new(big.Int).Sub(new(big.Int).Add(f.reserve1, a1In), a1Out)
	before := new(big.Int).Mul(f.reserve0, f.reserve1)
	if r0.Sign() <= 0 || r1.Sign() <= 0 || new(big.Int).Mul(r0, r1).Cmp(before) < 0 {
		return model.Receipt{}, errors.New("Assertion failed: Shieldswap: K")
	}

	if a0In.Sign() > 0 {
		if err := f.consumeAuthLocked(token0, from, a0In, nonce0); err != nil {
			return model.Receipt{}, err
		}
	}
	if a1In.Sign() > 0 {
		if err := f.consumeAuthLocked(token1, from, a1In, nonce1); err != nil {
			return model.Receipt{}, err
		}
	}

	f.reserve0, f.reserve1 = r0, r1
	receipt := f.nextTxLocked()
	if a0Out.Sign() > 0 {
		f.outputs[shieldKey{receipt.TxHash, token0}] = &shieldOutput{amount: new(big.Int).Set(a0Out), secretHash: secretHash}
	}
	if a1Out.Sign() > 0 {
		f.outputs[shieldKey{receipt.TxHash, token1}] = &shieldOutput{amount: new(big.Int).Set(a1Out), secretHash: secretHash}
	}
	return receipt, nil
}

func (f *fakeLedger) addLiquidityLocked(from common.Address, args []interface{}) (model.Receipt, error) {
	token0, token1 := args[0].(common.Address), args[1].(common.Address)
	a0, a1 := args[2].(*big.Int), args[3].(*big.Int)
	nonce0, nonce1 := args[4].(common.Hash), args[5].(common.Hash)

	if token0 != f.token0 || token1 != f.token1 {
		return model.Receipt{}, errors.New("Assertion failed: Shieldswap: INVALID_TOKEN_ADDRESSES")
	}
	if a0.Sign() == 0 || a1.Sign() == 0 {
		return model.Receipt{}, errors.New("Assertion failed: Shieldswap: INSUFFICIENT_LIQUIDITY_MINTED")
	}
	if err := f.consumeAuthLocked(token0, from, a0, nonce0); err != nil {
		return model.Receipt{}, err
	}
	if err := f.consumeAuthLocked(token1, from, a1, nonce1); err != nil {
		return model.Receipt{}, err
	}
	f.reserve0 = new(big.Int).Add(f.reserve0, a0)
	f.reserve1 = new(big.Int).Add(f.reserve1, a1)
	return f.nextTxLocked(), nil
}

func (f *fakeLedger) RegisterPrivateNote(_ context.Context, note model.PrivateNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, ok := f.outputs[shieldKey{note.TxHash, note.Token}]
	if !ok {
		return fmt.Errorf("no shielded output for %s in %s", note.Token.Hex(), note.TxHash.Hex())
	}
	if out.amount.Cmp(note.Amount) != 0 || out.secretHash != note.SecretHash {
		return errors.New("note does not match shielded output")
	}
	out.registered = true
	return nil
}

func (f *fakeLedger) Redeem(ctx context.Context, token common.Address, txHash common.Hash, owner common.Address, amount *big.Int, secret common.Hash) error {
	if f.blockRedeem {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redeemFails[token] > 0 {
		f.redeemFails[token]--
		return errors.New("node unavailable")
	}
	out, ok := f.outputs[shieldKey{txHash, token}]
	if !ok || !out.registered {
		return errors.New("note not registered")
	}
	if out.redeemed {
		return nil
	}
	if SecretHash(secret) != out.secretHash || out.amount.Cmp(amount) != 0 {
		return errors.New("secret does not match note")
	}
	out.redeemed = true
	bal := f.balanceLocked(token, owner)
	bal.Add(bal, amount)
	return nil
}
