package amm

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"shieldswap/internal/contract"
	"shieldswap/internal/ledger"
	"shieldswap/internal/model"
)

// Authorizer composes single-use spend authorizations and registers them
// with the ledger.
type Authorizer struct {
	ledger ledger.Ledger
	logger *zap.Logger
	random io.Reader

	mu   sync.Mutex
	used map[common.Hash]struct{}
}

func NewAuthorizer(l ledger.Ledger, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{
		ledger: l,
		logger: logger,
		random: rand.Reader,
		used:   make(map[common.Hash]struct{}),
	}
}

// NewNonce draws a fresh nonce that this Authorizer has never handed out.
func (a *Authorizer) NewNonce() (common.Hash, error) {
	for {
		nonce, err := randomHash(a.random)
		if err != nil {
			return common.Hash{}, err
		}
		if nonce == (common.Hash{}) {
			continue
		}
		a.mu.Lock()
		_, seen := a.used[nonce]
		a.mu.Unlock()
		if !seen {
			return nonce, nil
		}
	}
}

func (a *Authorizer) claimNonce(nonce common.Hash) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.used[nonce]; ok {
		return fmt.Errorf("nonce %s already used", nonce.Hex())
	}
	a.used[nonce] = struct{}{}
	return nil
}

// Authorize lets spender unshield amount of token from owner, once, under
// nonce. A zero nonce is replaced by a fresh random one.
func (a *Authorizer) Authorize(ctx context.Context, token, owner, spender common.Address, amount *big.Int, nonce common.Hash) (model.AuthorizationWitness, error) {
	if a.ledger == nil {
		return model.AuthorizationWitness{}, fmt.Errorf("ledger is nil")
	}
	if amount == nil || amount.Sign() <= 0 {
		return model.AuthorizationWitness{}, fmt.Errorf("authorize zero amount: %w", ErrInsufficientInputAmount)
	}

	if nonce == (common.Hash{}) {
		var err error
		nonce, err = a.NewNonce()
		if err != nil {
			return model.AuthorizationWitness{}, err
		}
	}
	if err := a.claimNonce(nonce); err != nil {
		return model.AuthorizationWitness{}, err
	}

	call, err := contract.NewCall(token, "unshield", owner, spender, amount, nonce)
	if err != nil {
		return model.AuthorizationWitness{}, err
	}

	witness, err := a.ledger.CreateAuthorization(ctx, owner, spender, call)
	if err != nil {
		return model.AuthorizationWitness{}, remoteError("create authorization", err)
	}
	witness.Token = token
	witness.Owner = owner
	witness.Spender = spender
	witness.Nonce = nonce
	witness.MessageHash = contract.MessageHash(spender, call)

	a.logger.Debug("authorization created",
		zap.String("token", token.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("amount", amount.String()),
		zap.String("message_hash", witness.MessageHash.Hex()),
	)
	return witness, nil
}
