// Package token resolves token contracts to display metadata and reads
// their balances according to each token's kind.
package token

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"shieldswap/internal/ledger"
	"shieldswap/internal/model"
)

const defaultCacheSize = 256

// Registry holds configured tokens and caches metadata fetched for others.
// Configured tokens are never evicted.
type Registry struct {
	viewer ledger.MetadataViewer
	logger *zap.Logger

	mu       sync.RWMutex
	pinned   map[common.Address]model.Token
	bySymbol map[string]common.Address
	resolved *lru.Cache[common.Address, model.Token]
}

func NewRegistry(viewer ledger.MetadataViewer, cacheSize int, logger *zap.Logger) (*Registry, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[common.Address, model.Token](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Registry{
		viewer:   viewer,
		logger:   logger,
		pinned:   make(map[common.Address]model.Token),
		bySymbol: make(map[string]common.Address),
		resolved: cache,
	}, nil
}

// Register pins tok. Its kind is fixed from here on.
func (r *Registry) Register(tok model.Token) error {
	if tok.Address == (common.Address{}) {
		return fmt.Errorf("token address is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if tok.Symbol != "" {
		key := strings.ToUpper(tok.Symbol)
		if existing, ok := r.bySymbol[key]; ok && existing != tok.Address {
			return fmt.Errorf("symbol %s already registered for %s", tok.Symbol, existing.Hex())
		}
		r.bySymbol[key] = tok.Address
	}
	r.pinned[tok.Address] = tok
	r.resolved.Remove(tok.Address)
	return nil
}

// Lookup returns a known token without I/O.
func (r *Registry) Lookup(addr common.Address) (model.Token, bool) {
	r.mu.RLock()
	tok, ok := r.pinned[addr]
	r.mu.RUnlock()
	if ok {
		return tok, true
	}
	return r.resolved.Get(addr)
}

// BySymbol finds a configured token by case-insensitive symbol.
func (r *Registry) BySymbol(symbol string) (model.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return model.Token{}, false
	}
	return r.pinned[addr], true
}

// Parse accepts a configured symbol or a hex address.
func (r *Registry) Parse(value string) (common.Address, error) {
	if tok, ok := r.BySymbol(value); ok {
		return tok.Address, nil
	}
	if common.IsHexAddress(value) {
		return common.HexToAddress(value), nil
	}
	return common.Address{}, fmt.Errorf("unknown token %q", value)
}

// Resolve returns the token at addr with symbol and decimals filled in,
// reading them from the ledger on first use. Unconfigured tokens are
// treated as private-only.
func (r *Registry) Resolve(ctx context.Context, addr common.Address) (model.Token, error) {
	tok, ok := r.Lookup(addr)
	if ok && tok.Symbol != "" {
		return tok, nil
	}
	if !ok {
		tok = model.Token{Address: addr, Kind: model.KindPrivate}
	}
	if r.viewer == nil {
		return tok, nil
	}

	symbol, decimals, err := r.viewer.TokenMeta(ctx, addr)
	if err != nil {
		return model.Token{}, fmt.Errorf("fetch token meta %s: %w", addr.Hex(), err)
	}
	tok.Symbol = symbol
	tok.Decimals = decimals

	r.mu.Lock()
	if _, pinned := r.pinned[addr]; pinned {
		r.pinned[addr] = tok
		if symbol != "" {
			if _, taken := r.bySymbol[strings.ToUpper(symbol)]; !taken {
				r.bySymbol[strings.ToUpper(symbol)] = addr
			}
		}
	} else {
		r.resolved.Add(addr, tok)
	}
	r.mu.Unlock()

	r.logger.Debug("token resolved", zap.String("token", addr.Hex()), zap.String("symbol", symbol), zap.Uint8("decimals", decimals))
	return tok, nil
}

// Configured returns pinned tokens ordered by address.
func (r *Registry) Configured() []model.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Token, 0, len(r.pinned))
	for _, tok := range r.pinned {
		out = append(out, tok)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.Cmp(out[j].Address) < 0
	})
	return out
}
