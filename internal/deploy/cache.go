// Package deploy memoizes contract deployments in a key-value store and
// bootstraps a token pair with its AMM pool.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"shieldswap/internal/storage"
)

// CachePrefix namespaces deployment entries in the shared store.
const CachePrefix = "deployed_contract_"

// DeployFunc deploys a contract and returns its address.
type DeployFunc func(ctx context.Context) (common.Address, error)

// Cache maps a deployment name to the address it was deployed at.
// Concurrent requests for the same name share one deployment.
type Cache struct {
	store  storage.KeyValueStore
	group  singleflight.Group
	logger *zap.Logger
}

func NewCache(store storage.KeyValueStore, logger *zap.Logger) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, logger: logger}, nil
}

func cacheKey(name string) string {
	return CachePrefix + name
}

// Lookup returns the cached address for name.
func (c *Cache) Lookup(ctx context.Context, name string) (common.Address, bool, error) {
	data, err := c.store.Get(ctx, cacheKey(name))
	if errors.Is(err, storage.ErrNotFound) {
		return common.Address{}, false, nil
	}
	if err != nil {
		return common.Address{}, false, fmt.Errorf("read deployment %s: %w", name, err)
	}
	value := strings.TrimSpace(string(data))
	if !common.IsHexAddress(value) {
		return common.Address{}, false, fmt.Errorf("cached deployment %s is not an address: %q", name, value)
	}
	return common.HexToAddress(value), true, nil
}

type outcome struct {
	address  common.Address
	deployed bool
}

// DeployOrConnect returns the cached address for name, or runs deploy and
// caches its result. deployed reports whether deploy ran for this request,
// including requests that joined an in-flight deployment. A failed
// deployment is not cached.
func (c *Cache) DeployOrConnect(ctx context.Context, name string, deploy DeployFunc) (common.Address, bool, error) {
	if name == "" {
		return common.Address{}, false, fmt.Errorf("deployment name is empty")
	}
	v, err, _ := c.group.Do(cacheKey(name), func() (interface{}, error) {
		addr, ok, err := c.Lookup(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			c.logger.Info("using cached deployment", zap.String("name", name), zap.String("address", addr.Hex()))
			return outcome{address: addr}, nil
		}

		c.logger.Info("deploying", zap.String("name", name))
		addr, err = deploy(ctx)
		if err != nil {
			return nil, fmt.Errorf("deploy %s: %w", name, err)
		}
		if err := c.store.Set(ctx, cacheKey(name), []byte(addr.Hex())); err != nil {
			return nil, fmt.Errorf("cache deployment %s: %w", name, err)
		}
		c.logger.Info("deployment cached", zap.String("name", name), zap.String("address", addr.Hex()))
		return outcome{address: addr, deployed: true}, nil
	})
	if err != nil {
		return common.Address{}, false, err
	}
	out := v.(outcome)
	return out.address, out.deployed, nil
}

// Clear drops every cached deployment and returns how many were removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, CachePrefix)
	if err != nil {
		return 0, fmt.Errorf("list deployments: %w", err)
	}
	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			return 0, fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return len(keys), nil
}
