// Package storagetest holds the behavior every KeyValueStore backend must share.
package storagetest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldswap/internal/storage"
)

// Run exercises s against the KeyValueStore contract. s must start empty.
func Run(t *testing.T, s storage.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "deployed_contract_missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "deployed_contract_token_a", []byte("0xaa")))
	require.NoError(t, s.Set(ctx, "deployed_contract_token_b", []byte("0xbb")))
	require.NoError(t, s.Set(ctx, "deployed_contractXamm", []byte("0xcc")))
	require.NoError(t, s.Set(ctx, "pending_redemption_0x01_0x02", []byte(`{"amount":"2"}`)))

	v, err := s.Get(ctx, "deployed_contract_token_a")
	require.NoError(t, err)
	assert.Equal(t, []byte("0xaa"), v)

	require.NoError(t, s.Set(ctx, "deployed_contract_token_a", []byte("0xa1")))
	v, err = s.Get(ctx, "deployed_contract_token_a")
	require.NoError(t, err)
	assert.Equal(t, []byte("0xa1"), v)

	keys, err := s.Keys(ctx, "deployed_contract_")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"deployed_contract_token_a", "deployed_contract_token_b"}, keys)

	keys, err = s.Keys(ctx, "pending_redemption_")
	require.NoError(t, err)
	assert.Equal(t, []string{"pending_redemption_0x01_0x02"}, keys)

	require.NoError(t, s.Delete(ctx, "deployed_contract_token_a"))
	require.NoError(t, s.Delete(ctx, "deployed_contract_token_a"))
	_, err = s.Get(ctx, "deployed_contract_token_a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	keys, err = s.Keys(ctx, "deployed_contract_")
	require.NoError(t, err)
	assert.Equal(t, []string{"deployed_contract_token_b"}, keys)

	batch, ok := s.(storage.BatchSetter)
	if !ok {
		return
	}
	require.NoError(t, batch.SetBatch(ctx, map[string][]byte{
		"pending_redemption_0x03_0x0a": []byte(`{"amount":"1"}`),
		"pending_redemption_0x03_0x0b": []byte(`{"amount":"7"}`),
	}))
	keys, err = s.Keys(ctx, "pending_redemption_0x03_")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"pending_redemption_0x03_0x0a", "pending_redemption_0x03_0x0b"}, keys)
	v, err = s.Get(ctx, "pending_redemption_0x03_0x0b")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"amount":"7"}`), v)
	require.NoError(t, batch.SetBatch(ctx, nil))
}
