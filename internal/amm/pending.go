package amm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"shieldswap/internal/model"
	"shieldswap/internal/storage"
)

const pendingKeyPrefix = "pending_redemption_"

type pendingRecord struct {
	OperationID string `json:"operation_id,omitempty"`
	Token       string `json:"token"`
	TxHash      string `json:"tx_hash"`
	Owner       string `json:"owner"`
	Amount      string `json:"amount"`
	Secret      string `json:"secret"`
	UpdatedAt   string `json:"updated_at"`
}

// PendingStore persists redemption anchors so they survive the process.
type PendingStore struct {
	store storage.KeyValueStore
}

func NewPendingStore(store storage.KeyValueStore) *PendingStore {
	return &PendingStore{store: store}
}

// Enabled reports whether Save writes anywhere.
func (s *PendingStore) Enabled() bool {
	return s != nil && s.store != nil
}

func pendingKey(p model.PendingRedemption) string {
	return fmt.Sprintf("%s%s_%s", pendingKeyPrefix, p.TxHash.Hex(), p.Token.Hex())
}

// Save stores each anchor, overwriting an existing entry for the same output.
// Stores that support batches write all anchors in one round trip.
func (s *PendingStore) Save(ctx context.Context, pending ...model.PendingRedemption) error {
	if !s.Enabled() || len(pending) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	entries := make(map[string][]byte, len(pending))
	for _, p := range pending {
		rec := pendingRecord{
			OperationID: p.OperationID,
			Token:       p.Token.Hex(),
			TxHash:      p.TxHash.Hex(),
			Owner:       p.Owner.Hex(),
			Amount:      p.Amount.String(),
			Secret:      p.Secret.Hex(),
			UpdatedAt:   now,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal pending redemption: %w", err)
		}
		entries[pendingKey(p)] = data
	}

	if batch, ok := s.store.(storage.BatchSetter); ok {
		if err := batch.SetBatch(ctx, entries); err != nil {
			return fmt.Errorf("save pending redemptions: %w", err)
		}
		return nil
	}
	for key, data := range entries {
		if err := s.store.Set(ctx, key, data); err != nil {
			return fmt.Errorf("save pending redemption: %w", err)
		}
	}
	return nil
}

// Delete drops the anchor for one redeemed output.
func (s *PendingStore) Delete(ctx context.Context, p model.PendingRedemption) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.store.Delete(ctx, pendingKey(p)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete pending redemption: %w", err)
	}
	return nil
}

// List returns all stored anchors ordered by key.
func (s *PendingStore) List(ctx context.Context) ([]model.PendingRedemption, error) {
	if !s.Enabled() {
		return nil, nil
	}
	keys, err := s.store.Keys(ctx, pendingKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list pending redemptions: %w", err)
	}
	sort.Strings(keys)

	out := make([]model.PendingRedemption, 0, len(keys))
	for _, key := range keys {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get pending redemption %s: %w", key, err)
		}
		p, err := decodePending(data)
		if err != nil {
			return nil, fmt.Errorf("decode pending redemption %s: %w", key, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func decodePending(data []byte) (model.PendingRedemption, error) {
	var rec pendingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.PendingRedemption{}, err
	}
	amount, ok := new(big.Int).SetString(rec.Amount, 10)
	if !ok {
		return model.PendingRedemption{}, fmt.Errorf("invalid amount: %s", rec.Amount)
	}
	if !common.IsHexAddress(rec.Token) || !common.IsHexAddress(rec.Owner) {
		return model.PendingRedemption{}, fmt.Errorf("invalid address")
	}
	return model.PendingRedemption{
		OperationID: rec.OperationID,
		Token:       common.HexToAddress(rec.Token),
		TxHash:      common.HexToHash(rec.TxHash),
		Owner:       common.HexToAddress(rec.Owner),
		Amount:      amount,
		Secret:      common.HexToHash(rec.Secret),
	}, nil
}
