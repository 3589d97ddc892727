package amm

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"shieldswap/internal/model"
	"shieldswap/internal/storage"
)

var (
	testPool   = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	testToken0 = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testToken1 = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	testOwner  = common.HexToAddress("0x0000000000000000000000000000000000000001")
)

type recordingJournal struct {
	mu      sync.Mutex
	records []model.OperationRecord
}

func (j *recordingJournal) Append(records ...model.OperationRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, records...)
	return nil
}

func (j *recordingJournal) states() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.records))
	for _, r := range j.records {
		out = append(out, r.State)
	}
	return out
}

type testEnv struct {
	ledger  *fakeLedger
	session *Session
	journal *recordingJournal
	store   storage.KeyValueStore
}

// newTestEnv starts from the pool the local setup seeds: 1000 of token0
// against 23 of token1, with the owner holding 100 and 30000 privately.
func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	l := newFakeLedger(testPool, testToken0, testToken1, 1000, 23)
	l.mint(testToken0, testOwner, 100)
	l.mint(testToken1, testOwner, 30000)

	journal := &recordingJournal{}
	store := storage.NewMemoryStore()
	s, err := NewSession(context.Background(), l, testPool,
		WithConfig(cfg),
		WithJournal(journal),
		WithPendingStore(NewPendingStore(store)),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return &testEnv{ledger: l, session: s, journal: journal, store: store}
}
