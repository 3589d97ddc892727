package deploy

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"shieldswap/internal/amm"
	"shieldswap/internal/model"
	"shieldswap/internal/storage"
)

func TestDeployOrConnectCaches(t *testing.T) {
	store := storage.NewMemoryStore()
	cache, err := NewCache(store, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	ctx := context.Background()
	want := common.HexToAddress("0xabc")
	deploys := 0
	deploy := func(context.Context) (common.Address, error) {
		deploys++
		return want, nil
	}

	addr, deployed, err := cache.DeployOrConnect(ctx, "weth", deploy)
	if err != nil || addr != want || !deployed {
		t.Fatalf("first deploy: %s %v %v", addr.Hex(), deployed, err)
	}
	addr, deployed, err = cache.DeployOrConnect(ctx, "weth", deploy)
	if err != nil || addr != want || deployed {
		t.Fatalf("second deploy: %s %v %v", addr.Hex(), deployed, err)
	}
	if deploys != 1 {
		t.Fatalf("expected one deployment, got %d", deploys)
	}

	raw, err := store.Get(ctx, "deployed_contract_weth")
	if err != nil || string(raw) != want.Hex() {
		t.Fatalf("unexpected stored value %q %v", raw, err)
	}
}

func TestDeployOrConnectFailureNotCached(t *testing.T) {
	cache, _ := NewCache(storage.NewMemoryStore(), nil)
	ctx := context.Background()
	_, _, err := cache.DeployOrConnect(ctx, "amm", func(context.Context) (common.Address, error) {
		return common.Address{}, errors.New("out of gas")
	})
	if err == nil {
		t.Fatalf("expected deploy error")
	}
	if _, ok, _ := cache.Lookup(ctx, "amm"); ok {
		t.Fatalf("failed deployment must not be cached")
	}
}

func TestDeployOrConnectSingleFlight(t *testing.T) {
	cache, _ := NewCache(storage.NewMemoryStore(), nil)
	var deploys int32
	release := make(chan struct{})
	deploy := func(context.Context) (common.Address, error) {
		atomic.AddInt32(&deploys, 1)
		<-release
		return common.HexToAddress("0xa11"), nil
	}

	var wg sync.WaitGroup
	results := make([]common.Address, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr, _, err := cache.DeployOrConnect(context.Background(), "amm", deploy)
			if err != nil {
				t.Errorf("deploy: %v", err)
			}
			results[i] = addr
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&deploys); n != 1 {
		t.Fatalf("expected one deployment, got %d", n)
	}
	for _, addr := range results {
		if addr != common.HexToAddress("0xa11") {
			t.Fatalf("unexpected address %s", addr.Hex())
		}
	}
}

func TestClear(t *testing.T) {
	store := storage.NewMemoryStore()
	cache, _ := NewCache(store, nil)
	ctx := context.Background()
	for _, name := range []string{"weth", "dai", "amm"} {
		if _, _, err := cache.DeployOrConnect(ctx, name, func(context.Context) (common.Address, error) {
			return common.HexToAddress("0x1"), nil
		}); err != nil {
			t.Fatalf("deploy %s: %v", name, err)
		}
	}
	if err := store.Set(ctx, "pending_redemption_x", []byte("{}")); err != nil {
		t.Fatalf("set: %v", err)
	}

	n, err := cache.Clear(ctx)
	if err != nil || n != 3 {
		t.Fatalf("clear: %d %v", n, err)
	}
	if _, err := store.Get(ctx, "pending_redemption_x"); err != nil {
		t.Fatalf("clear must only touch deployments: %v", err)
	}
}

func TestLookupRejectsGarbage(t *testing.T) {
	store := storage.NewMemoryStore()
	cache, _ := NewCache(store, nil)
	_ = store.Set(context.Background(), "deployed_contract_amm", []byte("not-an-address"))
	if _, _, err := cache.Lookup(context.Background(), "amm"); err == nil {
		t.Fatalf("expected error for corrupt entry")
	}
}

// setupLedger records deployments and accepts every call.
type setupLedger struct {
	mu        sync.Mutex
	next      int64
	deploys   map[string]int
	pools     map[common.Address][2]common.Address
	submitted map[string]int
	redeemed  map[common.Address]*big.Int
	lastLiq   []interface{}
	failFor   common.Address
}

func newSetupLedger() *setupLedger {
	return &setupLedger{
		next:      0x100,
		deploys:   make(map[string]int),
		pools:     make(map[common.Address][2]common.Address),
		submitted: make(map[string]int),
		redeemed:  make(map[common.Address]*big.Int),
	}
}

func (s *setupLedger) DeployContract(_ context.Context, _ common.Address, artifact string, args ...interface{}) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deploys[artifact]++
	s.next--
	addr := common.BigToAddress(big.NewInt(s.next))
	if artifact == DefaultAMMArtifact {
		s.pools[addr] = [2]common.Address{args[1].(common.Address), args[2].(common.Address)}
	}
	return addr, nil
}

func (s *setupLedger) ViewReserves(context.Context, common.Address) (*big.Int, *big.Int, error) {
	return big.NewInt(0), big.NewInt(0), nil
}

func (s *setupLedger) ViewTokens(_ context.Context, pool common.Address) (common.Address, common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[pool]
	if !ok {
		return common.Address{}, common.Address{}, errors.New("unknown pool")
	}
	return p[0], p[1], nil
}

func (s *setupLedger) CreateAuthorization(_ context.Context, owner, spender common.Address, _ model.CallDescriptor) (model.AuthorizationWitness, error) {
	return model.AuthorizationWitness{Owner: owner, Spender: spender}, nil
}

func (s *setupLedger) Submit(_ context.Context, _ common.Address, call model.CallDescriptor) (model.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted[call.Method]++
	if call.Method == "add_liquidity" {
		s.lastLiq = call.Args
	}
	return model.Receipt{TxHash: common.BigToHash(big.NewInt(int64(len(s.submitted))))}, nil
}

func (s *setupLedger) RegisterPrivateNote(context.Context, model.PrivateNote) error { return nil }

func (s *setupLedger) Redeem(_ context.Context, _ common.Address, _ common.Hash, owner common.Address, amount *big.Int, _ common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner == s.failFor {
		return errors.New("node unavailable")
	}
	if s.redeemed[owner] == nil {
		s.redeemed[owner] = new(big.Int)
	}
	s.redeemed[owner].Add(s.redeemed[owner], amount)
	return nil
}

func TestSetupIsIdempotent(t *testing.T) {
	l := newSetupLedger()
	cache, _ := NewCache(storage.NewMemoryStore(), nil)
	alice := common.HexToAddress("0xa1")
	bob := common.HexToAddress("0xb0")
	cfg := DefaultSetup(alice, bob)

	first, err := Setup(context.Background(), l, cache, cfg, nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if first.Tokens[0].Address.Cmp(first.Tokens[1].Address) >= 0 {
		t.Fatalf("tokens not in canonical order: %s %s", first.Tokens[0].Address.Hex(), first.Tokens[1].Address.Hex())
	}
	if l.deploys[DefaultTokenArtifact] != 2 || l.deploys[DefaultAMMArtifact] != 1 {
		t.Fatalf("unexpected deployments %v", l.deploys)
	}
	if l.submitted["mint_private"] != 4 || l.submitted["add_liquidity"] != 1 {
		t.Fatalf("unexpected submissions %v", l.submitted)
	}
	if l.lastLiq[2].(*big.Int).Int64() != 1000 || l.lastLiq[3].(*big.Int).Int64() != 23 {
		t.Fatalf("unexpected initial liquidity %v", l.lastLiq)
	}
	// alice mints 100 + 30000 and redeems both, bob 20 + 50000.
	if l.redeemed[alice].Int64() != 30100 || l.redeemed[bob].Int64() != 50020 {
		t.Fatalf("unexpected redemptions alice=%s bob=%s", l.redeemed[alice], l.redeemed[bob])
	}

	second, err := Setup(context.Background(), l, cache, cfg, nil)
	if err != nil {
		t.Fatalf("second setup: %v", err)
	}
	if second.Pool != first.Pool || second.Tokens != first.Tokens {
		t.Fatalf("second setup changed deployment: %+v vs %+v", second, first)
	}
	if l.deploys[DefaultTokenArtifact] != 2 || l.deploys[DefaultAMMArtifact] != 1 || l.submitted["add_liquidity"] != 1 {
		t.Fatalf("second setup redeployed: %v %v", l.deploys, l.submitted)
	}
}

func TestSetupKeepsFailedMintRedemption(t *testing.T) {
	l := newSetupLedger()
	store := storage.NewMemoryStore()
	cache, _ := NewCache(store, nil)
	alice := common.HexToAddress("0xa1")
	bob := common.HexToAddress("0xb0")
	l.failFor = bob

	_, err := Setup(context.Background(), l, cache, DefaultSetup(alice, bob), nil)
	var pendingErr *amm.RedemptionPendingError
	if !errors.As(err, &pendingErr) || !errors.Is(err, amm.ErrRedemptionPending) {
		t.Fatalf("expected pending mint redemption, got %v", err)
	}
	if !pendingErr.Persisted {
		t.Fatalf("mint anchor should be persisted")
	}

	stored, err := amm.NewPendingStore(store).List(context.Background())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(stored) == 0 {
		t.Fatalf("expected stored mint anchors")
	}
	for _, p := range stored {
		if p.Owner != bob || p.Secret == (common.Hash{}) || p.Amount.Sign() <= 0 {
			t.Fatalf("unexpected anchor %+v", p)
		}
		if p.OperationID != "mint_weth" && p.OperationID != "mint_dai" {
			t.Fatalf("unexpected operation id %q", p.OperationID)
		}
	}
}
