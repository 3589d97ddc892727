package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"shieldswap/internal/contract"
	"shieldswap/internal/model"
)

var (
	testPool   = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	testToken0 = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testToken1 = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	testOwner  = common.HexToAddress("0x0000000000000000000000000000000000000001")
)

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a callArgs) payload() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

// testNode serves just enough of the eth_ and ledger_ namespaces.
type testNode struct {
	mu        sync.Mutex
	calls     int
	failCalls int
	revert    string
	sendErr   error
	pollsLeft int
	sent      []txArgs
	notes     []noteArgs
	witnesses []authWitnessArgs
	mined     map[common.Hash]bool
}

type ethAPI struct{ node *testNode }

func (e *ethAPI) Call(_ context.Context, args callArgs, _ string) (hexutil.Bytes, error) {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.failCalls > 0 {
		n.failCalls--
		return nil, errors.New("temporarily unavailable")
	}
	if n.revert != "" {
		return nil, errors.New("execution reverted: " + n.revert)
	}

	data := args.payload()
	ammABI, _ := contract.AMMABI()
	tokenABI, _ := contract.TokenABI()
	switch {
	case bytes.HasPrefix(data, ammABI.Methods["get_reserves"].ID):
		return ammABI.Methods["get_reserves"].Outputs.Pack(big.NewInt(1000), big.NewInt(23))
	case bytes.HasPrefix(data, ammABI.Methods["token0"].ID):
		return ammABI.Methods["token0"].Outputs.Pack(testToken0)
	case bytes.HasPrefix(data, ammABI.Methods["token1"].ID):
		return ammABI.Methods["token1"].Outputs.Pack(testToken1)
	case bytes.HasPrefix(data, tokenABI.Methods["balance_of_private"].ID):
		return tokenABI.Methods["balance_of_private"].Outputs.Pack(big.NewInt(100))
	case bytes.HasPrefix(data, tokenABI.Methods["symbol"].ID):
		return tokenABI.Methods["symbol"].Outputs.Pack("WETH")
	case bytes.HasPrefix(data, tokenABI.Methods["decimals"].ID):
		return tokenABI.Methods["decimals"].Outputs.Pack(uint8(18))
	}
	return hexutil.Bytes{}, nil
}

func (e *ethAPI) GetTransactionReceipt(_ context.Context, hash common.Hash) (*receiptJSON, error) {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pollsLeft > 0 {
		n.pollsLeft--
		return nil, nil
	}
	ok, known := n.mined[hash]
	if !known {
		return nil, nil
	}
	status := hexutil.Uint64(1)
	if !ok {
		status = 0
	}
	return &receiptJSON{TransactionHash: hash, BlockNumber: (*hexutil.Big)(big.NewInt(7)), Status: status}, nil
}

type ledgerAPI struct{ node *testNode }

func (l *ledgerAPI) SendTransaction(_ context.Context, args txArgs) (common.Hash, error) {
	n := l.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return common.Hash{}, n.sendErr
	}
	n.sent = append(n.sent, args)
	hash := common.BigToHash(big.NewInt(int64(len(n.sent))))
	n.mined[hash] = n.revert == ""
	return hash, nil
}

func (l *ledgerAPI) CreateAuthWitness(_ context.Context, args authWitnessArgs) (hexutil.Bytes, error) {
	l.node.mu.Lock()
	defer l.node.mu.Unlock()
	l.node.witnesses = append(l.node.witnesses, args)
	return args.MessageHash.Bytes(), nil
}

func (l *ledgerAPI) AddNote(_ context.Context, args noteArgs) (bool, error) {
	l.node.mu.Lock()
	defer l.node.mu.Unlock()
	l.node.notes = append(l.node.notes, args)
	return true, nil
}

func (l *ledgerAPI) DeployContract(_ context.Context, args deployArgs) (deployResult, error) {
	n := l.node
	n.mu.Lock()
	defer n.mu.Unlock()
	hash := common.HexToHash("0xde")
	n.mined[hash] = true
	return deployResult{Address: common.HexToAddress("0xc0ffee"), TxHash: hash}, nil
}

func newTestClient(t *testing.T) (*Client, *testNode) {
	t.Helper()
	node := &testNode{mined: make(map[common.Hash]bool)}
	server := rpc.NewServer()
	if err := server.RegisterName("eth", &ethAPI{node: node}); err != nil {
		t.Fatalf("register eth: %v", err)
	}
	if err := server.RegisterName("ledger", &ledgerAPI{node: node}); err != nil {
		t.Fatalf("register ledger: %v", err)
	}
	client := NewClientFromRPC(rpc.DialInProc(server), Options{
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		ConfirmPoll:  time.Millisecond,
	})
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client, node
}

func TestViews(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	r0, r1, err := c.ViewReserves(ctx, testPool)
	if err != nil {
		t.Fatalf("view reserves: %v", err)
	}
	if r0.Int64() != 1000 || r1.Int64() != 23 {
		t.Fatalf("unexpected reserves %s/%s", r0, r1)
	}

	t0, t1, err := c.ViewTokens(ctx, testPool)
	if err != nil {
		t.Fatalf("view tokens: %v", err)
	}
	if t0 != testToken0 || t1 != testToken1 {
		t.Fatalf("unexpected tokens %s/%s", t0, t1)
	}

	bal, err := c.BalanceOfPrivate(ctx, testToken0, testOwner)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Int64() != 100 {
		t.Fatalf("unexpected balance %s", bal)
	}

	symbol, decimals, err := c.TokenMeta(ctx, testToken0)
	if err != nil {
		t.Fatalf("token meta: %v", err)
	}
	if symbol != "WETH" || decimals != 18 {
		t.Fatalf("unexpected meta %s/%d", symbol, decimals)
	}
}

func TestViewsRetry(t *testing.T) {
	c, node := newTestClient(t)
	node.failCalls = 2
	if _, _, err := c.ViewReserves(context.Background(), testPool); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if node.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", node.calls)
	}
}

func TestSubmitWaitsForReceipt(t *testing.T) {
	c, node := newTestClient(t)
	node.pollsLeft = 3

	call, err := contract.NewCall(testPool, "add_liquidity", testToken0, testToken1, big.NewInt(1), big.NewInt(2), common.Hash{1}, common.Hash{2})
	if err != nil {
		t.Fatalf("new call: %v", err)
	}
	receipt, err := c.Submit(context.Background(), testOwner, call)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.BlockNumber != 7 || receipt.TxHash == (common.Hash{}) {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if len(node.sent) != 1 || node.sent[0].From != testOwner || !bytes.Equal(node.sent[0].Data, call.Data) {
		t.Fatalf("unexpected transaction %+v", node.sent)
	}
}

func TestSubmitRejectionKeepsMessage(t *testing.T) {
	c, node := newTestClient(t)
	node.sendErr = errors.New("Assertion failed: Shieldswap: K")

	call, _ := contract.NewCall(testPool, "add_liquidity", testToken0, testToken1, big.NewInt(1), big.NewInt(2), common.Hash{1}, common.Hash{2})
	_, err := c.Submit(context.Background(), testOwner, call)
	if err == nil || !strings.Contains(err.Error(), "Shieldswap: K") {
		t.Fatalf("expected node message, got %v", err)
	}
	if len(node.sent) != 0 {
		t.Fatalf("rejected transaction should not be recorded")
	}
}

func TestSubmitRevertReplaysReason(t *testing.T) {
	c, node := newTestClient(t)
	node.revert = "Shieldswap: INSUFFICIENT_OUTPUT_AMOUNT"

	call, _ := contract.NewCall(testPool, "add_liquidity", testToken0, testToken1, big.NewInt(1), big.NewInt(2), common.Hash{1}, common.Hash{2})
	_, err := c.Submit(context.Background(), testOwner, call)
	if !errors.Is(err, ErrReverted) {
		t.Fatalf("expected revert, got %v", err)
	}
	if !strings.Contains(err.Error(), "INSUFFICIENT_OUTPUT_AMOUNT") {
		t.Fatalf("expected replayed reason, got %v", err)
	}
}

func TestSubmitTimesOut(t *testing.T) {
	c, node := newTestClient(t)
	node.pollsLeft = 1 << 30

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	call, _ := contract.NewCall(testPool, "add_liquidity", testToken0, testToken1, big.NewInt(1), big.NewInt(2), common.Hash{1}, common.Hash{2})
	if _, err := c.Submit(ctx, testOwner, call); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestAuthorizationAndRedemption(t *testing.T) {
	c, node := newTestClient(t)
	ctx := context.Background()

	call, err := contract.NewCall(testToken0, "unshield", testOwner, testPool, big.NewInt(100), common.Hash{9})
	if err != nil {
		t.Fatalf("new call: %v", err)
	}
	w, err := c.CreateAuthorization(ctx, testOwner, testPool, call)
	if err != nil {
		t.Fatalf("create authorization: %v", err)
	}
	if w.MessageHash != contract.MessageHash(testPool, call) || !bytes.Equal(w.Witness, w.MessageHash.Bytes()) {
		t.Fatalf("unexpected witness %+v", w)
	}
	if len(node.witnesses) != 1 || node.witnesses[0].To != testToken0 {
		t.Fatalf("unexpected witness request %+v", node.witnesses)
	}

	note := model.PrivateNote{
		Owner:      testOwner,
		Token:      testToken1,
		Amount:     big.NewInt(2),
		SecretHash: common.HexToHash("0x5e"),
		TxHash:     common.HexToHash("0x01"),
	}
	if err := c.RegisterPrivateNote(ctx, note); err != nil {
		t.Fatalf("register note: %v", err)
	}
	if len(node.notes) != 1 || node.notes[0].StorageSlot != pendingShieldsSlot || node.notes[0].Amount.ToInt().Int64() != 2 {
		t.Fatalf("unexpected note %+v", node.notes)
	}

	if err := c.Redeem(ctx, testToken1, note.TxHash, testOwner, big.NewInt(2), common.HexToHash("0x5ec")); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	redeem, _ := contract.NewCall(testToken1, "redeem_shield", testOwner, big.NewInt(2), common.HexToHash("0x5ec"))
	if len(node.sent) != 1 || node.sent[0].To != testToken1 || !bytes.Equal(node.sent[0].Data, redeem.Data) {
		t.Fatalf("unexpected redeem transaction %+v", node.sent)
	}
}

func TestDeployContract(t *testing.T) {
	c, _ := newTestClient(t)
	addr, err := c.DeployContract(context.Background(), testOwner, "Token", "WETH", "WETH", uint8(18))
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if addr != common.HexToAddress("0xc0ffee") {
		t.Fatalf("unexpected address %s", addr)
	}
}
