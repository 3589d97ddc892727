package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestPackUnshieldAndMessageHash(t *testing.T) {
	token := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	nonce := common.HexToHash("0x01")

	call, err := NewCall(token, "unshield", owner, spender, big.NewInt(100), nonce)
	if err != nil {
		t.Fatalf("new call: %v", err)
	}
	if len(call.Data) != 4+4*32 {
		t.Fatalf("unexpected calldata length: %d", len(call.Data))
	}

	same, err := NewCall(token, "unshield", owner, spender, big.NewInt(100), nonce)
	if err != nil {
		t.Fatalf("new call: %v", err)
	}
	if MessageHash(spender, call) != MessageHash(spender, same) {
		t.Fatalf("message hash should be deterministic")
	}

	other, err := NewCall(token, "unshield", owner, spender, big.NewInt(101), nonce)
	if err != nil {
		t.Fatalf("new call: %v", err)
	}
	if MessageHash(spender, call) == MessageHash(spender, other) {
		t.Fatalf("message hash should bind the amount")
	}
	if MessageHash(spender, call) == MessageHash(owner, call) {
		t.Fatalf("message hash should bind the spender")
	}
}

func TestPackUnknownMethod(t *testing.T) {
	if _, err := Pack("transfer_everything"); err == nil {
		t.Fatalf("expected error for unknown method")
	}
}

func TestUnpackReserves(t *testing.T) {
	parsed, err := AMMABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := parsed.Methods["get_reserves"].Outputs.Pack(big.NewInt(1000), big.NewInt(23))
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	values, err := Unpack("get_reserves", data)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	r0, err := AsBigInt(values[0])
	if err != nil {
		t.Fatalf("reserve0: %v", err)
	}
	r1, err := AsBigInt(values[1])
	if err != nil {
		t.Fatalf("reserve1: %v", err)
	}
	if r0.Int64() != 1000 || r1.Int64() != 23 {
		t.Fatalf("reserves mismatch: %s %s", r0, r1)
	}
}
