package contract

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"shieldswap/internal/model"
)

const ammABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "uint128", "name": "amount0In", "type": "uint128"},
      {"internalType": "uint128", "name": "amount0Out", "type": "uint128"},
      {"internalType": "uint128", "name": "amount1In", "type": "uint128"},
      {"internalType": "uint128", "name": "amount1Out", "type": "uint128"},
      {"internalType": "bytes32", "name": "nonce0", "type": "bytes32"},
      {"internalType": "bytes32", "name": "nonce1", "type": "bytes32"},
      {"internalType": "bytes32", "name": "secretHash", "type": "bytes32"}
    ],
    "name": "swap",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "uint128", "name": "amount0", "type": "uint128"},
      {"internalType": "uint128", "name": "amount1", "type": "uint128"},
      {"internalType": "bytes32", "name": "nonce0", "type": "bytes32"},
      {"internalType": "bytes32", "name": "nonce1", "type": "bytes32"}
    ],
    "name": "add_liquidity",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "get_reserves",
    "outputs": [
      {"internalType": "uint128", "name": "reserve0", "type": "uint128"},
      {"internalType": "uint128", "name": "reserve1", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "token0",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "token1",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const tokenABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "from", "type": "address"},
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint128", "name": "amount", "type": "uint128"},
      {"internalType": "bytes32", "name": "nonce", "type": "bytes32"}
    ],
    "name": "unshield",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint128", "name": "amount", "type": "uint128"},
      {"internalType": "bytes32", "name": "secret", "type": "bytes32"}
    ],
    "name": "redeem_shield",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint128", "name": "amount", "type": "uint128"},
      {"internalType": "bytes32", "name": "secretHash", "type": "bytes32"}
    ],
    "name": "mint_private",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "owner", "type": "address"}],
    "name": "balance_of_private",
    "outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "owner", "type": "address"}],
    "name": "balance_of_public",
    "outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
    "stateMutability": "view",
    "type": "function"
  },
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

var (
	ammABI     abi.ABI
	ammABIOnce sync.Once
	ammABIErr  error

	tokenABI     abi.ABI
	tokenABIOnce sync.Once
	tokenABIErr  error
)

// AMMABI returns the parsed AMM contract ABI.
func AMMABI() (abi.ABI, error) {
	ammABIOnce.Do(func() {
		ammABI, ammABIErr = abi.JSON(strings.NewReader(ammABIJSON))
	})
	return ammABI, ammABIErr
}

// TokenABI returns the parsed token contract ABI.
func TokenABI() (abi.ABI, error) {
	tokenABIOnce.Do(func() {
		tokenABI, tokenABIErr = abi.JSON(strings.NewReader(tokenABIJSON))
	})
	return tokenABI, tokenABIErr
}

// abiFor returns the ABI that declares method. AMM and token method names
// do not overlap except token0/token1, which only the AMM declares.
func abiFor(method string) (abi.ABI, error) {
	parsed, err := AMMABI()
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse amm abi: %w", err)
	}
	if _, ok := parsed.Methods[method]; ok {
		return parsed, nil
	}
	parsed, err = TokenABI()
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse token abi: %w", err)
	}
	if _, ok := parsed.Methods[method]; ok {
		return parsed, nil
	}
	return abi.ABI{}, fmt.Errorf("unknown method %s", method)
}

// Pack encodes a method call.
func Pack(method string, args ...interface{}) ([]byte, error) {
	parsed, err := abiFor(method)
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

// Unpack decodes the return values of a method.
func Unpack(method string, data []byte) ([]interface{}, error) {
	parsed, err := abiFor(method)
	if err != nil {
		return nil, err
	}
	values, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// NewCall builds a CallDescriptor with its encoded calldata.
func NewCall(target common.Address, method string, args ...interface{}) (model.CallDescriptor, error) {
	data, err := Pack(method, args...)
	if err != nil {
		return model.CallDescriptor{}, err
	}
	return model.CallDescriptor{
		Contract: target,
		Method:   method,
		Args:     args,
		Data:     data,
	}, nil
}

// MessageHash commits to caller and the exact call it may present:
// keccak256(caller || contract || calldata).
func MessageHash(caller common.Address, call model.CallDescriptor) common.Hash {
	return crypto.Keccak256Hash(caller.Bytes(), call.Contract.Bytes(), call.Data)
}
