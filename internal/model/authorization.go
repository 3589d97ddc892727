package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// CallDescriptor names a contract method invocation with its arguments.
type CallDescriptor struct {
	Contract common.Address
	Method   string
	Args     []interface{}
	Data     []byte
}

// AuthorizationWitness lets Spender present exactly the call hashed into
// MessageHash on Owner's behalf, once.
type AuthorizationWitness struct {
	Token       common.Address
	Owner       common.Address
	Spender     common.Address
	Nonce       common.Hash
	MessageHash common.Hash
	Witness     []byte
}
