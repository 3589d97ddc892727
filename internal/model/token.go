package model

import "github.com/ethereum/go-ethereum/common"

// TokenKind describes which balance views a token contract exposes.
type TokenKind uint8

const (
	// KindPrivate tokens only expose shielded balances.
	KindPrivate TokenKind = iota
	// KindPrivateAndPublic tokens expose both shielded and public balances.
	KindPrivateAndPublic
)

func (k TokenKind) String() string {
	switch k {
	case KindPrivate:
		return "private"
	case KindPrivateAndPublic:
		return "private+public"
	default:
		return "unknown"
	}
}

// HasPublicBalance reports whether balance_of_public can be called on the token.
func (k TokenKind) HasPublicBalance() bool {
	return k == KindPrivateAndPublic
}

// Token is a resolved token contract. Symbol and Decimals are display-only.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol,omitempty"`
	Decimals uint8          `json:"decimals"`
	Kind     TokenKind      `json:"kind"`
}

// Label returns the symbol when known, else the hex address.
func (t Token) Label() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}
