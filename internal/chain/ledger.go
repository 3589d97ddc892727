package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"shieldswap/internal/contract"
	"shieldswap/internal/model"
)

// pendingShieldsSlot is the token contract storage slot holding notes
// created by shielding, which redeem_shield consumes.
const pendingShieldsSlot = 5

type txArgs struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

type authWitnessArgs struct {
	Owner       common.Address `json:"owner"`
	Spender     common.Address `json:"spender"`
	To          common.Address `json:"to"`
	Data        hexutil.Bytes  `json:"data"`
	MessageHash common.Hash    `json:"messageHash"`
}

type noteArgs struct {
	Owner       common.Address `json:"owner"`
	Token       common.Address `json:"token"`
	Amount      *hexutil.Big   `json:"amount"`
	SecretHash  common.Hash    `json:"secretHash"`
	TxHash      common.Hash    `json:"txHash"`
	StorageSlot hexutil.Uint64 `json:"storageSlot"`
}

type deployArgs struct {
	From     common.Address `json:"from"`
	Artifact string         `json:"artifact"`
	Args     []interface{}  `json:"args"`
}

type deployResult struct {
	Address common.Address `json:"address"`
	TxHash  common.Hash    `json:"txHash"`
}

type receiptJSON struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     *hexutil.Big   `json:"blockNumber"`
	Status          hexutil.Uint64 `json:"status"`
}

// ErrReverted marks a transaction that was mined but failed.
var ErrReverted = errors.New("transaction reverted")

// CreateAuthorization registers a witness that lets spender present call on
// owner's behalf.
func (c *Client) CreateAuthorization(ctx context.Context, owner, spender common.Address, call model.CallDescriptor) (model.AuthorizationWitness, error) {
	hash := contract.MessageHash(spender, call)
	args := authWitnessArgs{
		Owner:       owner,
		Spender:     spender,
		To:          call.Contract,
		Data:        call.Data,
		MessageHash: hash,
	}
	var witness hexutil.Bytes
	if err := c.rpcClient.CallContext(ctx, &witness, "ledger_createAuthWitness", args); err != nil {
		return model.AuthorizationWitness{}, fmt.Errorf("create auth witness: %w", err)
	}
	return model.AuthorizationWitness{
		Owner:       owner,
		Spender:     spender,
		MessageHash: hash,
		Witness:     witness,
	}, nil
}

// Submit sends call from the given account and waits for its receipt.
// Writes are never retried.
func (c *Client) Submit(ctx context.Context, from common.Address, call model.CallDescriptor) (model.Receipt, error) {
	var hash common.Hash
	args := txArgs{From: from, To: call.Contract, Data: call.Data}
	if err := c.rpcClient.CallContext(ctx, &hash, "ledger_sendTransaction", args); err != nil {
		return model.Receipt{}, fmt.Errorf("send %s: %w", call.Method, err)
	}
	c.logger.Debug("transaction sent",
		zap.String("method", call.Method),
		zap.String("to", call.Contract.Hex()),
		zap.String("tx_hash", hash.Hex()),
	)

	receipt, err := c.waitReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrReverted) {
			return model.Receipt{}, c.revertReason(ctx, from, call, receipt.BlockNumber, err)
		}
		return model.Receipt{}, fmt.Errorf("wait %s: %w", call.Method, err)
	}
	return receipt, nil
}

// waitReceipt polls until hash is mined or ctx expires. A reverted receipt
// is returned together with ErrReverted.
func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (model.Receipt, error) {
	ticker := time.NewTicker(c.opts.ConfirmPoll)
	defer ticker.Stop()

	for {
		var raw *receiptJSON
		err := c.rpcClient.CallContext(ctx, &raw, "eth_getTransactionReceipt", hash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return model.Receipt{}, fmt.Errorf("get receipt %s: %w", hash.Hex(), err)
		}
		if err == nil && raw != nil {
			receipt := model.Receipt{TxHash: hash}
			if raw.BlockNumber != nil {
				receipt.BlockNumber = raw.BlockNumber.ToInt().Uint64()
			}
			if raw.Status == 0 {
				return receipt, ErrReverted
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return model.Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// revertReason replays a reverted call at its block to recover the
// contract's message, which callers classify on.
func (c *Client) revertReason(ctx context.Context, from common.Address, call model.CallDescriptor, block uint64, reverted error) error {
	to := call.Contract
	msg := ethereum.CallMsg{From: from, To: &to, Data: call.Data}
	var number *big.Int
	if block > 0 {
		number = new(big.Int).SetUint64(block)
	}
	if _, err := c.ethClient.CallContract(ctx, msg, number); err != nil {
		return fmt.Errorf("%s: %w: %w", call.Method, reverted, err)
	}
	return fmt.Errorf("%s: %w", call.Method, reverted)
}

// RegisterPrivateNote adds the note produced by note.TxHash to the owner's
// private note set so it can be redeemed.
func (c *Client) RegisterPrivateNote(ctx context.Context, note model.PrivateNote) error {
	if note.Amount == nil {
		return fmt.Errorf("note amount is nil")
	}
	args := noteArgs{
		Owner:       note.Owner,
		Token:       note.Token,
		Amount:      (*hexutil.Big)(note.Amount),
		SecretHash:  note.SecretHash,
		TxHash:      note.TxHash,
		StorageSlot: pendingShieldsSlot,
	}
	var ok bool
	if err := c.rpcClient.CallContext(ctx, &ok, "ledger_addNote", args); err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	if !ok {
		return fmt.Errorf("add note: rejected by node")
	}
	return nil
}

// Redeem claims a registered note by calling redeem_shield on the token.
func (c *Client) Redeem(ctx context.Context, token common.Address, txHash common.Hash, owner common.Address, amount *big.Int, secret common.Hash) error {
	call, err := contract.NewCall(token, "redeem_shield", owner, amount, secret)
	if err != nil {
		return err
	}
	receipt, err := c.Submit(ctx, owner, call)
	if err != nil {
		return err
	}
	c.logger.Debug("note redeemed",
		zap.String("token", token.Hex()),
		zap.String("source_tx", txHash.Hex()),
		zap.String("tx_hash", receipt.TxHash.Hex()),
	)
	return nil
}

// DeployContract deploys artifact with constructor args and waits for it.
func (c *Client) DeployContract(ctx context.Context, from common.Address, artifact string, args ...interface{}) (common.Address, error) {
	if args == nil {
		args = []interface{}{}
	}
	var res deployResult
	if err := c.rpcClient.CallContext(ctx, &res, "ledger_deployContract", deployArgs{From: from, Artifact: artifact, Args: args}); err != nil {
		return common.Address{}, fmt.Errorf("deploy %s: %w", artifact, err)
	}
	if _, err := c.waitReceipt(ctx, res.TxHash); err != nil {
		return common.Address{}, fmt.Errorf("deploy %s: %w", artifact, err)
	}
	if res.Address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("deploy %s: empty address", artifact)
	}
	c.logger.Info("contract deployed", zap.String("artifact", artifact), zap.String("address", res.Address.Hex()))
	return res.Address, nil
}
