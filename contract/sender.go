package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/omni/festival-greetings/contract/abi"
	"github.com/omni/festival-greetings/ethclient"
	"github.com/omni/festival-greetings/utils"
)

var (
	ErrInvalidChainID    = errors.New("invalid chain id")
	ErrTransactionFailed = errors.New("transaction reverted")
)

// SenderContract signs and broadcasts calls to the CCIP festival sender contract.
type SenderContract struct {
	*Contract
	opts     *bind.TransactOpts
	gasLimit uint64

	// sendMu is held from the nonce lookup until the node accepts the transaction.
	sendMu sync.Mutex
}

func NewSenderContract(client ethclient.Client, addr common.Address, key *ecdsa.PrivateKey, gasLimit uint64) (*SenderContract, error) {
	chainID, ok := new(big.Int).SetString(client.ChainID(), 10)
	if !ok {
		return nil, fmt.Errorf("chain id %q: %w", client.ChainID(), ErrInvalidChainID)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("can't create transactor: %w", err)
	}
	return &SenderContract{
		Contract: NewContract(client, addr, abi.SenderABI),
		opts:     opts,
		gasLimit: gasLimit,
	}, nil
}

func (c *SenderContract) From() common.Address {
	return c.opts.From
}

// SendFestivalData broadcasts sendFestivalData(receiver, data) and returns the transaction hash
// as soon as the node accepts it.
func (c *SenderContract) SendFestivalData(ctx context.Context, receiver common.Address, data string) (common.Hash, error) {
	input, err := c.abi.Pack(abi.MethodSendFestivalData, receiver, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("cannot encode abi calldata: %w", err)
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	nonce, err := c.client.PendingNonceAt(ctx, c.opts.From)
	if err != nil {
		return common.Hash{}, fmt.Errorf("can't get pending nonce: %w", err)
	}
	tx, err := c.buildTx(ctx, nonce, input)
	if err != nil {
		return common.Hash{}, err
	}
	signed, err := c.opts.Signer(c.opts.From, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("can't sign transaction: %w", err)
	}
	if err = c.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("can't send transaction: %w", err)
	}
	return signed.Hash(), nil
}

func (c *SenderContract) buildTx(ctx context.Context, nonce uint64, input []byte) (*types.Transaction, error) {
	baseFee, err := c.client.HeaderBaseFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get base fee: %w", err)
	}
	if baseFee == nil {
		gasPrice, err := c.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("can't suggest gas price: %w", err)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      c.gasLimit,
			To:       &c.Address,
			Data:     input,
		}), nil
	}
	tip, err := c.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't suggest gas tip cap: %w", err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))
	chainID, _ := new(big.Int).SetString(c.client.ChainID(), 10)
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       c.gasLimit,
		To:        &c.Address,
		Data:      input,
	}), nil
}

func (c *SenderContract) LinkToken(ctx context.Context) (common.Address, error) {
	values, err := c.Call(ctx, abi.MethodGetLinkToken)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s result type %T", abi.MethodGetLinkToken, values[0])
	}
	return addr, nil
}

// WaitMined polls for the transaction receipt until it appears or ctx is cancelled.
func (c *SenderContract) WaitMined(ctx context.Context, txHash common.Hash, interval time.Duration) (*types.Receipt, error) {
	for {
		receipt, err := c.client.TransactionReceiptByHash(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s: %w", txHash, ErrTransactionFailed)
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("can't get transaction receipt: %w", err)
		}
		if utils.ContextSleep(ctx, interval) == nil {
			return nil, ctx.Err()
		}
	}
}
