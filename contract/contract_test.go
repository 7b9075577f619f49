package contract_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/omni/festival-greetings/contract"
	"github.com/omni/festival-greetings/contract/abi"
	"github.com/omni/festival-greetings/ethclient"
)

type fakeClient struct {
	ethclient.Client
	chainID  string
	nonce    uint64
	baseFee  *big.Int
	callRes  []byte
	callMsg  ethereum.CallMsg
	receipts []*types.Receipt

	mu   sync.Mutex
	sent []*types.Transaction
}

func (c *fakeClient) ChainID() string { return c.chainID }

func (c *fakeClient) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	c.callMsg = msg
	return c.callRes, nil
}

// PendingNonceAt counts the transactions the node has accepted so far.
func (c *fakeClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonce + uint64(len(c.sent)), nil
}

func (c *fakeClient) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(2), nil
}

func (c *fakeClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(30), nil
}

func (c *fakeClient) HeaderBaseFee(context.Context) (*big.Int, error) {
	return c.baseFee, nil
}

func (c *fakeClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	time.Sleep(time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, tx)
	return nil
}

func (c *fakeClient) TransactionReceiptByHash(context.Context, common.Hash) (*types.Receipt, error) {
	if len(c.receipts) == 0 {
		return nil, ethereum.NotFound
	}
	receipt := c.receipts[0]
	c.receipts = c.receipts[1:]
	if receipt == nil {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

var (
	senderAddr   = common.HexToAddress("0x7301CFA0e1756B71869E93d4e4Dca5c7d0eb0AA6")
	receiverAddr = common.HexToAddress("0x4aa42145Aa6Ebf72e164C9bBC74fbD3788045016")
)

func TestSenderContract_SendFestivalData(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	client := &fakeClient{chainID: "43113", nonce: 7, baseFee: big.NewInt(25)}
	sender, err := contract.NewSenderContract(client, senderAddr, key, 300000)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), sender.From())

	payload := `{"greeting":"Happy Diwali!","name":"Ana","festival":"Diwali","timestamp":"2024-11-01T10:30:15.123Z"}`
	txHash, err := sender.SendFestivalData(context.Background(), receiverAddr, payload)
	require.NoError(t, err)
	require.Len(t, client.sent, 1)

	tx := client.sent[0]
	require.Equal(t, txHash, tx.Hash())
	require.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, uint64(300000), tx.Gas())
	require.Equal(t, big.NewInt(52), tx.GasFeeCap())
	require.Equal(t, big.NewInt(2), tx.GasTipCap())
	require.Equal(t, senderAddr, *tx.To())
	require.Equal(t, big.NewInt(43113), tx.ChainId())

	from, err := types.LatestSignerForChainID(big.NewInt(43113)).Sender(tx)
	require.NoError(t, err)
	require.Equal(t, sender.From(), from)

	args, err := abi.SenderABI.Methods[abi.MethodSendFestivalData].Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	require.Equal(t, []interface{}{receiverAddr, payload}, args)
}

func TestSenderContract_SendFestivalDataLegacyChain(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	client := &fakeClient{chainID: "80001"}
	sender, err := contract.NewSenderContract(client, senderAddr, key, 300000)
	require.NoError(t, err)

	_, err = sender.SendFestivalData(context.Background(), receiverAddr, "{}")
	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	require.Equal(t, uint8(types.LegacyTxType), client.sent[0].Type())
	require.Equal(t, big.NewInt(30), client.sent[0].GasPrice())
}

func TestSenderContract_ConcurrentSendsUseDistinctNonces(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	client := &fakeClient{chainID: "43113", baseFee: big.NewInt(25)}
	sender, err := contract.NewSenderContract(client, senderAddr, key, 300000)
	require.NoError(t, err)

	const sends = 5
	var wg sync.WaitGroup
	errs := make(chan error, sends)
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sender.SendFestivalData(context.Background(), receiverAddr, "{}")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	nonces := make(map[uint64]bool, sends)
	for _, tx := range client.sent {
		nonces[tx.Nonce()] = true
	}
	require.Len(t, client.sent, sends)
	require.Equal(t, map[uint64]bool{0: true, 1: true, 2: true, 3: true, 4: true}, nonces)
}

func TestNewSenderContract_InvalidChainID(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	_, err = contract.NewSenderContract(&fakeClient{chainID: "fuji"}, senderAddr, key, 1)
	require.ErrorIs(t, err, contract.ErrInvalidChainID)
}

func TestSenderContract_WaitMined(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	client := &fakeClient{chainID: "43113", receipts: []*types.Receipt{nil, nil, {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10)}}}
	sender, err := contract.NewSenderContract(client, senderAddr, key, 1)
	require.NoError(t, err)
	receipt, err := sender.WaitMined(context.Background(), common.Hash{}, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10), receipt.BlockNumber)

	client.receipts = []*types.Receipt{{Status: types.ReceiptStatusFailed}}
	_, err = sender.WaitMined(context.Background(), common.Hash{}, time.Millisecond)
	require.ErrorIs(t, err, contract.ErrTransactionFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sender.WaitMined(ctx, common.Hash{}, time.Second)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestReceiverContract_LastReceivedFestivalData(t *testing.T) {
	t.Parallel()

	messageID := common.HexToHash("0xc0ffee")
	payload := `{"greeting":"Happy Holi","name":"Ravi","festival":"Holi","timestamp":"2024-03-25T10:00:00.000Z"}`
	res, err := abi.ReceiverABI.Methods[abi.MethodGetLastReceivedFestivalData].Outputs.Pack(messageID, payload)
	require.NoError(t, err)

	client := &fakeClient{chainID: "11155111", callRes: res}
	receiver := contract.NewReceiverContract(client, receiverAddr)
	id, data, err := receiver.LastReceivedFestivalData(context.Background())
	require.NoError(t, err)
	require.Equal(t, messageID, id)
	require.Equal(t, payload, data)
	require.Equal(t, receiverAddr, *client.callMsg.To)
	require.Equal(t, abi.ReceiverABI.Methods[abi.MethodGetLastReceivedFestivalData].ID, client.callMsg.Data)
}
