package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/festival-greetings/contract/abi"
	"github.com/omni/festival-greetings/ethclient"
)

type ReceiverContract struct {
	*Contract
}

func NewReceiverContract(client ethclient.Client, addr common.Address) *ReceiverContract {
	return &ReceiverContract{NewContract(client, addr, abi.ReceiverABI)}
}

// LastReceivedFestivalData returns the last CCIP message delivered to the receiver.
// A zero message id means nothing has been received yet.
func (c *ReceiverContract) LastReceivedFestivalData(ctx context.Context) (common.Hash, string, error) {
	values, err := c.Call(ctx, abi.MethodGetLastReceivedFestivalData)
	if err != nil {
		return common.Hash{}, "", err
	}
	if len(values) != 2 {
		return common.Hash{}, "", fmt.Errorf("unexpected %s result length %d", abi.MethodGetLastReceivedFestivalData, len(values))
	}
	messageID, ok := values[0].([32]byte)
	if !ok {
		return common.Hash{}, "", fmt.Errorf("unexpected messageId type %T", values[0])
	}
	data, ok := values[1].(string)
	if !ok {
		return common.Hash{}, "", fmt.Errorf("unexpected festivalData type %T", values[1])
	}
	return messageID, data, nil
}
