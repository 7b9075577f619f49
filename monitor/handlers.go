package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/greeting"
)

var ErrUnexpectedEventData = errors.New("unexpected event data")

type EventHandler func(ctx context.Context, log *entity.Log, data map[string]interface{}) error

type FestivalDataSentHandler interface {
	HandleFestivalDataSent(ctx context.Context, ev *greeting.SentEvent) error
}

type SenderEventHandler struct {
	relay FestivalDataSentHandler
}

func NewSenderEventHandler(relay FestivalDataSentHandler) *SenderEventHandler {
	return &SenderEventHandler{
		relay: relay,
	}
}

func (p *SenderEventHandler) HandleFestivalDataSent(ctx context.Context, log *entity.Log, data map[string]interface{}) error {
	ev, err := DecodeFestivalDataSent(log, data)
	if err != nil {
		return err
	}
	return p.relay.HandleFestivalDataSent(ctx, ev)
}

// DecodeFestivalDataSent converts the abi decoded arguments of a FestivalDataSent log.
func DecodeFestivalDataSent(log *entity.Log, data map[string]interface{}) (*greeting.SentEvent, error) {
	messageID, ok := data["messageId"].([32]byte)
	if !ok {
		return nil, fmt.Errorf("messageId: %w", ErrUnexpectedEventData)
	}
	selector, ok := data["destinationChainSelector"].(uint64)
	if !ok {
		return nil, fmt.Errorf("destinationChainSelector: %w", ErrUnexpectedEventData)
	}
	receiver, ok := data["receiver"].(common.Address)
	if !ok {
		return nil, fmt.Errorf("receiver: %w", ErrUnexpectedEventData)
	}
	festivalData, ok := data["festivalData"].(string)
	if !ok {
		return nil, fmt.Errorf("festivalData: %w", ErrUnexpectedEventData)
	}
	feeToken, _ := data["feeToken"].(common.Address)
	fees, _ := data["fees"].(*big.Int)
	return &greeting.SentEvent{
		MessageID:                messageID,
		DestinationChainSelector: selector,
		Receiver:                 receiver,
		FestivalData:             festivalData,
		FeeToken:                 feeToken,
		Fees:                     fees,
		TransactionHash:          log.TransactionHash,
		BlockNumber:              log.BlockNumber,
	}, nil
}
