package presenter

import (
	"time"

	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/greeting"
)

type ChainInfo struct {
	ChainID           string `json:"chainId"`
	Label             string `json:"label"`
	CCIPChainSelector string `json:"ccipChainSelector,omitempty"`
	Sender            bool   `json:"sender"`
	Receiver          bool   `json:"receiver"`
}

type ChainsResult struct {
	Chains           []*ChainInfo `json:"chains"`
	DefaultFromChain string       `json:"defaultFromChain,omitempty"`
	DefaultToChain   string       `json:"defaultToChain,omitempty"`
}

type SendGreetingRequest struct {
	greeting.Input
	FromChain string `json:"fromChain"`
	ToChain   string `json:"toChain"`
}

type ValidationResult struct {
	Valid  bool                 `json:"valid"`
	Errors greeting.FieldErrors `json:"errors,omitempty"`
}

type GreetingInfo struct {
	ID                       string                `json:"id"`
	Greeting                 string                `json:"greeting"`
	Name                     string                `json:"name"`
	Festival                 string                `json:"festival"`
	Timestamp                string                `json:"timestamp"`
	Nonce                    string                `json:"nonce,omitempty"`
	FromChain                string                `json:"fromChain"`
	ToChain                  string                `json:"toChain"`
	Status                   entity.GreetingStatus `json:"status"`
	TransactionHash          string                `json:"transactionHash"`
	TxLink                   string                `json:"txLink,omitempty"`
	MessageID                string                `json:"messageId"`
	MessageLink              string                `json:"messageLink,omitempty"`
	DestinationChainSelector string                `json:"destinationChainSelector,omitempty"`
	Error                    string                `json:"error,omitempty"`
	CreatedAt                *time.Time            `json:"createdAt,omitempty"`
	ConfirmedAt              *time.Time            `json:"confirmedAt,omitempty"`
}

type LastReceivedInfo struct {
	Received  bool              `json:"received"`
	MessageID string            `json:"messageId,omitempty"`
	Raw       string            `json:"raw,omitempty"`
	Payload   *greeting.Payload `json:"payload,omitempty"`
	Fallback  string            `json:"fallback,omitempty"`
	FetchedAt *time.Time        `json:"fetchedAt,omitempty"`
}

type StatusResult struct {
	Sending         bool   `json:"sending"`
	Synced          bool   `json:"synced"`
	SenderChainID   string `json:"senderChainId"`
	ReceiverChainID string `json:"receiverChainId"`
	RecentCount     int    `json:"recentCount"`
}
