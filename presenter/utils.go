package presenter

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/festival-greetings/config"
	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/relay"
)

// Explorer renders CCIP explorer links. Hashes are not validated.
type Explorer struct {
	TxURL      string
	MessageURL string
}

func NewExplorer(cfg *config.ExplorerConfig) *Explorer {
	return &Explorer{
		TxURL:      cfg.TxURL,
		MessageURL: cfg.MessageURL,
	}
}

func (e *Explorer) TxLink(hash string) string {
	if hash == "" {
		return ""
	}
	return fmt.Sprintf(e.TxURL, hash)
}

func (e *Explorer) MessageLink(id string) string {
	if id == "" {
		return ""
	}
	return fmt.Sprintf(e.MessageURL, id)
}

func hashString(h *common.Hash) string {
	if h == nil {
		return ""
	}
	return h.String()
}

func (p *Presenter) greetingToInfo(g *entity.Greeting) *GreetingInfo {
	txHash, messageID := hashString(g.TransactionHash), hashString(g.MessageID)
	info := &GreetingInfo{
		ID:                       g.ID,
		Greeting:                 g.Greeting,
		Name:                     g.Name,
		Festival:                 g.Festival,
		Timestamp:                g.Timestamp,
		Nonce:                    g.Nonce,
		FromChain:                g.FromChain,
		ToChain:                  g.ToChain,
		Status:                   g.Status(),
		TransactionHash:          txHash,
		TxLink:                   p.explorer.TxLink(txHash),
		MessageID:                messageID,
		MessageLink:              p.explorer.MessageLink(messageID),
		DestinationChainSelector: g.DestinationChainSelector,
		CreatedAt:                g.CreatedAt,
		ConfirmedAt:              g.ConfirmedAt,
	}
	if g.Error != nil {
		info.Error = *g.Error
	}
	return info
}

func (p *Presenter) greetingsToInfo(greetings []*entity.Greeting) []*GreetingInfo {
	res := make([]*GreetingInfo, 0, len(greetings))
	for _, g := range greetings {
		res = append(res, p.greetingToInfo(g))
	}
	return res
}

func chainToInfo(chain *config.ChainConfig, senderChainID, receiverChainID string) *ChainInfo {
	info := &ChainInfo{
		ChainID:  chain.ChainID,
		Label:    chain.Label,
		Sender:   chain.ChainID == senderChainID,
		Receiver: chain.ChainID == receiverChainID,
	}
	if chain.CCIPChainSelector > 0 {
		info.CCIPChainSelector = strconv.FormatUint(chain.CCIPChainSelector, 10)
	}
	return info
}

func lastReceivedToInfo(last *relay.LastReceived) *LastReceivedInfo {
	info := &LastReceivedInfo{
		Received: last.Received(),
		Fallback: last.Fallback(),
	}
	if last == nil {
		return info
	}
	if last.Received() {
		info.MessageID = last.MessageID.String()
		info.Raw = last.Raw
	}
	info.Payload = last.Payload
	fetchedAt := last.FetchedAt
	info.FetchedAt = &fetchedAt
	return info
}
