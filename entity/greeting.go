package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type GreetingStatus string

const (
	GreetingStatusPending   GreetingStatus = "pending"
	GreetingStatusSubmitted GreetingStatus = "submitted"
	GreetingStatusConfirmed GreetingStatus = "confirmed"
	GreetingStatusFailed    GreetingStatus = "failed"
)

// Greeting is a sent or observed festival greeting. It is created optimistically with
// empty TransactionHash and MessageID which are filled in as the chain catches up.
type Greeting struct {
	ID                       string       `db:"id"`
	Greeting                 string       `db:"greeting"`
	Name                     string       `db:"name"`
	Festival                 string       `db:"festival"`
	Timestamp                string       `db:"timestamp"`
	Nonce                    string       `db:"nonce"`
	FromChain                string       `db:"from_chain"`
	ToChain                  string       `db:"to_chain"`
	TransactionHash          *common.Hash `db:"transaction_hash"`
	MessageID                *common.Hash `db:"message_id"`
	DestinationChainSelector string       `db:"destination_chain_selector"`
	Error                    *string      `db:"error"`
	ConfirmedAt              *time.Time   `db:"confirmed_at"`
	CreatedAt                *time.Time   `db:"created_at"`
	UpdatedAt                *time.Time   `db:"updated_at"`
}

func (g *Greeting) Status() GreetingStatus {
	switch {
	case g.MessageID != nil:
		return GreetingStatusConfirmed
	case g.Error != nil:
		return GreetingStatusFailed
	case g.TransactionHash != nil:
		return GreetingStatusSubmitted
	default:
		return GreetingStatusPending
	}
}

// GreetingKey identifies the payload a greeting was sent with.
// Nonce is used when set, otherwise the remaining fields are compared.
type GreetingKey struct {
	Nonce     string
	Greeting  string
	Name      string
	Festival  string
	Timestamp string
}

type GreetingsRepo interface {
	Ensure(ctx context.Context, greeting *Greeting) error
	GetByID(ctx context.Context, id string) (*Greeting, error)
	GetByMessageID(ctx context.Context, messageID common.Hash) (*Greeting, error)
	GetUnconfirmedByKey(ctx context.Context, key GreetingKey) (*Greeting, error)
	FindRecent(ctx context.Context, limit uint64) ([]*Greeting, error)
}
