package alerts

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/festival-greetings/db"
)

type DBAlertsProvider struct {
	db  db.DB
	now func() time.Time
}

func NewDBAlertsProvider(db db.DB) *DBAlertsProvider {
	return &DBAlertsProvider{
		db:  db,
		now: time.Now,
	}
}

type StuckGreeting struct {
	ID              string        `db:"id" json:"greeting_id"`
	TransactionHash common.Hash   `db:"transaction_hash" json:"tx_hash"`
	FromChain       string        `db:"from_chain" json:"from_chain"`
	ToChain         string        `db:"to_chain" json:"to_chain"`
	Age             time.Duration `db:"age" json:"_value,string"`
}

// FindStuckGreetings returns greetings accepted by the node but not seen in any FestivalDataSent event.
func (p *DBAlertsProvider) FindStuckGreetings(ctx context.Context, params *AlertJobParams) (interface{}, error) {
	q, args, err := sq.Select("id", "transaction_hash", "from_chain", "to_chain", "EXTRACT(EPOCH FROM now() - created_at)::int as age").
		From("greetings").
		Where(sq.Eq{"message_id": nil, "error": nil, "from_chain": params.SenderChainID}).
		Where(sq.NotEq{"transaction_hash": nil}).
		Where(sq.LtOrEq{"created_at": p.now().Add(-params.OlderThan)}).
		OrderBy("created_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	res := make([]StuckGreeting, 0, 5)
	err = p.db.SelectContext(ctx, &res, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select alerts: %w", err)
	}
	return res, nil
}

type FailedGreeting struct {
	ID        string        `db:"id" json:"greeting_id"`
	FromChain string        `db:"from_chain" json:"from_chain"`
	ToChain   string        `db:"to_chain" json:"to_chain"`
	Error     string        `db:"error" json:"error"`
	Age       time.Duration `db:"age" json:"_value,string"`
}

// FindFailedGreetings returns greetings whose submission failed within the lookback window.
func (p *DBAlertsProvider) FindFailedGreetings(ctx context.Context, params *AlertJobParams) (interface{}, error) {
	q, args, err := sq.Select("id", "from_chain", "to_chain", "error", "EXTRACT(EPOCH FROM now() - created_at)::int as age").
		From("greetings").
		Where(sq.Eq{"message_id": nil, "from_chain": params.SenderChainID}).
		Where(sq.NotEq{"error": nil}).
		Where(sq.GtOrEq{"created_at": p.now().Add(-params.OlderThan)}).
		OrderBy("created_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	res := make([]FailedGreeting, 0, 5)
	err = p.db.SelectContext(ctx, &res, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select alerts: %w", err)
	}
	return res, nil
}
