package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/festival-greetings/db"
	"github.com/omni/festival-greetings/entity"
)

type greetingsRepo basePostgresRepo

func NewGreetingsRepo(table string, db db.DB) entity.GreetingsRepo {
	return (*greetingsRepo)(newBasePostgresRepo(table, db))
}

// Ensure upserts the greeting by id. Confirmation fields are never cleared once set,
// and a confirmed greeting carries no error.
func (r *greetingsRepo) Ensure(ctx context.Context, g *entity.Greeting) error {
	q, args, err := sq.Insert(r.table).
		Columns("id", "greeting", "name", "festival", "timestamp", "nonce", "from_chain", "to_chain",
			"transaction_hash", "message_id", "destination_chain_selector", "error", "confirmed_at").
		Values(g.ID, g.Greeting, g.Name, g.Festival, g.Timestamp, g.Nonce, g.FromChain, g.ToChain,
			g.TransactionHash, g.MessageID, g.DestinationChainSelector, g.Error, g.ConfirmedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET updated_at = NOW(), " +
			"transaction_hash = COALESCE(EXCLUDED.transaction_hash, " + r.table + ".transaction_hash), " +
			"message_id = COALESCE(EXCLUDED.message_id, " + r.table + ".message_id), " +
			"destination_chain_selector = COALESCE(NULLIF(EXCLUDED.destination_chain_selector, ''), " + r.table + ".destination_chain_selector), " +
			"error = CASE WHEN COALESCE(EXCLUDED.message_id, " + r.table + ".message_id) IS NOT NULL THEN NULL " +
			"ELSE COALESCE(EXCLUDED.error, " + r.table + ".error) END, " +
			"confirmed_at = COALESCE(EXCLUDED.confirmed_at, " + r.table + ".confirmed_at)").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert greeting: %w", err)
	}
	return nil
}

func (r *greetingsRepo) GetByID(ctx context.Context, id string) (*entity.Greeting, error) {
	return r.getBy(ctx, sq.Eq{"id": id})
}

func (r *greetingsRepo) GetByMessageID(ctx context.Context, messageID common.Hash) (*entity.Greeting, error) {
	return r.getBy(ctx, sq.Eq{"message_id": messageID})
}

// GetUnconfirmedByKey returns the newest greeting without a message id sent with the given payload.
func (r *greetingsRepo) GetUnconfirmedByKey(ctx context.Context, key entity.GreetingKey) (*entity.Greeting, error) {
	cond := sq.Eq{"message_id": nil}
	if key.Nonce != "" {
		cond["nonce"] = key.Nonce
	} else {
		cond["greeting"] = key.Greeting
		cond["name"] = key.Name
		cond["festival"] = key.Festival
		cond["timestamp"] = key.Timestamp
	}
	return r.getBy(ctx, cond)
}

func (r *greetingsRepo) getBy(ctx context.Context, cond sq.Eq) (*entity.Greeting, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(cond).
		OrderBy("created_at DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	g := new(entity.Greeting)
	err = r.db.GetContext(ctx, g, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get greeting: %w", err)
	}
	return g, nil
}

func (r *greetingsRepo) FindRecent(ctx context.Context, limit uint64) ([]*entity.Greeting, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		OrderBy("created_at DESC").
		Limit(limit).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	greetings := make([]*entity.Greeting, 0, limit)
	err = r.db.SelectContext(ctx, &greetings, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't find recent greetings: %w", err)
	}
	return greetings, nil
}
