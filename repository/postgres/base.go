package postgres

import (
	"github.com/omni/festival-greetings/db"
)

type basePostgresRepo struct {
	table string
	db    db.DB
}

func newBasePostgresRepo(table string, db db.DB) *basePostgresRepo {
	return &basePostgresRepo{
		table: table,
		db:    db,
	}
}
