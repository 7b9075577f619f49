package repository

import (
	"github.com/omni/festival-greetings/db"
	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/repository/postgres"
)

type Repo struct {
	LogsCursors entity.LogsCursorsRepo
	Logs        entity.LogsRepo
	Greetings   entity.GreetingsRepo
}

func NewRepo(db db.DB) *Repo {
	return &Repo{
		LogsCursors: postgres.NewLogsCursorRepo("logs_cursors", db),
		Logs:        postgres.NewLogsRepo("logs", db),
		Greetings:   postgres.NewGreetingsRepo("greetings", db),
	}
}
