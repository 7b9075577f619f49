package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/omni/festival-greetings/config"
	"github.com/omni/festival-greetings/db"
	"github.com/omni/festival-greetings/monitor"
	"github.com/omni/festival-greetings/repository"
)

var ErrInvalidBlockRange = errors.New("invalid block range")

var (
	reprocessFromBlock uint
	reprocessToBlock   uint
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Refetch sender contract events in a block range and reconcile stored greetings",
	Args:  cobra.NoArgs,
	RunE:  runReprocess,
}

func init() {
	reprocessCmd.Flags().UintVar(&reprocessFromBlock, "from-block", 0, "starting block, defaults to sender.start_block")
	reprocessCmd.Flags().UintVar(&reprocessToBlock, "to-block", 0, "ending block")
	_ = reprocessCmd.MarkFlagRequired("to-block")
}

func runReprocess(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if a.cfg.DBConfig == nil {
		return fmt.Errorf("postgres: %w", config.ErrMissingSection)
	}
	if reprocessFromBlock < a.cfg.Sender.StartBlock {
		reprocessFromBlock = a.cfg.Sender.StartBlock
	}
	if reprocessToBlock < reprocessFromBlock {
		return fmt.Errorf("to-block %d < from-block %d: %w", reprocessToBlock, reprocessFromBlock, ErrInvalidBlockRange)
	}

	dbConn, err := db.ConnectToDBAndMigrate(a.cfg.DBConfig)
	if err != nil {
		return fmt.Errorf("can't connect to database and apply migrations: %w", err)
	}
	defer dbConn.Close()

	ctx := cmd.Context()
	repo := repository.NewRepo(dbConn)
	// events are only reconciled here, nothing is sent
	svc := a.newRelay(nil, repo.Greetings)
	if err = svc.Restore(ctx); err != nil {
		return err
	}
	m, err := monitor.NewMonitor(ctx, a.logger.WithField("service", "monitor"), dbConn, repo, a.cfg, a.senderClient, svc)
	if err != nil {
		return fmt.Errorf("can't initialize sender contract monitor: %w", err)
	}

	logger := a.logger.WithFields(logrus.Fields{
		"from_block": reprocessFromBlock,
		"to_block":   reprocessToBlock,
	})
	logger.Info("reprocessing sender contract events")
	if err = m.ProcessBlockRange(ctx, reprocessFromBlock, reprocessToBlock); err != nil {
		return fmt.Errorf("can't reprocess block range: %w", err)
	}
	logger.Info("finished reprocessing block range")
	return nil
}
