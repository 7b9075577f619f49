package monitor

import (
	"context"
	"fmt"

	"github.com/omni/festival-greetings/config"
	"github.com/omni/festival-greetings/contract"
	"github.com/omni/festival-greetings/contract/abi"
	"github.com/omni/festival-greetings/db"
	"github.com/omni/festival-greetings/ethclient"
	"github.com/omni/festival-greetings/logging"
	"github.com/omni/festival-greetings/monitor/alerts"
	"github.com/omni/festival-greetings/repository"
)

// Monitor follows the sender contract and feeds its events to the relay.
type Monitor struct {
	cfg           *config.Config
	logger        logging.Logger
	senderMonitor *ContractMonitor
	alertManager  *alerts.AlertManager
}

func NewMonitor(ctx context.Context, logger logging.Logger, dbConn db.DB, repo *repository.Repo, cfg *config.Config, client ethclient.Client, relay FestivalDataSentHandler) (*Monitor, error) {
	logger.Info("initializing sender contract monitor")
	senderContract := contract.NewContract(client, cfg.Sender.Address, abi.SenderABI)
	senderMonitor, err := NewContractMonitor(ctx, logger.WithField("contract", "sender"), repo, cfg.Sender, client, senderContract)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sender contract monitor: %w", err)
	}
	alertManager, err := alerts.NewAlertManager(logger.WithField("component", "alerts"), dbConn, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize alert manager: %w", err)
	}
	monitor := &Monitor{
		cfg:           cfg,
		logger:        logger,
		senderMonitor: senderMonitor,
		alertManager:  alertManager,
	}
	monitor.RegisterSenderEventHandlers(relay)
	if err = senderMonitor.VerifyEventHandlersABI(); err != nil {
		return nil, fmt.Errorf("sender contract does not have ABI for registered event handler: %w", err)
	}
	return monitor, nil
}

func (m *Monitor) RegisterSenderEventHandlers(relay FestivalDataSentHandler) {
	handlers := NewSenderEventHandler(relay)
	m.senderMonitor.RegisterEventHandler(abi.FestivalDataSent, handlers.HandleFestivalDataSent)
}

func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info("starting sender contract monitor")
	go m.senderMonitor.Start(ctx)
	go m.alertManager.Start(ctx, m.IsSynced)
}

func (m *Monitor) ProcessBlockRange(ctx context.Context, fromBlock, toBlock uint) error {
	return m.senderMonitor.ProcessBlockRange(ctx, fromBlock, toBlock)
}

func (m *Monitor) IsSynced() bool {
	return m.senderMonitor.IsSynced()
}
