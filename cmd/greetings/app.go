package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/omni/festival-greetings/config"
	"github.com/omni/festival-greetings/contract"
	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/ethclient"
	"github.com/omni/festival-greetings/logging"
	"github.com/omni/festival-greetings/relay"
	"github.com/omni/festival-greetings/utils"
)

func newLogger() *logrus.Logger {
	return logging.New()
}

type app struct {
	cfg            *config.Config
	logger         *logrus.Logger
	senderClient   ethclient.Client
	receiverClient ethclient.Client
}

func newApp() (*app, error) {
	logger := newLogger()
	cfg, err := config.ReadConfigFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("can't read config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	senderClient, err := dial(cfg.Sender.Chain)
	if err != nil {
		return nil, fmt.Errorf("can't dial sender chain rpc: %w", err)
	}
	receiverClient := senderClient
	if cfg.Receiver.Chain.ChainID != cfg.Sender.Chain.ChainID {
		receiverClient, err = dial(cfg.Receiver.Chain)
		if err != nil {
			return nil, fmt.Errorf("can't dial receiver chain rpc: %w", err)
		}
	}
	return &app{
		cfg:            cfg,
		logger:         logger,
		senderClient:   senderClient,
		receiverClient: receiverClient,
	}, nil
}

func dial(chain *config.ChainConfig) (ethclient.Client, error) {
	return ethclient.NewClient(chain.RPC.Host, chain.RPC.Timeout, chain.RPC.RPS, chain.ChainID)
}

func (a *app) newSenderContract() (*contract.SenderContract, error) {
	if a.cfg.Wallet == nil {
		return nil, fmt.Errorf("wallet: %w", config.ErrMissingSection)
	}
	key, from, err := utils.ParsePrivateKey(a.cfg.Wallet.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("can't parse wallet private key: %w", err)
	}
	a.logger.WithField("from", from).Info("loaded sender wallet")
	return contract.NewSenderContract(a.senderClient, a.cfg.Sender.Address, key, a.cfg.Wallet.GasLimit)
}

func (a *app) newReceiverContract() *contract.ReceiverContract {
	return contract.NewReceiverContract(a.receiverClient, a.cfg.Receiver.Address)
}

// newRelay builds the relay service. repo may be nil for one-shot commands.
func (a *app) newRelay(sender relay.Sender, repo entity.GreetingsRepo) *relay.Service {
	chains := a.cfg.SortedChains()
	knownChains := make([]string, 0, len(chains))
	for _, chain := range chains {
		knownChains = append(knownChains, chain.ChainID)
	}
	return relay.NewService(a.logger.WithField("service", "relay"), relay.Config{
		SenderChainID:    a.cfg.Sender.Chain.ChainID,
		Receiver:         a.cfg.Receiver.Address,
		KnownChains:      knownChains,
		RecentCapacity:   a.cfg.Greetings.RecentCapacity,
		CorrelationNonce: a.cfg.Greetings.CorrelationNonce,
	}, sender, a.newReceiverContract(), repo)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
