package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/omni/festival-greetings/contract/abi"
	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/greeting"
	"github.com/omni/festival-greetings/monitor"
	"github.com/omni/festival-greetings/presenter"
	"github.com/omni/festival-greetings/relay"
)

const defaultReceiptPollInterval = 5 * time.Second

var (
	sendInput     greeting.Input
	sendFromChain string
	sendToChain   string
	sendWait      bool
	sendTimeout   time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single greeting and print its state",
	Args:  cobra.NoArgs,
	RunE:  runSend,
}

func init() {
	flags := sendCmd.Flags()
	flags.StringVar(&sendInput.Name, "name", "", "sender name")
	flags.StringVar(&sendInput.Festival, "festival", "", "festival name")
	flags.StringVar(&sendInput.Greeting, "greeting", "", "greeting text")
	flags.StringVar(&sendFromChain, "from", "", "source chain id, defaults to greetings.default_from_chain")
	flags.StringVar(&sendToChain, "to", "", "destination chain id, defaults to greetings.default_to_chain")
	flags.BoolVar(&sendWait, "wait", false, "wait for the transaction receipt and the FestivalDataSent event")
	flags.DurationVar(&sendTimeout, "timeout", 5*time.Minute, "how long to wait for the receipt")
}

func runSend(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	sender, err := a.newSenderContract()
	if err != nil {
		return err
	}
	if sendFromChain == "" {
		sendFromChain = a.cfg.Greetings.DefaultFromChain
	}
	if sendToChain == "" {
		sendToChain = a.cfg.Greetings.DefaultToChain
	}

	svc := a.newRelay(sender, nil)
	ctx := cmd.Context()
	g, err := svc.Submit(ctx, relay.SubmitRequest{
		Input:     sendInput,
		FromChain: sendFromChain,
		ToChain:   sendToChain,
	})
	if err != nil {
		return err
	}
	explorer := presenter.NewExplorer(a.cfg.Explorer)
	a.logger.WithFields(logrus.Fields{
		"greeting_id": g.ID,
		"tx_hash":     g.TransactionHash,
		"tx_link":     explorer.TxLink(g.TransactionHash.String()),
	}).Info("greeting submitted")

	if sendWait {
		waitCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if g, err = waitConfirmed(waitCtx, a, sender.WaitMined, svc, g); err != nil {
			return err
		}
		if g.MessageID != nil {
			a.logger.WithFields(logrus.Fields{
				"message_id":   g.MessageID,
				"message_link": explorer.MessageLink(g.MessageID.String()),
			}).Info("greeting confirmed")
		}
	}
	return printJSON(cmd.OutOrStdout(), g)
}

type waitMinedFunc func(ctx context.Context, txHash common.Hash, interval time.Duration) (*types.Receipt, error)

// waitConfirmed waits for the receipt and reconciles the FestivalDataSent event it carries.
func waitConfirmed(ctx context.Context, a *app, waitMined waitMinedFunc, svc *relay.Service, g *entity.Greeting) (*entity.Greeting, error) {
	interval := a.cfg.Sender.Chain.BlockTime
	if interval == 0 {
		interval = defaultReceiptPollInterval
	}
	receipt, err := waitMined(ctx, *g.TransactionHash, interval)
	if err != nil {
		return nil, fmt.Errorf("can't wait for greeting transaction: %w", err)
	}
	a.logger.WithField("block_number", receipt.BlockNumber).Info("greeting transaction mined")

	for _, log := range receipt.Logs {
		if log.Address != a.cfg.Sender.Address {
			continue
		}
		l := entity.NewLog(a.cfg.Sender.Chain.ChainID, *log)
		event, data, err2 := abi.SenderABI.ParseLog(l)
		if err2 != nil || event != abi.FestivalDataSent {
			continue
		}
		ev, err2 := monitor.DecodeFestivalDataSent(l, data)
		if err2 != nil {
			return nil, err2
		}
		if err2 = svc.HandleFestivalDataSent(ctx, ev); err2 != nil {
			return nil, err2
		}
	}
	for _, recent := range svc.Recent() {
		if recent.ID == g.ID {
			return recent, nil
		}
	}
	return g, nil
}
