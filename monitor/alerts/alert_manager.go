package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omni/festival-greetings/config"
	"github.com/omni/festival-greetings/db"
	"github.com/omni/festival-greetings/logging"
)

const (
	AlertStuckGreeting  = "stuck_greeting"
	AlertFailedGreeting = "failed_greeting"

	defaultStuckGreetingAge     = 30 * time.Minute
	defaultFailedGreetingWindow = time.Hour
)

var ErrUnknownAlert = errors.New("unknown alert type")

type AlertManager struct {
	logger logging.Logger
	jobs   map[string]*Job
}

func NewAlertManager(logger logging.Logger, conn db.DB, cfg *config.Config) (*AlertManager, error) {
	provider := NewDBAlertsProvider(conn)
	jobs := make(map[string]*Job, len(cfg.Alerts))

	for name, alertCfg := range cfg.Alerts {
		params := &AlertJobParams{
			SenderChainID: cfg.Sender.Chain.ChainID,
			SenderAddress: cfg.Sender.Address,
		}
		switch name {
		case AlertStuckGreeting:
			params.OlderThan = defaultStuckGreetingAge
			jobs[name] = &Job{
				Interval: time.Minute,
				Timeout:  time.Second * 10,
				Func:     provider.FindStuckGreetings,
				Metric:   NewAlertStuckGreeting(params.SenderChainID),
			}
		case AlertFailedGreeting:
			params.OlderThan = defaultFailedGreetingWindow
			jobs[name] = &Job{
				Interval: time.Minute,
				Timeout:  time.Second * 10,
				Func:     provider.FindFailedGreetings,
				Metric:   NewAlertFailedGreeting(params.SenderChainID),
			}
		default:
			return nil, fmt.Errorf("%q: %w", name, ErrUnknownAlert)
		}
		if alertCfg != nil && alertCfg.OlderThan > 0 {
			params.OlderThan = alertCfg.OlderThan
		}
		jobs[name].Params = params
	}

	return &AlertManager{
		logger: logger,
		jobs:   jobs,
	}, nil
}

func (m *AlertManager) Jobs() map[string]*Job {
	return m.jobs
}

func (m *AlertManager) Start(ctx context.Context, isSynced func() bool) {
	if len(m.jobs) == 0 {
		return
	}
	t := time.NewTicker(10 * time.Second)
	for !isSynced() {
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			m.logger.Debug("waiting for sender contract monitor to be synchronized")
		}
	}
	t.Stop()
	m.logger.Info("sender contract monitor is synced, starting alert manager jobs")

	for name, job := range m.jobs {
		job.logger = m.logger.WithField("alert_job", name)
		go job.Start(ctx, isSynced)
	}
}
