package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/omni/festival-greetings/config"
	"github.com/omni/festival-greetings/contract"
	"github.com/omni/festival-greetings/db"
	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/ethclient"
	"github.com/omni/festival-greetings/logging"
	"github.com/omni/festival-greetings/repository"
	"github.com/omni/festival-greetings/utils"
)

const (
	defaultSyncedThreshold     = 10
	defaultBlockRangesChanCap  = 10
	defaultLogsChanCap         = 200
	defaultEventHandlersMapCap = 4
	defaultRetryInterval       = 10 * time.Second
)

var ErrMissingEventInABI = errors.New("contract ABI does not have the event")

type ContractMonitor struct {
	cfg                  *config.SenderConfig
	logger               logging.Logger
	repo                 *repository.Repo
	client               ethclient.Client
	logsCursor           *entity.LogsCursor
	blocksRangeChan      chan *BlocksRange
	logsChan             chan *LogsBatch
	contract             *contract.Contract
	eventHandlers        map[string]EventHandler
	retryInterval        time.Duration
	mu                   sync.RWMutex
	headBlock            uint
	isSynced             bool
	syncedMetric         prometheus.Gauge
	headBlockMetric      prometheus.Gauge
	fetchedBlockMetric   prometheus.Gauge
	processedBlockMetric prometheus.Gauge
}

func NewContractMonitor(ctx context.Context, logger logging.Logger, repo *repository.Repo, cfg *config.SenderConfig, client ethclient.Client, c *contract.Contract) (*ContractMonitor, error) {
	logsCursor, err := repo.LogsCursors.GetByChainIDAndAddress(ctx, client.ChainID(), cfg.Address)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("failed to read logs cursor: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"chain_id":    client.ChainID(),
			"address":     cfg.Address,
			"start_block": cfg.StartBlock,
		}).Warn("contract cursor is not present, staring indexing from scratch")
		start := cfg.StartBlock
		if start > 0 {
			start--
		}
		logsCursor = &entity.LogsCursor{
			ChainID:            client.ChainID(),
			Address:            cfg.Address,
			LastFetchedBlock:   start,
			LastProcessedBlock: start,
		}
	}
	commonLabels := prometheus.Labels{
		"chain_id": client.ChainID(),
		"address":  cfg.Address.String(),
	}
	return &ContractMonitor{
		logger:               logger,
		cfg:                  cfg,
		repo:                 repo,
		client:               client,
		logsCursor:           logsCursor,
		blocksRangeChan:      make(chan *BlocksRange, defaultBlockRangesChanCap),
		logsChan:             make(chan *LogsBatch, defaultLogsChanCap),
		contract:             c,
		eventHandlers:        make(map[string]EventHandler, defaultEventHandlersMapCap),
		retryInterval:        defaultRetryInterval,
		syncedMetric:         SyncedContract.With(commonLabels),
		headBlockMetric:      LatestHeadBlock.With(commonLabels),
		fetchedBlockMetric:   LatestFetchedBlock.With(commonLabels),
		processedBlockMetric: LatestProcessedBlock.With(commonLabels),
	}, nil
}

func (m *ContractMonitor) IsSynced() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isSynced
}

func (m *ContractMonitor) RegisterEventHandler(event string, handler EventHandler) {
	m.eventHandlers[event] = handler
}

func (m *ContractMonitor) VerifyEventHandlersABI() error {
	events := m.contract.AllEvents()
	for e := range m.eventHandlers {
		if !events[e] {
			return fmt.Errorf("%s: %w", e, ErrMissingEventInABI)
		}
	}
	return nil
}

func (m *ContractMonitor) Start(ctx context.Context) {
	lastProcessedBlock := m.logsCursor.LastProcessedBlock
	lastFetchedBlock := m.logsCursor.LastFetchedBlock
	go m.StartBlockFetcher(ctx, lastFetchedBlock+1)
	go m.StartLogsProcessor(ctx)
	m.LoadUnprocessedLogs(ctx, lastProcessedBlock+1, lastFetchedBlock)
	go m.StartLogsFetcher(ctx)
}

// ProcessBlockRange refetches and handles logs of the given range synchronously, without touching the cursor.
func (m *ContractMonitor) ProcessBlockRange(ctx context.Context, fromBlock, toBlock uint) error {
	for _, br := range SplitBlockRange(fromBlock, toBlock, m.cfg.MaxBlockRangeSize) {
		logs, err := m.fetchLogs(ctx, br)
		if err != nil {
			return fmt.Errorf("can't fetch logs in range %d-%d: %w", br.From, br.To, err)
		}
		for _, batch := range SplitLogsInBatches(logs) {
			if err = m.tryToProcessLogsBatch(ctx, batch); err != nil {
				return fmt.Errorf("can't process logs of block %d: %w", batch.BlockNumber, err)
			}
		}
	}
	return nil
}

func (m *ContractMonitor) LoadUnprocessedLogs(ctx context.Context, fromBlock, toBlock uint) {
	m.logger.WithFields(logrus.Fields{
		"from_block": fromBlock,
		"to_block":   toBlock,
	}).Info("loading fetched but not yet processed blocks")

	for {
		logs, err := m.repo.Logs.FindByBlockRange(ctx, m.client.ChainID(), m.cfg.Address, fromBlock, toBlock)
		if err != nil {
			m.logger.WithError(err).Error("can't find unprocessed logs in block range")
		} else {
			m.submitLogs(logs, toBlock)
			break
		}

		if utils.ContextSleep(ctx, m.retryInterval) == nil {
			return
		}
	}
}

func (m *ContractMonitor) StartBlockFetcher(ctx context.Context, start uint) {
	m.logger.Info("starting new blocks tracker")

	for {
		head, err := m.client.BlockNumber(ctx)
		if err != nil {
			m.logger.WithError(err).Error("can't fetch latest block number")
		} else {
			if head > m.cfg.BlockConfirmations {
				head -= m.cfg.BlockConfirmations
			} else {
				head = 0
			}
			m.recordHeadBlockNumber(head)

			for _, br := range SplitBlockRange(start, head, m.cfg.MaxBlockRangeSize) {
				m.logger.WithFields(logrus.Fields{
					"from_block": br.From,
					"to_block":   br.To,
				}).Info("scheduling new block range logs search")
				select {
				case m.blocksRangeChan <- br:
				case <-ctx.Done():
					return
				}
				start = br.To + 1
			}
		}

		if utils.ContextSleep(ctx, m.cfg.Chain.BlockIndexInterval) == nil {
			return
		}
	}
}

func (m *ContractMonitor) StartLogsFetcher(ctx context.Context) {
	m.logger.Info("starting logs fetcher")
	for {
		select {
		case <-ctx.Done():
			return
		case blocksRange := <-m.blocksRangeChan:
			for {
				err := m.tryToFetchLogs(ctx, blocksRange)
				if err != nil {
					m.logger.WithError(err).WithFields(logrus.Fields{
						"from_block": blocksRange.From,
						"to_block":   blocksRange.To,
					}).Error("failed logs fetching, retrying")
					if utils.ContextSleep(ctx, m.retryInterval) == nil {
						return
					}
					continue
				}
				break
			}
		}
	}
}

func (m *ContractMonitor) buildFilterQuery(blocksRange *BlocksRange) ethereum.FilterQuery {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(uint64(blocksRange.From)),
		ToBlock:   new(big.Int).SetUint64(uint64(blocksRange.To)),
		Addresses: []common.Address{m.cfg.Address},
	}
	if blocksRange.Topic != nil {
		q.Topics = [][]common.Hash{{*blocksRange.Topic}}
	}
	return q
}

func (m *ContractMonitor) fetchLogs(ctx context.Context, blocksRange *BlocksRange) ([]*entity.Log, error) {
	q := m.buildFilterQuery(blocksRange)
	var logsBatch []types.Log
	var err error
	if m.cfg.Chain.SafeLogsRequest {
		logsBatch, err = m.client.FilterLogsSafe(ctx, q)
	} else {
		logsBatch, err = m.client.FilterLogs(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	logs := make([]*entity.Log, 0, len(logsBatch))
	for _, log := range logsBatch {
		logs = append(logs, entity.NewLog(m.client.ChainID(), log))
	}
	SortLogs(logs)
	m.logger.WithFields(logrus.Fields{
		"count":      len(logs),
		"from_block": blocksRange.From,
		"to_block":   blocksRange.To,
	}).Info("fetched logs in range")
	if len(logs) > 0 {
		if err = m.repo.Logs.Ensure(ctx, logs...); err != nil {
			return nil, err
		}
		m.logger.WithField("count", len(logs)).Debug("saved logs")
	}
	return logs, nil
}

func (m *ContractMonitor) tryToFetchLogs(ctx context.Context, blocksRange *BlocksRange) error {
	logs, err := m.fetchLogs(ctx, blocksRange)
	if err != nil {
		return err
	}
	if err = m.recordFetchedBlockNumber(ctx, blocksRange.To); err != nil {
		return err
	}

	m.submitLogs(logs, blocksRange.To)
	return nil
}

func (m *ContractMonitor) submitLogs(logs []*entity.Log, endBlock uint) {
	batches := SplitLogsInBatches(logs)
	m.logger.WithFields(logrus.Fields{
		"count": len(logs),
		"jobs":  len(batches),
	}).Info("create jobs for logs processor")
	lastBlock := uint(0)
	for _, batch := range batches {
		m.logger.WithFields(logrus.Fields{
			"count":        len(batch.Logs),
			"block_number": batch.BlockNumber,
		}).Debug("submitting logs batch to logs processor")
		m.logsChan <- batch
		lastBlock = batch.BlockNumber
	}
	if lastBlock < endBlock {
		m.logsChan <- &LogsBatch{
			BlockNumber: endBlock,
			Logs:        nil,
		}
	}
}

func (m *ContractMonitor) StartLogsProcessor(ctx context.Context) {
	m.logger.Info("starting logs processor")
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-m.logsChan:
			for {
				err := m.tryToProcessLogsBatch(ctx, batch)
				if err != nil {
					m.logger.WithError(err).WithFields(logrus.Fields{
						"block_number": batch.BlockNumber,
						"count":        len(batch.Logs),
					}).Error("failed to process logs batch, retrying")
					if utils.ContextSleep(ctx, m.retryInterval) == nil {
						return
					}
					continue
				}
				break
			}

			for {
				err := m.recordProcessedBlockNumber(ctx, batch.BlockNumber)
				if err != nil {
					m.logger.WithError(err).WithField("block_number", batch.BlockNumber).
						Error("failed to update latest processed block number, retrying")
					if utils.ContextSleep(ctx, m.retryInterval) == nil {
						return
					}
					continue
				}
				break
			}
		}
	}
}

func (m *ContractMonitor) tryToProcessLogsBatch(ctx context.Context, batch *LogsBatch) error {
	m.logger.WithFields(logrus.Fields{
		"count":        len(batch.Logs),
		"block_number": batch.BlockNumber,
	}).Debug("processing logs batch")
	for _, log := range batch.Logs {
		event, data, err := m.contract.ParseLog(log)
		if err != nil {
			return fmt.Errorf("can't parse log: %w", err)
		}
		handle, ok := m.eventHandlers[event]
		if !ok {
			if event == "" && log.Topic0 != nil {
				event = log.Topic0.String()
			}
			m.logger.WithFields(logrus.Fields{
				"event":        event,
				"log_id":       log.ID,
				"block_number": log.BlockNumber,
				"tx_hash":      log.TransactionHash,
				"log_index":    log.LogIndex,
			}).Warn("received unknown event")
			continue
		}
		m.logger.WithFields(logrus.Fields{
			"event":  event,
			"log_id": log.ID,
		}).Trace("handling event")
		if err = handle(ctx, log, data); err != nil {
			return err
		}
	}
	return nil
}

func (m *ContractMonitor) recordHeadBlockNumber(blockNumber uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if blockNumber < m.headBlock {
		return
	}

	m.headBlock = blockNumber
	m.headBlockMetric.Set(float64(blockNumber))
	m.recordIsSynced()
}

// recordIsSynced must be called with mu held.
func (m *ContractMonitor) recordIsSynced() {
	m.isSynced = m.logsCursor.LastProcessedBlock+defaultSyncedThreshold > m.headBlock
	if m.isSynced {
		m.syncedMetric.Set(1)
	} else {
		m.syncedMetric.Set(0)
	}
}

func (m *ContractMonitor) recordFetchedBlockNumber(ctx context.Context, blockNumber uint) error {
	m.mu.Lock()
	if blockNumber < m.logsCursor.LastFetchedBlock {
		m.mu.Unlock()
		return nil
	}
	m.logsCursor.LastFetchedBlock = blockNumber
	cursor := *m.logsCursor
	m.mu.Unlock()

	m.fetchedBlockMetric.Set(float64(blockNumber))
	return m.repo.LogsCursors.Ensure(ctx, &cursor)
}

func (m *ContractMonitor) recordProcessedBlockNumber(ctx context.Context, blockNumber uint) error {
	m.mu.Lock()
	if blockNumber < m.logsCursor.LastProcessedBlock {
		m.mu.Unlock()
		return nil
	}
	m.logsCursor.LastProcessedBlock = blockNumber
	m.recordIsSynced()
	cursor := *m.logsCursor
	m.mu.Unlock()

	m.processedBlockMetric.Set(float64(blockNumber))
	return m.repo.LogsCursors.Ensure(ctx, &cursor)
}
