package monitor

import (
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/festival-greetings/entity"
)

type BlocksRange struct {
	From  uint
	To    uint
	Topic *common.Hash
}

type LogsBatch struct {
	BlockNumber uint
	Logs        []*entity.Log
}

func SplitBlockRange(fromBlock uint, toBlock uint, maxSize uint) []*BlocksRange {
	batches := make([]*BlocksRange, 0, 10)
	if maxSize == 0 {
		maxSize = 1
	}
	for fromBlock <= toBlock {
		batchToBlock := fromBlock + maxSize - 1
		if batchToBlock > toBlock {
			batchToBlock = toBlock
		}
		batches = append(batches, &BlocksRange{
			From: fromBlock,
			To:   batchToBlock,
		})
		fromBlock += maxSize
	}
	return batches
}

func SplitLogsInBatches(logs []*entity.Log) []*LogsBatch {
	batches := make([]*LogsBatch, 0, 10)
	// fake log to simplify loop, it will be skipped
	logs = append(logs, &entity.Log{BlockNumber: math.MaxUint32})
	batchStartIndex := 0
	for i, log := range logs {
		if log.BlockNumber > logs[batchStartIndex].BlockNumber {
			batches = append(batches, &LogsBatch{
				BlockNumber: logs[batchStartIndex].BlockNumber,
				Logs:        logs[batchStartIndex:i],
			})
			batchStartIndex = i
		}
	}
	return batches
}

// SortLogs orders logs by block number and log index.
func SortLogs(logs []*entity.Log) {
	sort.Slice(logs, func(i, j int) bool {
		a, b := logs[i], logs[j]
		return a.BlockNumber < b.BlockNumber || (a.BlockNumber == b.BlockNumber && a.LogIndex < b.LogIndex)
	})
}
