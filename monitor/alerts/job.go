package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/omni/festival-greetings/logging"
)

type AlertJobParams struct {
	SenderChainID string
	SenderAddress common.Address
	// OlderThan is the minimum age of a stuck greeting, or the lookback window of failed ones.
	OlderThan time.Duration
}

type AlertMetricValues map[string]string

const ValueLabelTag = "_value"

func (v AlertMetricValues) Labels() prometheus.Labels {
	labels := make(prometheus.Labels, len(v))
	for k, val := range v {
		if k != ValueLabelTag {
			labels[k] = val
		}
	}
	return labels
}

func (v AlertMetricValues) Value() float64 {
	val, ok := v[ValueLabelTag]
	if !ok {
		return 0
	}
	res, _ := strconv.ParseFloat(val, 64)
	return res
}

func ConvertToAlertMetricValues(v interface{}) ([]AlertMetricValues, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("can't marshal alert values to json: %w", err)
	}
	res := make([]AlertMetricValues, 0, 10)
	err = json.Unmarshal(raw, &res)
	if err != nil {
		return nil, fmt.Errorf("can't unmarshal alert values to []AlertMetricValues: %w", err)
	}
	return res, nil
}

type Job struct {
	logger   logging.Logger
	Metric   *prometheus.GaugeVec
	Interval time.Duration
	Timeout  time.Duration
	Func     func(ctx context.Context, params *AlertJobParams) (interface{}, error)
	Params   *AlertJobParams
}

// RunOnce executes the job query and replaces the metric values with its results.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()
	alerts, err := j.Func(timeoutCtx, j.Params)
	if err != nil {
		return 0, err
	}
	values, err := ConvertToAlertMetricValues(alerts)
	if err != nil {
		return 0, err
	}
	j.Metric.Reset()
	for _, v := range values {
		j.Metric.With(v.Labels()).Set(v.Value())
	}
	return len(values), nil
}

func (j *Job) Start(ctx context.Context, isSynced func() bool) {
	ticker := time.NewTicker(j.Interval)
	for {
		if isSynced() {
			start := time.Now()
			count, err := j.RunOnce(ctx)
			switch {
			case err != nil:
				j.logger.WithError(err).Error("failed to process alert job")
			case count > 0:
				j.logger.WithFields(logrus.Fields{
					"count":    count,
					"duration": time.Since(start),
				}).Warn("found some possible alerts")
			default:
				j.logger.WithField("duration", time.Since(start)).Info("no alerts has been found")
			}
		} else {
			j.logger.Warn("sender contract monitor is not synchronized, skipping alert job iteration")
		}

		select {
		case <-ticker.C:
			continue
		case <-ctx.Done():
			ticker.Stop()
			return
		}
	}
}
