package dogStatsd

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/entropy-labs/rngpool/internal/metrics/metricsTypes"
	"go.uber.org/zap"
)

type DogStatsdMetricsClient struct {
	logger *zap.Logger
	client *statsd.Client
}

func NewDogStatsdMetricsClient(url string, l *zap.Logger) (*DogStatsdMetricsClient, error) {
	client, err := statsd.New(url, statsd.WithNamespace("rngpool."))
	if err != nil {
		return nil, err
	}
	return &DogStatsdMetricsClient{
		logger: l,
		client: client,
	}, nil
}

func formatTags(labels []metricsTypes.MetricsLabel) []string {
	tags := make([]string, 0, len(labels))
	for _, label := range labels {
		tags = append(tags, fmt.Sprintf("%s:%s", label.Name, label.Value))
	}
	return tags
}

func (dc *DogStatsdMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	return dc.client.Count(name, int64(value), formatTags(labels), 1)
}

func (dc *DogStatsdMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	return dc.client.Gauge(name, value, formatTags(labels), 1)
}

func (dc *DogStatsdMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return dc.client.Timing(name, value, formatTags(labels), 1)
}

func (dc *DogStatsdMetricsClient) Flush() {
	if err := dc.client.Flush(); err != nil {
		dc.logger.Sugar().Warnw("Failed to flush statsd client", zap.Error(err))
	}
}
