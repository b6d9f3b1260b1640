package metrics

import (
	"time"

	"github.com/entropy-labs/rngpool/internal/config"
	"github.com/entropy-labs/rngpool/internal/metrics/dogStatsd"
	"github.com/entropy-labs/rngpool/internal/metrics/metricsTypes"
	"github.com/entropy-labs/rngpool/internal/metrics/prometheus"
	"go.uber.org/zap"
)

// NewMetricsClientFromConfig selects the configured metrics backend. Prometheus
// wins if both are enabled; with neither, a noop client is returned so callers
// never need nil checks.
func NewMetricsClientFromConfig(cfg *config.Config, l *zap.Logger) (metricsTypes.IMetricsClient, error) {
	if cfg.PrometheusConfig.Enabled {
		return prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics: metricsTypes.MetricTypes,
		}, l)
	}
	if cfg.StatsdConfig.Enabled {
		return dogStatsd.NewDogStatsdMetricsClient(cfg.StatsdConfig.Url, l)
	}
	return &NoopMetricsClient{}, nil
}

type NoopMetricsClient struct{}

func (n *NoopMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	return nil
}

func (n *NoopMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	return nil
}

func (n *NoopMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return nil
}

func (n *NoopMetricsClient) Flush() {}
