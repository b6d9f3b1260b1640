package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_OperatorRegistered   = "ledger.operatorRegistered"
	Metric_Incr_OperatorDeregistered = "ledger.operatorDeregistered"
	Metric_Incr_OperatorSlashed      = "ledger.operatorSlashed"
	Metric_Incr_RewardsDistributed   = "ledger.rewardsDistributed"
	Metric_Incr_TaskCreated          = "tasks.created"
	Metric_Incr_TaskCompleted        = "tasks.completed"
	Metric_Incr_TaskRejected         = "tasks.rejected"

	Metric_Gauge_TotalStaked     = "ledger.totalStaked"
	Metric_Gauge_ActiveOperators = "ledger.activeOperators"
	Metric_Gauge_PendingTasks    = "tasks.pending"

	Metric_Timing_MutationDuration = "mutation.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_OperatorRegistered,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_OperatorDeregistered,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_OperatorSlashed,
			Labels: []string{
				"reason",
			},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_RewardsDistributed,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_TaskCreated,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_TaskCompleted,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_TaskRejected,
			Labels: []string{
				"reason",
			},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_TotalStaked,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_ActiveOperators,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_PendingTasks,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name: Metric_Timing_MutationDuration,
			Labels: []string{
				"mutation",
				"hasError",
			},
		},
	},
}
