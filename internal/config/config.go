package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "RNGPOOL"

// Flag name constants, shared between cmd flag registration and viper lookups.
const (
	Debug = "debug"

	PoolAddress          = "pool.address"
	PoolAdminAddress     = "pool.admin-address"
	PoolMinOperatorStake = "pool.min-operator-stake"
	PoolMinDelegation    = "pool.min-delegation"
	PoolMaxOperators     = "pool.max-operators"
	PoolCommissionBps    = "pool.commission-bps"
	PoolSlashAmount      = "pool.slash-amount"

	TaskFee         = "task.fee"
	TaskTimeout     = "task.timeout"
	TaskMaxPerBlock = "task.max-per-block"

	DatabaseHost       = "database.host"
	DatabasePort       = "database.port"
	DatabaseUser       = "database.user"
	DatabasePassword   = "database.password"
	DatabaseDbName     = "database.db_name"
	DatabaseSchemaName = "database.schema_name"
	DatabaseInMemory   = "database.in-memory"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"

	StatsdEnabled = "datadog.statsd.enabled"
	StatsdUrl     = "datadog.statsd.url"
)

type DatabaseConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	DbName     string
	SchemaName string
	SSLMode    string
	// InMemory selects an in-memory sqlite database rather than postgres.
	InMemory bool
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type StatsdConfig struct {
	Enabled bool
	Url     string
}

// PoolConfig carries the economic parameters of the operator pool. These are the
// boot-time values; the coordinator can replace them at runtime through the
// administrative surface.
type PoolConfig struct {
	// Address is the identity the collateral ledger credits when stake, fees
	// or reward funds move into the pool.
	Address             string
	AdminAddress        string
	MinOperatorStake    *big.Int
	MinDelegationAmount *big.Int
	MaxOperators        int
	CommissionBps       uint64
	SlashAmount         *big.Int
	TaskFee             *big.Int
	TaskTimeout         time.Duration
	MaxTasksPerBlock    int
}

type Config struct {
	Debug            bool
	DatabaseConfig   DatabaseConfig
	PrometheusConfig PrometheusConfig
	StatsdConfig     StatsdConfig
	PoolConfig       PoolConfig
}

// KebabToSnakeCase converts a flag name like "pool.min-operator-stake" into the
// form viper uses for environment binding.
func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}

func parseBigInt(name string) (*big.Int, error) {
	raw := viper.GetString(normalizeFlagName(name))
	if raw == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer value for %s: '%s'", name, raw)
	}
	return v, nil
}

// NewConfig builds a Config from viper-bound flags and environment variables.
func NewConfig() (*Config, error) {
	minStake, err := parseBigInt(PoolMinOperatorStake)
	if err != nil {
		return nil, err
	}
	minDelegation, err := parseBigInt(PoolMinDelegation)
	if err != nil {
		return nil, err
	}
	slashAmount, err := parseBigInt(PoolSlashAmount)
	if err != nil {
		return nil, err
	}
	taskFee, err := parseBigInt(TaskFee)
	if err != nil {
		return nil, err
	}

	return &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),

		DatabaseConfig: DatabaseConfig{
			Host:       viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:       viper.GetInt(normalizeFlagName(DatabasePort)),
			User:       viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:   viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:     viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName: viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			InMemory:   viper.GetBool(normalizeFlagName(DatabaseInMemory)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},

		StatsdConfig: StatsdConfig{
			Enabled: viper.GetBool(normalizeFlagName(StatsdEnabled)),
			Url:     viper.GetString(normalizeFlagName(StatsdUrl)),
		},

		PoolConfig: PoolConfig{
			Address:             strings.ToLower(viper.GetString(normalizeFlagName(PoolAddress))),
			AdminAddress:        strings.ToLower(viper.GetString(normalizeFlagName(PoolAdminAddress))),
			MinOperatorStake:    minStake,
			MinDelegationAmount: minDelegation,
			MaxOperators:        viper.GetInt(normalizeFlagName(PoolMaxOperators)),
			CommissionBps:       viper.GetUint64(normalizeFlagName(PoolCommissionBps)),
			SlashAmount:         slashAmount,
			TaskTimeout:         viper.GetDuration(normalizeFlagName(TaskTimeout)),
			TaskFee:             taskFee,
			MaxTasksPerBlock:    viper.GetInt(normalizeFlagName(TaskMaxPerBlock)),
		},
	}, nil
}
