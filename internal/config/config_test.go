package config

import (
	"math/big"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func Test_Config(t *testing.T) {
	t.Run("KebabToSnakeCase", func(t *testing.T) {
		assert.Equal(t, "pool_min_operator_stake", KebabToSnakeCase("pool-min-operator-stake"))
		assert.Equal(t, "pool.min_operator_stake", KebabToSnakeCase("pool.min-operator-stake"))
		assert.Equal(t, "debug", KebabToSnakeCase("debug"))
	})

	t.Run("Builds a config from viper values", func(t *testing.T) {
		viper.Reset()
		viper.Set("debug", true)
		viper.Set("pool.admin_address", "0xAdminAdminAdminAdminAdminAdminAdminAdmin")
		viper.Set("pool.min_operator_stake", "1000")
		viper.Set("pool.min_delegation", "10")
		viper.Set("pool.max_operators", 50)
		viper.Set("pool.commission_bps", 1000)
		viper.Set("pool.slash_amount", "100")
		viper.Set("task.fee", "5")
		viper.Set("task.timeout", "1h")
		viper.Set("task.max_per_block", 10)

		cfg, err := NewConfig()
		assert.Nil(t, err)
		assert.True(t, cfg.Debug)
		assert.Equal(t, "0xadminadminadminadminadminadminadminadmin", cfg.PoolConfig.AdminAddress)
		assert.Equal(t, big.NewInt(1000), cfg.PoolConfig.MinOperatorStake)
		assert.Equal(t, big.NewInt(10), cfg.PoolConfig.MinDelegationAmount)
		assert.Equal(t, 50, cfg.PoolConfig.MaxOperators)
		assert.Equal(t, uint64(1000), cfg.PoolConfig.CommissionBps)
		assert.Equal(t, big.NewInt(100), cfg.PoolConfig.SlashAmount)
		assert.Equal(t, big.NewInt(5), cfg.PoolConfig.TaskFee)
		assert.Equal(t, time.Hour, cfg.PoolConfig.TaskTimeout)
		assert.Equal(t, 10, cfg.PoolConfig.MaxTasksPerBlock)
	})

	t.Run("Rejects malformed big integer values", func(t *testing.T) {
		viper.Reset()
		viper.Set("pool.min_operator_stake", "not-a-number")

		_, err := NewConfig()
		assert.NotNil(t, err)
	})

	t.Run("Defaults unset big integers to zero", func(t *testing.T) {
		viper.Reset()

		cfg, err := NewConfig()
		assert.Nil(t, err)
		assert.Equal(t, big.NewInt(0), cfg.PoolConfig.MinOperatorStake)
		assert.Equal(t, big.NewInt(0), cfg.PoolConfig.TaskFee)
	})
}
