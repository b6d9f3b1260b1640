package cmd

import (
	"os"
	"strings"

	"github.com/entropy-labs/rngpool/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "rngpool",
	Short: "rngpool coordinates a staked operator pool serving attested randomness tasks",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)

	rootCmd.PersistentFlags().String(config.PoolAddress, "pool", `Identity credited with pool custody in the collateral ledger`)
	rootCmd.PersistentFlags().String(config.PoolAdminAddress, "", `Identity allowed to slash, pause and manage requesters`)
	rootCmd.PersistentFlags().String(config.PoolMinOperatorStake, "1000000000000000000", `Minimum operator self stake`)
	rootCmd.PersistentFlags().String(config.PoolMinDelegation, "100000000000000000", `Minimum single delegation amount`)
	rootCmd.PersistentFlags().Int(config.PoolMaxOperators, 0, `Active operator capacity, 0 for unlimited`)
	rootCmd.PersistentFlags().Uint64(config.PoolCommissionBps, 1000, `Operator commission on rewards, in basis points`)
	rootCmd.PersistentFlags().String(config.PoolSlashAmount, "500000000000000000", `Default slash amount`)

	rootCmd.PersistentFlags().String(config.TaskFee, "10000000000000000", `Fee charged per randomness task`)
	rootCmd.PersistentFlags().Duration(config.TaskTimeout, 0, `How long a task stays fulfillable, e.g. "5m"`)
	rootCmd.PersistentFlags().Int(config.TaskMaxPerBlock, 0, `Task creations allowed per block, 0 for unlimited`)

	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "rngpool", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "rngpool", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().Bool(config.DatabaseInMemory, false, `Use an in-memory sqlite database instead of PostgreSQL`)

	rootCmd.PersistentFlags().Bool(config.StatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.StatsdUrl, "", `e.g. "localhost:8125"`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to run the prometheus server on`)

	// setup sub commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runVersionCmd)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}
