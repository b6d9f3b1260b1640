package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/entropy-labs/rngpool/internal/clock"
	"github.com/entropy-labs/rngpool/internal/config"
	"github.com/entropy-labs/rngpool/internal/logger"
	"github.com/entropy-labs/rngpool/internal/metrics"
	"github.com/entropy-labs/rngpool/internal/metrics/prometheus"
	"github.com/entropy-labs/rngpool/internal/sqlite"
	"github.com/entropy-labs/rngpool/internal/version"
	"github.com/entropy-labs/rngpool/pkg/collateral"
	"github.com/entropy-labs/rngpool/pkg/coordinator"
	"github.com/entropy-labs/rngpool/pkg/eventBus"
	"github.com/entropy-labs/rngpool/pkg/ledger"
	"github.com/entropy-labs/rngpool/pkg/postgres"
	"github.com/entropy-labs/rngpool/pkg/shutdown"
	"github.com/entropy-labs/rngpool/pkg/storage/migrations"
	"github.com/entropy-labs/rngpool/pkg/storage/poolStore"
	"github.com/entropy-labs/rngpool/pkg/storage/sink"
	"github.com/entropy-labs/rngpool/pkg/tasks"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// reapInterval bounds how stale an expired pending task can get before the
// background reaper fails it.
const reapInterval = 15 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the rngpool coordinator",
	RunE: func(cmd *cobra.Command, args []string) error {
		initRunCmd(cmd)
		cfg, err := config.NewConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		if err != nil {
			return err
		}
		defer l.Sync() //nolint:errcheck

		l.Sugar().Infow("rngpool",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
		)

		eb := eventBus.NewEventBus(l)

		mc, err := metrics.NewMetricsClientFromConfig(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup metrics client", zap.Error(err))
		}

		var grm *gorm.DB
		if cfg.DatabaseConfig.InMemory {
			grm, err = sqlite.NewGormSqliteFromSqlite(sqlite.NewInMemorySqlite())
			if err != nil {
				l.Sugar().Fatalw("Failed to setup in-memory sqlite connection", zap.Error(err))
			}
			if err := migrations.NewMigrator(nil, grm, l).MigrateAll(); err != nil {
				l.Sugar().Fatalw("Failed to run migrations", zap.Error(err))
			}
		} else {
			pgConfig := postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
			pg, err := postgres.NewPostgres(pgConfig)
			if err != nil {
				l.Sugar().Fatalw("Failed to setup postgres connection", zap.Error(err))
			}
			grm, err = postgres.NewGormFromPostgresConnection(pg.Db)
			if err != nil {
				l.Sugar().Fatalw("Failed to create gorm instance", zap.Error(err))
			}
			if err := migrations.NewMigrator(pg.Db, grm, l).MigrateAll(); err != nil {
				l.Sugar().Fatalw("Failed to run migrations", zap.Error(err))
			}
		}

		store := poolStore.NewGormPoolStore(grm, l)

		auditSink := sink.NewStorageSink(store, eb, l)
		auditSink.Start(ctx)

		cc := collateral.NewInMemoryCollateral(cfg.PoolConfig.Address)

		clk := clock.NewSystemClock()
		height := clock.NewHeight()

		led := ledger.NewLedger(&cfg.PoolConfig, cc, clk, height, eb, l)
		tm := tasks.NewTaskManager(&cfg.PoolConfig, led, cc, clk, height, eb, l)

		coord := coordinator.NewCoordinator(cfg, led, tm, mc, l)
		coord.Start(ctx)

		if cfg.PoolConfig.TaskTimeout > 0 {
			go func() {
				ticker := time.NewTicker(reapInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if _, err := coord.ReapExpiredTasks(ctx, cfg.PoolConfig.AdminAddress); err != nil {
							l.Sugar().Errorw("Failed to reap expired tasks", zap.Error(err))
						}
					}
				}
			}()
		}

		if cfg.PrometheusConfig.Enabled {
			go func() {
				if err := prometheus.StartServer(cfg.PrometheusConfig.Port); err != nil {
					l.Sugar().Errorw("Prometheus server exited", zap.Error(err))
				}
			}()
		}

		l.Sugar().Infow("Started rngpool",
			zap.String("poolAddress", cfg.PoolConfig.Address),
			zap.String("adminAddress", cfg.PoolConfig.AdminAddress),
		)

		gracefulShutdown := shutdown.CreateGracefulShutdownChannel()

		done := make(chan bool)
		shutdown.ListenForShutdown(gracefulShutdown, done, func() {
			l.Sugar().Info("Shutting down...")
			cancel()
			coord.Shutdown()
			auditSink.Close()
		}, time.Second*5, l)

		return nil
	},
}

func initRunCmd(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(config.KebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(f.Name); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}
