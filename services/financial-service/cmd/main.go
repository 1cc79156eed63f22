package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/suteetoe/erpsuite/gomicro/config"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/jwtutil"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/messaging"
	"github.com/suteetoe/erpsuite/gomicro/server"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/consumer"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/handler"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/model"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/report"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/service"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/worker"
	"github.com/suteetoe/erpsuite/services/financial-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "financial-service"

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Invoices, payments and sales reporting",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server, the order.shipped consumer and the overdue sweeper",
			RunE:  func(cmd *cobra.Command, args []string) error { return serve() },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Migrate the schema",
			RunE:  func(cmd *cobra.Command, args []string) error { return migrate() },
		},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *gorm.DB, error) {
	appConfig, err := config.Load(serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: serviceName,
		FilePath:    appConfig.Log.File,
	}); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.GetLogger()
	log.Info("Starting financial-service", appConfig.LogConfig()...)

	db, err := database.InitDB(&appConfig.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	log.Info("Database connection established")
	return appConfig, db, nil
}

func migrate() error {
	_, db, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer database.Close(db)
	return database.MigrateModels(model.AllModels()...)
}

func serve() error {
	appConfig, db, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer database.Close(db)
	log := logger.GetLogger()

	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	invoices := service.NewInvoiceService(db, &appConfig.Finance)

	shipped, err := messaging.NewConsumer(ctx, &appConfig.Broker, consumer.QueueOrderShipped, messaging.TopicOrderShipped)
	if err != nil {
		log.Warn("Message broker unavailable, shipped orders will not be invoiced", zap.Error(err))
		shipped = nil
	} else {
		defer shipped.Close()
	}

	// loops must be finished before the consumer and the database are closed
	background := worker.NewGroup(ctx)
	defer background.Stop()

	if shipped != nil {
		background.Go("order.shipped consumer", func(ctx context.Context) error {
			return shipped.Consume(ctx, consumer.OrderShipped(invoices))
		})
	}

	sweeper := worker.NewOverdueSweeper(invoices, appConfig.Finance.OverdueSweepPeriod)
	background.Go("overdue sweeper", func(ctx context.Context) error {
		sweeper.Start(ctx)
		return nil
	})

	handler.InitHandlers(invoices, report.NewService(db))

	e := server.New(ctx, appConfig)
	handler.RegisterRoutes(e, jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      appConfig.JWT.SigningKey,
		ExpirationHours: appConfig.JWT.ExpirationHours,
	}))
	return server.Run(ctx, e, appConfig.Server.Port)
}
