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
	"github.com/suteetoe/erpsuite/gomicro/server"
	"github.com/suteetoe/erpsuite/services/product-service/internal/handler"
	"github.com/suteetoe/erpsuite/services/product-service/internal/model"
	"github.com/suteetoe/erpsuite/services/product-service/internal/service"
	"github.com/suteetoe/erpsuite/services/product-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "product-service"

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Product catalog and price resolution service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
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
	log.Info("Starting product-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

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

	prometheus.InitMetrics(appConfig)
	logger.GetLogger().Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	products := service.NewProductService(db)
	handler.InitHandlers(products, service.NewPriceService(db, products))

	e := server.New(ctx, appConfig)
	handler.RegisterRoutes(e, jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      appConfig.JWT.SigningKey,
		ExpirationHours: appConfig.JWT.ExpirationHours,
	}))
	return server.Run(ctx, e, appConfig.Server.Port)
}
