package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/suteetoe/erpsuite/gomicro/config"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/jwtutil"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/server"
	"github.com/suteetoe/erpsuite/services/user-service/internal/handler"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
	"github.com/suteetoe/erpsuite/services/user-service/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "user-service"

var (
	admin service.BootstrapAdminInput

	rootCmd = &cobra.Command{
		Use:   serviceName,
		Short: "Tenant, user, role and permission service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the schema and seed the permission catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	}
)

func init() {
	migrateCmd.Flags().StringVar(&admin.Username, "admin-username", "", "create a super administrator with this username")
	migrateCmd.Flags().StringVar(&admin.Email, "admin-email", "", "email of the super administrator")
	migrateCmd.Flags().StringVar(&admin.Password, "admin-password", "", "password of the super administrator")
	migrateCmd.Flags().StringVar(&admin.TenantCode, "admin-tenant", "SYSTEM", "code of the administrator's home tenant")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: serviceName,
		FilePath:    cfg.Log.File,
	}); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger.GetLogger().Info("Configuration loaded", cfg.LogConfig()...)

	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	return cfg, db, nil
}

type services struct {
	tenants     *service.TenantService
	users       *service.UserService
	roles       *service.RoleService
	catalog     *service.CatalogService
	userTenants *service.UserTenantService
	authorizer  *service.Authorizer
}

func newServices(db *gorm.DB, cache service.DecisionCache) *services {
	userTenants := service.NewUserTenantService(db, cache)
	return &services{
		tenants:     service.NewTenantService(db, userTenants, cache),
		users:       service.NewUserService(db, userTenants, cache),
		roles:       service.NewRoleService(db, cache),
		catalog:     service.NewCatalogService(db),
		userTenants: userTenants,
		authorizer:  service.NewAuthorizer(db, cache),
	}
}

func migrate() error {
	_, db, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer database.Close(db)
	log := logger.GetLogger()

	if err := database.MigrateModels(model.AllModels()...); err != nil {
		return err
	}
	log.Info("Schema migrated")

	ctx := context.Background()
	s := newServices(db, nil)
	if err := s.catalog.Seed(ctx); err != nil {
		return err
	}

	if admin.Username != "" {
		if _, err := service.BootstrapAdmin(ctx, s.users, s.tenants, admin); err != nil {
			return err
		}
	}
	return nil
}

func serve() error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer database.Close(db)
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := service.NoopCache()
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable, permission decisions will not be cached", zap.Error(err))
		} else {
			cache = service.NewRedisDecisionCache(client, cfg.Redis.TTL)
			log.Info("Permission cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
		}
	}

	s := newServices(db, cache)
	handler.InitHandlers(&handler.Services{
		Tenants:     s.tenants,
		Users:       s.users,
		Roles:       s.roles,
		Catalog:     s.catalog,
		UserTenants: s.userTenants,
		Authorizer:  s.authorizer,
		JWT:         jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: cfg.JWT.SigningKey, ExpirationHours: cfg.JWT.ExpirationHours}),
	})

	e := server.New(ctx, cfg)
	handler.RegisterRoutes(e)
	return server.Run(ctx, e, cfg.Server.Port)
}
