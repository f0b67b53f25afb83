// Command proxyd runs the standalone proxy listeners: one port per backend
// type (see config proxy.standalone_ports) plus a share-link port. It shares
// the platform database, encryption key, and dispatch pipeline with the
// integrated API server but exposes no management endpoints.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/audit"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/auth"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/config"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/crypto"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/database"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/handlers"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/middleware"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/proxyserver"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/repositories"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/services"

	// Register executor backends.
	_ "github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector/api"
	_ "github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector/clickhouse"
	_ "github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector/mongo"
	_ "github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector/mssql"
	_ "github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector/mysql"
	_ "github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector/postgres"
	_ "github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector/s3"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("proxyd failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var provider crypto.KeyProvider
	if cfg.CredentialsKey != "" {
		envProvider, err := crypto.NewEnvKeyProvider("PROXY_CREDENTIALS_KEY")
		if err != nil {
			return fmt.Errorf("credentials key: %w", err)
		}
		provider = envProvider
	} else {
		provider = crypto.NewFileKeyProvider(cfg.EncryptionKeyFile)
	}
	encryptor, err := crypto.NewCredentialEncryptor(provider)
	if err != nil {
		return fmt.Errorf("credential encryptor: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	authSvc := auth.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.EnableVerification, logger)
	dispatcher := services.NewDispatcherService(
		repositories.NewConnectorRepository(),
		repositories.NewSharedLinkRepository(),
		repositories.NewAccessLogRepository(),
		encryptor,
		authSvc,
		database.NewScopeProvider(db),
		audit.NewSecurityAuditor(logger),
		&cfg.Proxy,
		logger,
	)

	proxyHandler := handlers.NewProxyHandler(dispatcher, logger)
	limiter := middleware.NewRateLimiter(redisClient, cfg.Proxy.RateLimitPerMinute, logger)

	return proxyserver.New(cfg, proxyHandler, limiter, logger).Start(ctx)
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
