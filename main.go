package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/audit"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/auth"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/config"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/crypto"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/database"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/handlers"
	"github.com/syaikhipin/aidatasharing-sub001/pkg/middleware"
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

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.String("redis", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Credential encryption: explicit env key wins, key file is the
	// development fallback.
	var provider crypto.KeyProvider
	if cfg.CredentialsKey != "" {
		envProvider, err := crypto.NewEnvKeyProvider("PROXY_CREDENTIALS_KEY")
		if err != nil {
			return fmt.Errorf("credentials key: %w", err)
		}
		provider = envProvider
	} else {
		logger.Warn("PROXY_CREDENTIALS_KEY not set, using key file",
			zap.String("path", cfg.EncryptionKeyFile))
		provider = crypto.NewFileKeyProvider(cfg.EncryptionKeyFile)
	}
	encryptor, err := crypto.NewCredentialEncryptor(provider)
	if err != nil {
		return fmt.Errorf("credential encryptor: %w", err)
	}

	// Platform database.
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer db.Close()

	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("migration connection: %w", err)
	}
	if err := database.RunMigrations(migrationDB, "migrations", logger); err != nil {
		_ = migrationDB.Close()
		return fmt.Errorf("migrations: %w", err)
	}
	_ = migrationDB.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Services.
	authSvc := auth.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.EnableVerification, logger)
	auditor := audit.NewSecurityAuditor(logger)
	scopes := database.NewScopeProvider(db)

	connectorRepo := repositories.NewConnectorRepository()
	linkRepo := repositories.NewSharedLinkRepository()
	logRepo := repositories.NewAccessLogRepository()

	connectorSvc := services.NewConnectorService(connectorRepo, encryptor, logger)
	shareLinkSvc := services.NewShareLinkService(linkRepo, connectorRepo, cfg, logger)
	analyticsSvc := services.NewAnalyticsService(logRepo, connectorRepo)
	dispatcher := services.NewDispatcherService(
		connectorRepo, linkRepo, logRepo, encryptor, authSvc, scopes, auditor, &cfg.Proxy, logger)

	// HTTP layer.
	mux := http.NewServeMux()
	authMiddleware := auth.NewMiddleware(authSvc, logger)
	tenantMiddleware := handlers.TenantMiddleware(database.WithTenantContext(db, logger))

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewConnectorsHandler(connectorSvc, shareLinkSvc, analyticsSvc, logger).
		RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewProxyHandler(dispatcher, logger).RegisterRoutes(mux)

	limiter := middleware.NewRateLimiter(redisClient, cfg.Proxy.RateLimitPerMinute, logger)
	handler := limiter.Limit(middleware.RequestLogger(logger)(mux))

	srv := &http.Server{
		Addr:         cfg.BindAddr + ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  35 * time.Second,
		WriteTimeout: 35 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting proxy platform",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.TLSCertPath != ""))

		var serveErr error
		if cfg.TLSCertPath != "" {
			serveErr = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			serveErr = srv.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildLogger creates a production JSON logger, or a human-readable
// development logger for local environments.
func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
