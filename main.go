// Package main provides the entry point of the Banning report service
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anshu-9837/Banning/app/handlers"
	"github.com/anshu-9837/Banning/app/logging"
	"github.com/anshu-9837/Banning/app/middleware"
	"github.com/anshu-9837/Banning/app/router"
	"github.com/anshu-9837/Banning/app/scheduler"
	"github.com/anshu-9837/Banning/app/services"
	businessflow "github.com/anshu-9837/Banning/business_flow"
	"github.com/anshu-9837/Banning/config"
	"github.com/anshu-9837/Banning/migrations"
	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/repository"
	"github.com/anshu-9837/Banning/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	config    *config.ProductionConfig
	logger    *zap.Logger
	db        *gorm.DB
	cache     *redis.Client
	router    router.Router
	scheduler *scheduler.BatchScheduler
	stopFuncs []func()
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initializeDatabase opens the configured database with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", cfg.SQLitePath))
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		NowFunc: utils.UTCNow,
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite serializes writers; a single connection queues them instead of failing busy
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return db, nil
}

// migrateDatabase brings the schema up to date: goose for postgres, AutoMigrate for sqlite
func migrateDatabase(db *gorm.DB, driver string) error {
	if driver == "sqlite" {
		return db.AutoMigrate(models.AllModels()...)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return migrations.Up(sqlDB)
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis. The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService picks the SMS provider
func initializeNotificationService(cfg *config.ProductionConfig, logger *zap.Logger) services.NotificationService {
	var smsService services.SMSService
	switch cfg.SMS.ProviderDomain {
	case "mock":
		smsService = services.NewMockSMSService(logger.Named("sms"))
	default:
		smsService = services.NewSMSService(&cfg.SMS)
	}
	return services.NewNotificationService(smsService)
}

// batchBackends returns the Redis lock and progress store when Redis is configured, in-memory ones otherwise
func batchBackends(cfg *config.ProductionConfig, rc *redis.Client, logger *zap.Logger) (businessflow.BatchLocker, services.ProgressStore) {
	if rc == nil {
		return services.NewMemoryBatchLocker(), services.NewMemoryProgressStore()
	}
	return services.NewRedisBatchLocker(rc, cfg.Cache.RedisPrefix, services.DefaultBatchLockTTL),
		services.NewRedisProgressStore(rc, cfg.Cache.RedisPrefix, services.DefaultProgressTTL, logger.Named("progress"))
}

// initializeApplication wires repositories, flows, handlers and background jobs
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := migrateDatabase(db, cfg.Database.Driver); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("Database schema is up to date")
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	operatorRepo := repository.NewOperatorRepository(db)
	codeRepo := repository.NewOneTimeCodeRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	loginLogRepo := repository.NewLoginLogRepository(db)
	reportRepo := repository.NewReportRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	statRepo := repository.NewDailyStatRepository(db)

	authFlow := businessflow.NewAuthFlow(
		operatorRepo,
		codeRepo,
		sessionRepo,
		loginLogRepo,
		tokenService,
		initializeNotificationService(cfg, logger),
		businessflow.AuthSettings{
			CodeTTL:        cfg.OTP.Expiry,
			MaxAttempts:    cfg.OTP.MaxAttempts,
			BcryptCost:     cfg.OTP.BcryptCost,
			SessionTimeout: cfg.Security.SessionTimeout,
		},
		logger.Named("auth"),
		db,
	)

	reportSettings := businessflow.ReportSettings{
		MaxReportsPerDay: cfg.Report.MaxReportsPerDay,
		MaxBatchCount:    cfg.Report.MaxBatchCount,
		MaxDelaySeconds:  cfg.Report.MaxDelaySeconds,
		HistoryLimit:     cfg.Report.HistoryLimit,
	}
	executor := businessflow.NewActionExecutor(
		businessflow.NewSimulatedSubmitter(cfg.Report.SuccessProbability),
		reportRepo,
		statRepo,
		db,
	)
	reportFlow := businessflow.NewReportFlow(authFlow, executor, reportRepo, statRepo, batchRepo, reportSettings, logger.Named("reports"), db)

	locker, progressStore := batchBackends(cfg, rc, logger)
	batchFlow := businessflow.NewBatchFlow(authFlow, executor, batchRepo, statRepo, locker, progressStore,
		reportSettings, logger.Named("batches"), db)
	operatorFlow := businessflow.NewOperatorFlow(authFlow, operatorRepo, sessionRepo, logger.Named("operators"), db)

	v := handlers.NewValidator()
	r := router.NewFiberRouter(router.ConfigFromProduction(cfg), router.Handlers{
		Auth:      handlers.NewAuthHandler(authFlow, v, logger),
		Reports:   handlers.NewReportHandler(reportFlow, v, logger),
		Batches:   handlers.NewBatchHandler(batchFlow, progressStore, v, logger),
		Operators: handlers.NewOperatorHandler(operatorFlow, v, logger),
		Health:    handlers.NewHealthHandler(db, cfg.Deployment.Version),
	}, middleware.NewAuthMiddleware(tokenService, authFlow), logger.Named("http"))

	return &Application{
		config: cfg,
		logger: logger,
		db:     db,
		cache:  rc,
		router: r,
		scheduler: scheduler.NewBatchScheduler(batchFlow, authFlow, codeRepo, logger.Named("scheduler"),
			cfg.Security.SessionCleanupInterval, cfg.Report.ResumeInterval, cfg.Server.ShutdownTimeout),
	}, nil
}

// close releases the database and cache connections
func (a *Application) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func loadRuntime() (*config.ProductionConfig, *zap.Logger, error) {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.With(zap.String("env", cfg.Deployment.Environment), zap.String("version", cfg.Deployment.Version)), nil
}
