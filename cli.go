package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anshu-9837/Banning/app/dto"
	businessflow "github.com/anshu-9837/Banning/business_flow"
	"github.com/anshu-9837/Banning/migrations"
	"github.com/anshu-9837/Banning/repository"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	operatorName string
	operatorTier string
	operatorBy   string
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "banning",
		Short:         "Operator report bot with rate-limited batch runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	operatorCmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage the operator allowlist",
	}
	addCmd := &cobra.Command{
		Use:   "add <phone>",
		Short: "Allowlist a phone number",
		Args:  cobra.ExactArgs(1),
		RunE:  runOperatorAdd,
	}
	addCmd.Flags().StringVar(&operatorName, "name", "", "display name (defaults to the masked phone)")
	addCmd.Flags().StringVar(&operatorTier, "tier", "user", "tier: superadmin, admin or user")
	addCmd.Flags().StringVar(&operatorBy, "by", "cli", "recorded as added_by")

	setTierCmd := &cobra.Command{
		Use:   "set-tier <phone> <tier>",
		Short: "Change an operator's tier; applies from the next login",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperatorUpdate(cmd.Context(), args[0], &dto.UpdateOperatorRequest{Tier: &args[1]})
		},
	}
	setStatusCmd := &cobra.Command{
		Use:   "set-status <phone> <approved|revoked>",
		Short: "Approve or revoke an operator; revoking ends its sessions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperatorUpdate(cmd.Context(), args[0], &dto.UpdateOperatorRequest{Status: &args[1]})
		},
	}
	operatorCmd.AddCommand(addCmd, setTierCmd, setStatusCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE:  runMigrate,
	}
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE:  runMigrateVersion,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the batch scheduler",
		RunE:  runServe,
	}, migrateCmd, operatorCmd)

	return rootCmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.router.SetupRoutes()
	if app.cache != nil {
		app.stopFuncs = append(app.stopFuncs, startCacheHealthMonitor(ctx, app.cache, 30*time.Second, logger))
	}

	g, gctx := errgroup.WithContext(ctx)
	stopScheduler := app.scheduler.Start(gctx)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("address", address))
		return app.router.Start(address)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := app.router.Shutdown(shutdownCtx)

		stopScheduler()
		for _, fn := range app.stopFuncs {
			fn()
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Database.Driver == "sqlite" {
		db, err := initializeDatabase(cfg.Database, logger)
		if err != nil {
			return err
		}
		if err := migrateDatabase(db, cfg.Database.Driver); err != nil {
			return err
		}
		logger.Info("SQLite schema migrated", zap.String("path", cfg.Database.SQLitePath))
		return nil
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()

	if err := migrations.Up(sqlDB); err != nil {
		return err
	}
	version, err := migrations.Version(sqlDB)
	if err != nil {
		return err
	}
	logger.Info("Migrations applied", zap.Int64("version", version))
	return nil
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Database.Driver == "sqlite" {
		return errors.New("sqlite schemas are auto-migrated and carry no version")
	}
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()

	version, err := migrations.Version(sqlDB)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), version)
	return nil
}

// operatorFlow opens the database and builds a flow that only needs the repositories
func operatorFlow() (businessflow.OperatorFlow, func(), error) {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return nil, nil, err
	}
	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := migrateDatabase(db, cfg.Database.Driver); err != nil {
			return nil, nil, err
		}
	}
	flow := businessflow.NewOperatorFlow(nil,
		repository.NewOperatorRepository(db),
		repository.NewSessionRepository(db),
		logger.Named("operators"),
		db,
	)
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = logger.Sync()
	}
	return flow, closeFn, nil
}

func runOperatorAdd(cmd *cobra.Command, args []string) error {
	flow, closeFn, err := operatorFlow()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	operator, err := flow.AddOperator(ctx, args[0], operatorName, strings.ToLower(operatorTier), operatorBy)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s) as %s\n", operator.Phone, operator.DisplayName, operator.Tier)
	return nil
}

func runOperatorUpdate(parent context.Context, phone string, request *dto.UpdateOperatorRequest) error {
	flow, closeFn, err := operatorFlow()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	operator, err := flow.ForceUpdateOperator(ctx, phone, request)
	if err != nil {
		return err
	}
	fmt.Printf("%s: tier=%s status=%s\n", operator.Phone, operator.Tier, operator.Status)
	return nil
}
