package main

import (
	"context"
	"fmt"
	"os"

	"github.com/habitgrid/internal/config"
	"github.com/habitgrid/internal/db"
	"github.com/habitgrid/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm/logger"
)

var (
	// Global flags
	configFile string
	dbPath     string
	verbose    bool
)

// app 持有一次命令执行所需的全部依赖
type app struct {
	cfg    config.AppConfig
	logger *zap.Logger
	store  *db.Store
	repo   *service.Repository
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func newLogger(cfg config.AppConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	level := zapcore.InfoLevel
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// bootstrap 加载配置、打开存储并加载 Repository
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	gormLevel := logger.Silent
	if verbose {
		gormLevel = logger.Info
	}
	store, err := db.Open(cfg.DatabasePath, db.WithLogLevel(gormLevel))
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := service.NewRepository(store,
		service.WithLogger(log.Named("repository")),
		service.WithStrictInvariants(cfg.StrictInvariants))
	if err := repo.Load(ctx); err != nil {
		_ = store.Close()
		_ = log.Sync()
		return nil, err
	}

	log.Debug("habitgrid ready",
		zap.String("database", cfg.DatabasePath),
		zap.String("config", cfg.ConfigFile))
	return &app{cfg: cfg, logger: log, store: store, repo: repo}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "habitgrid",
		Short:         "Local habit tracker with a pannable completion grid",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $XDG_CONFIG_HOME/habitgrid/config.yaml)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides HABITGRID_DB_PATH)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(),
		newExportCmd(),
		newImportCmd(),
		newStatsCmd(),
		newSnapshotCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
