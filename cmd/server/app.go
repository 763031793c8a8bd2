package main

import (
	"alcyxob/plan-tracker/internal/config"
	"alcyxob/plan-tracker/internal/lock"
	"alcyxob/plan-tracker/internal/logger"
	"alcyxob/plan-tracker/internal/repository"
	"alcyxob/plan-tracker/internal/repository/memory"
	"alcyxob/plan-tracker/internal/repository/mongo"
	"alcyxob/plan-tracker/internal/storage"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds the wired infrastructure shared by the subcommands.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	repos   *repository.Repositories
	locker  lock.Locker
	files   storage.FileStorage
	closers []func()
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// newApp connects the configured store, lock backend and object storage.
func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	// --- Repositories ---
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		a.repos = memory.NewStore().Repositories()
	default:
		client, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := mongo.DisconnectDB(client); err != nil {
				log.Error("mongo disconnect failed", zap.Error(err))
			}
		})
		db := client.Database(cfg.Database.Name)
		if err := mongo.EnsureIndexes(ctx, db, log.Named("mongo")); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		a.repos = mongo.NewRepositories(db)
		log.Info("mongo connected", zap.String("database", cfg.Database.Name))
	}

	// --- Locks ---
	switch cfg.Lock.Driver {
	case config.LockRedis:
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.locker = lock.NewRedisLocker(rdb, cfg.Lock.TTL, cfg.Lock.Retry, log.Named("lock"))
		log.Info("redis lock backend ready", zap.String("addr", cfg.Redis.Addr))
	default:
		a.locker = lock.NewMemoryLocker()
	}

	// --- Object storage ---
	if cfg.S3.BucketName == "" {
		log.Warn("s3.bucket_name is empty; media uploads are disabled")
		a.files = storage.Unconfigured{}
	} else {
		files, err := storage.NewS3Storage(ctx, cfg.S3, log.Named("s3"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		a.files = files
	}
	return a, nil
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
