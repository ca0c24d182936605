package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-lms/meridian-lms/internal/app"
	"github.com/meridian-lms/meridian-lms/internal/directory"
	"github.com/meridian-lms/meridian-lms/internal/platform/cache"
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/roles"
	"github.com/meridian-lms/meridian-lms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	refCache := cache.NewRefCache(redisClient, cfg.ReferenceCacheTTL)
	rightsService := rights.NewService(rights.NewRepository(pool), refCache, logger)
	rolesService := roles.NewService(roles.NewRepository(pool), rightsService, refCache, logger)
	directoryService := directory.NewService(directory.NewRepository(pool), refCache, logger)

	warmupJob := jobs.NewReferenceWarmupJob(rightsService, rolesService, directoryService, logger, nil)
	sweepJob := jobs.NewEscalationSweepJob(redisClient, logger, nil)

	warmupTask, err := jobs.NewReferenceWarmupTask("all")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewEscalationSweepTask(100)
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReferenceWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskEscalationSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "*/10 * * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
