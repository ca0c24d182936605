package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridian-lms/meridian-lms/cmd/meridian/cli"
	"github.com/meridian-lms/meridian-lms/internal/app"
	"github.com/meridian-lms/meridian-lms/internal/audit"
	"github.com/meridian-lms/meridian-lms/internal/auth"
	"github.com/meridian-lms/meridian-lms/internal/authz"
	"github.com/meridian-lms/meridian-lms/internal/directory"
	"github.com/meridian-lms/meridian-lms/internal/escalation"
	"github.com/meridian-lms/meridian-lms/internal/observability"
	"github.com/meridian-lms/meridian-lms/internal/platform/cache"
	"github.com/meridian-lms/meridian-lms/internal/platform/db"
	"github.com/meridian-lms/meridian-lms/internal/principal"
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/roles"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(os.Args[2:]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	refCache := cache.NewRefCache(redisClient, cfg.ReferenceCacheTTL)
	metrics := observability.NewMetrics()

	rightsService := rights.NewService(rights.NewRepository(dbpool), refCache, logger)
	rolesService := roles.NewService(roles.NewRepository(dbpool), rightsService, refCache, logger)
	directoryService := directory.NewService(directory.NewRepository(dbpool), refCache, logger)
	principalService := principal.NewService(principal.NewRepository(dbpool), rolesService, directoryService)

	escalationService := escalation.NewService(
		escalation.NewPGRepository(dbpool),
		escalation.NewSessionStore(redisClient),
		rolesService,
		directoryService,
		logger,
	)

	decisionSink := audit.NewRecorder(dbpool, logger)
	engine := authz.NewEngine(rolesService, directoryService, rightsService, escalationService, decisionSink, metrics, logger)
	authzMiddleware := authz.Middleware{Engine: engine, Claims: principalService, Logger: logger}

	authService := auth.NewService(principalService, auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	auditService := audit.NewService(audit.NewPGRepository(dbpool))

	if cfg.SeedReferenceData {
		if err := cli.SeedReferenceData(ctx, dbpool, rightsService, rolesService, directoryService, cfg.MasterDepartmentCode, logger); err != nil {
			logger.Error("seed reference data", slog.Any("error", err))
			os.Exit(1)
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		AuthHandler:       authHandler,
		PrincipalHandler:  principal.NewHandler(logger, principalService),
		DirectoryHandler:  directory.NewHandler(logger, directoryService),
		RightsHandler:     rights.NewHandler(logger, rightsService),
		RolesHandler:      roles.NewHandler(logger, rolesService),
		EscalationHandler: escalation.NewHandler(logger, escalationService, principalService, metrics),
		AuditHandler:      audit.NewHandler(logger, auditService),
		Authz:             authzMiddleware,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runJobsCommand(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: meridian jobs <trigger|inspect|scheduled> [name]")
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init jobs cli: %v\n", err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()

	ctx := context.Background()
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: meridian jobs trigger <task-name>")
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "trigger %s: %v\n", args[1], err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "inspect":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "inspect queue: %v\n", err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	case "scheduled":
		infos, err := jobsCLI.ListScheduled(ctx, 10)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list scheduled: %v\n", err)
			return 1
		}
		for _, info := range infos {
			fmt.Printf("%s id=%s next=%s\n", info.Type, info.ID, info.NextProcessAt.Format(time.RFC3339))
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown jobs command %q\n", args[0])
		return 2
	}
	return 0
}
