package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/opsdesk/internal/api/http"
	"github.com/spec-kit/opsdesk/internal/api/http/handlers"
	"github.com/spec-kit/opsdesk/internal/auth"
	"github.com/spec-kit/opsdesk/internal/config"
	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/events"
	"github.com/spec-kit/opsdesk/internal/observability"
	"github.com/spec-kit/opsdesk/internal/persistence"
	"github.com/spec-kit/opsdesk/internal/repository"
	"github.com/spec-kit/opsdesk/internal/service"
	"github.com/spec-kit/opsdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	operatorRepo := repository.NewOperatorRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	policyRepo := repository.NewPolicyRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	policySource := service.NewPolicyCache(policyRepo, rdb.ClientHandle(), cfg.SLA.PolicyCacheTTL(), logger)
	resolver := service.NewPolicyResolver(policySource)
	engine := service.NewStatusEngine()
	stores := service.SLAStores{
		domain.EntityKindRequest: requestRepo,
		domain.EntityKindTask:    taskRepo,
	}
	tracking := service.NewSLATrackingService(service.SLATrackingDependencies{
		Stores:     stores,
		Resolver:   resolver,
		Engine:     engine,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	pauses := service.NewSLAPauseService(stores, engine, dispatcher)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:     userRepo,
		OperatorRepo: operatorRepo,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  requestRepo,
		TaskRepo:     taskRepo,
		CategoryRepo: categoryRepo,
		Tracking:     tracking,
		Pauses:       pauses,
		Dispatcher:   dispatcher,
	})
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:    taskRepo,
		RequestRepo: requestRepo,
		Tracking:    tracking,
		Pauses:      pauses,
		Dispatcher:  dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		RequestRepo:  requestRepo,
		OperatorRepo: operatorRepo,
		Dispatcher:   dispatcher,
	})
	orgService := service.NewOrgService(*cfg, service.OrgDependencies{
		CategoryRepo: categoryRepo,
		OperatorRepo: operatorRepo,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	refreshWorker := worker.NewSLARefreshWorker(tracking, stores, logger, cfg.SLA.RefreshInterval(), cfg.SLA.RefreshBatchSize)
	go refreshWorker.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, operatorRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Users:          handlers.NewUsersHandler(authService),
		Operators:      handlers.NewOperatorsHandler(authService, orgService),
		Requests:       handlers.NewRequestsHandler(requestService),
		OpsRequests:    handlers.NewOpsRequestsHandler(requestService, assignmentService, tracking),
		Tasks:          handlers.NewTasksHandler(taskService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
