package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-platform/internal/api/http"
	"github.com/spec-kit/support-platform/internal/api/http/handlers"
	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/config"
	"github.com/spec-kit/support-platform/internal/events"
	"github.com/spec-kit/support-platform/internal/observability"
	"github.com/spec-kit/support-platform/internal/persistence"
	"github.com/spec-kit/support-platform/internal/ratelimit"
	"github.com/spec-kit/support-platform/internal/repository"
	"github.com/spec-kit/support-platform/internal/service"
	"github.com/spec-kit/support-platform/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewPlatformUserRepository(pool)
	roleRepo := repository.NewUserRoleRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	clientRepo := repository.NewClientAccountRepository(pool)
	orgRepo := repository.NewClientOrganizationRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	embedTokenRepo := repository.NewEmbedTokenRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		RoleRepo:   roleRepo,
		ClientRepo: clientRepo,
	})
	resolver := auth.NewChainResolver(userRepo, roleRepo, staffRepo, clientRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), resolver)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		StaffRepo:   staffRepo,
		OrgRepo:     orgRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
	})
	conversationService := service.NewConversationService(service.ConversationDependencies{
		ConversationRepo: conversationRepo,
		MessageRepo:      messageRepo,
		StaffRepo:        staffRepo,
		TicketService:    ticketService,
		Dispatcher:       dispatcher,
	})
	embedService := service.NewEmbedService(service.EmbedDependencies{
		TokenRepo:     embedTokenRepo,
		OrgRepo:       orgRepo,
		TicketService: ticketService,
		Config:        cfg.Embed,
		Logger:        logger,
	})
	staffService := service.NewStaffService(staffRepo)
	auditService := service.NewAuditService(staffRepo, roleRepo)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)
	worker.StartAuditWorker(ctx, auditService, cfg.Audit.AuditInterval(), logger)

	guestLimiter := ratelimit.NewLimiter(redis, "guest-track", cfg.RateLimit.GuestTrackPerMinute, time.Minute, logger)
	embedLimiter := ratelimit.NewLimiter(redis, "embed", cfg.RateLimit.EmbedPerMinute, time.Minute, logger)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Guest:          handlers.NewGuestHandler(ticketService, guestLimiter),
		Embed:          handlers.NewEmbedHandler(embedService, embedLimiter, metrics),
		Conversations:  handlers.NewConversationsHandler(conversationService),
		Staff:          handlers.NewStaffHandler(staffService, auditService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
