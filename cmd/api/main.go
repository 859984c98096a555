package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/b-max/backend/internal/api/handlers"
	"github.com/b-max/backend/internal/chat"
	"github.com/b-max/backend/internal/dynamo"
	"github.com/b-max/backend/internal/identity"
	"github.com/b-max/backend/internal/llm"
	"github.com/b-max/backend/internal/metrics"
	"github.com/b-max/backend/internal/middleware/ratelimit"
	"github.com/b-max/backend/internal/middleware/security"
	"github.com/b-max/backend/internal/middleware/validation"
	"github.com/b-max/backend/internal/profile"
	"github.com/b-max/backend/internal/rank"
	"github.com/b-max/backend/internal/session"
	"github.com/b-max/backend/internal/tender"
	"github.com/b-max/backend/pkg/config"
	appLogger "github.com/b-max/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting B-Max Chatbot API Server")

	metrics.Init()

	ctx := context.Background()

	// Downstream failures degrade the service instead of killing it: the
	// endpoints report connectivity and answers fall back to "no data".
	dynamoClient, err := dynamo.NewClient(ctx, cfg.AWS.Region, cfg.AWS.TendersTable, cfg.AWS.UsersTable)
	if err != nil {
		appLogger.Warn("DynamoDB unavailable, running without tender data", zap.Error(err))
		dynamoClient = nil
	}

	cognitoClient, err := identity.NewClient(ctx, cfg.AWS.Region, cfg.Cognito.UserPoolID)
	if err != nil {
		appLogger.Warn("Cognito unavailable, profile indirection disabled", zap.Error(err))
		cognitoClient = nil
	}

	var userStore profile.UserStore
	if dynamoClient != nil {
		userStore = dynamoClient
	}
	var idp profile.IdentityLookup
	if cognitoClient != nil {
		idp = cognitoClient
	}
	resolver := profile.NewResolver(userStore, idp)

	var scanner tender.Scanner
	if dynamoClient != nil {
		scanner = dynamoClient
	}
	cache := tender.NewCache(scanner, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)

	sessions := session.NewStore(resolver,
		cfg.Session.WindowSize,
		time.Duration(cfg.Session.IdleTimeoutMinutes)*time.Minute,
	)

	llmClient := llm.NewClient(cfg.LLM)
	engine := rank.NewEngine(cfg.Session.RankLimit)
	chatService := chat.NewService(sessions, cache, engine, llmClient)

	// Warm the snapshot so the first chat does not pay for the full scan.
	go cache.Snapshot(ctx)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	app.Use(limiter.Middleware())

	chatHandler := handlers.NewChatHandler(chatService)
	sessionHandler := handlers.NewSessionHandler(sessions)
	metaHandler := handlers.NewMetaHandler(cache, dynamoClient, llmClient, sessions)
	wsHandler := handlers.NewWebSocketHandler(chatService)

	app.Get("/", metaHandler.Root)
	app.Get("/health", metaHandler.Health)

	app.Post("/chat", chatHandler.HandleChat)

	app.Get("/session/:user_id", sessionHandler.GetSession)
	app.Get("/session-info/:user_id", sessionHandler.GetSession)
	app.Delete("/session/:user_id", sessionHandler.DeleteSession)

	app.Get("/categories", metaHandler.GetCategories)
	app.Get("/agencies", metaHandler.GetAgencies)
	app.Get("/tenders/:category", metaHandler.GetTendersByCategory)

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
