// internal/app/server.go
package app

import (
	"fmt"
	"log"

	"bundl-service/internal/chain"
	"bundl-service/internal/config"
	"bundl-service/internal/db"
	authHandler "bundl-service/internal/handlers/auth"
	bundleHandler "bundl-service/internal/handlers/bundle"
	catalogHandler "bundl-service/internal/handlers/catalog"
	paymentHandler "bundl-service/internal/handlers/payment"
	subscriptionHandler "bundl-service/internal/handlers/subscription"
	"bundl-service/internal/middleware"
	"bundl-service/internal/pkg/jwt"
	"bundl-service/internal/pkg/session"
	"bundl-service/internal/pricing"
	"bundl-service/internal/repository/postgres"
	authUsecase "bundl-service/internal/service/auth"
	bundleUsecase "bundl-service/internal/service/bundle"
	catalogUsecase "bundl-service/internal/service/catalog"
	paymentUsecase "bundl-service/internal/service/payment"
	subscriptionUsecase "bundl-service/internal/service/subscription"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.Default()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	// ----- PostgreSQL -----
	pool, err := db.ConnectDB()
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		log.Fatalf("[REDIS] ❌ Failed to connect to Redis: %v", err)
	}
	log.Println("[REDIS] ✅ Connected successfully")

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Chain -----
	programID, err := solana.PublicKeyFromBase58(s.cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("invalid PROGRAM_ID: %w", err)
	}
	mint, err := solana.PublicKeyFromBase58(s.cfg.USDCMint)
	if err != nil {
		return fmt.Errorf("invalid USDC_MINT: %w", err)
	}
	authority, err := solana.PrivateKeyFromBase58(s.cfg.AuthorityPrivateKey)
	if err != nil {
		return fmt.Errorf("invalid AUTHORITY_PRIVATE_KEY: %w", err)
	}

	chainClient := chain.NewClient(s.cfg.RPCURL, logger)
	deriver := chain.NewDeriver(programID, mint)
	builder := chain.NewInstructionBuilder(deriver)
	verifier := chain.NewVerifier(chainClient, deriver, logger)

	// ----- Session Manager & Rate Limiter -----
	nonceStore := session.NewNonceStore(redisClient)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Repositories -----
	serviceRepo := postgres.NewServiceRepository(pool)
	bundleRepo := postgres.NewBundleRepository(pool)
	subscriptionRepo := postgres.NewUserSubscriptionRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// ----- Services (Usecases) -----
	authService := authUsecase.NewAuthService(userRepo, nonceStore, rateLimiter, jwtManager, logger)
	catalogService := catalogUsecase.NewCatalogService(serviceRepo, logger)
	engine := pricing.NewEngine(catalogService)
	bundleService := bundleUsecase.NewBundleService(bundleRepo, engine, logger)
	subscriptionService := subscriptionUsecase.NewSubscriptionService(
		subscriptionRepo,
		bundleRepo,
		chainClient,
		chainClient,
		deriver,
		builder,
		authority,
		logger,
	)
	orchestrator := paymentUsecase.NewOrchestrator(
		subscriptionRepo,
		bundleRepo,
		userRepo,
		verifier,
		chainClient,
		deriver,
		builder,
		authority,
		logger,
	)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authService, logger)
	catalogHandlerInst := catalogHandler.NewCatalogHandler(catalogService)
	bundleHandlerInst := bundleHandler.NewBundleHandler(bundleService)
	subscriptionHandlerInst := subscriptionHandler.NewSubscriptionHandler(subscriptionService)
	paymentHandlerInst := paymentHandler.NewPaymentHandler(orchestrator)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(jwtManager.Verifier)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(rateLimiter)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:         authHandlerInst,
		CatalogHandler:      catalogHandlerInst,
		BundleHandler:       bundleHandlerInst,
		SubscriptionHandler: subscriptionHandlerInst,
		PaymentHandler:      paymentHandlerInst,
		AuthMiddleware:      authMiddleware,
		RateLimit:           rateLimitMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("🚀 Server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}
