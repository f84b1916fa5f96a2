package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"nodeproof-backend/internal/common/config"
	"nodeproof-backend/internal/common/logger"
	"nodeproof-backend/internal/common/middleware"
	"nodeproof-backend/internal/common/ratelimit"
	"nodeproof-backend/internal/features/moderation"
	noderedis "nodeproof-backend/internal/features/node/repository/redis"
	tierhttp "nodeproof-backend/internal/features/tier/delivery/http"
	tierservice "nodeproof-backend/internal/features/tier/service"
	verificationhttp "nodeproof-backend/internal/features/verification/delivery/http"
	"nodeproof-backend/internal/features/verification/models"
	verificationredis "nodeproof-backend/internal/features/verification/repository/redis"
	verificationservice "nodeproof-backend/internal/features/verification/service"
	redisplatform "nodeproof-backend/internal/platform/redis"
	"nodeproof-backend/internal/workers"
)

// @title           Node Proof API
// @version         1.0
// @description     Decentralized node ownership verification and trust tiers.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerToken
// @in header
// @name Authorization
// @description Operator session token

// @tag.name verification
// @tag.description Challenge issuance, proof submission and challenge lifecycle

// @tag.name tier
// @tag.description Trust tier assessment derived from verification and liveness facts

// @tag.name admin
// @tag.description Moderation decisions applied to verifications awaiting approval

func main() {
	cfg := config.Load()

	logger.Init("nodeproof-backend", cfg.Debug)
	log := logger.With("app")
	log.Info().Bool("debug", cfg.Debug).Msg("Starting node proof backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisplatform.Open(ctx, fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connection established")

	challengeRepo := verificationredis.NewChallengeRepository(rdb)
	bindingRepo := verificationredis.NewBindingRepository(rdb)
	factsRepo := noderedis.NewFactsRepository(rdb)

	limiter := ratelimit.NewRedisLimiter(rdb)
	queue := moderation.NewStreamQueue(rdb, logger.With("moderation"))

	enabled := make([]models.Method, 0, len(cfg.Verification.EnabledMethods))
	for _, m := range cfg.Verification.EnabledMethods {
		enabled = append(enabled, models.Method(m))
	}

	engine := verificationservice.NewEngine(
		verificationservice.Config{
			EnabledMethods: enabled,
			ChallengeTTL:   cfg.Verification.ChallengeTTL,
			Chain: verificationservice.ChainParams{
				MessageMagic:   cfg.Chain.MessageMagic,
				AddressVersion: cfg.Chain.AddressVersion,
			},
			DNS: verificationservice.DNSConfig{
				Resolver: cfg.Verification.DNSResolver,
				Timeout:  cfg.Verification.DNSTimeout,
			},
			InitiateLimit: ratelimit.Limit{Max: cfg.RateLimit.InitiatePerHour, Window: time.Hour},
			CompleteLimit: ratelimit.Limit{Max: cfg.RateLimit.CompletePerHour, Window: time.Hour},
		},
		challengeRepo,
		bindingRepo,
		factsRepo,
		limiter,
		queue,
		clock.New(),
		logger.With("verification"),
	)

	tierSvc := tierservice.NewService(
		tierservice.NewScorer(nil),
		tierservice.VersionConfig{Current: cfg.Tier.CurrentVersion, Minimum: cfg.Tier.MinimumVersion},
		bindingRepo,
		factsRepo,
		clock.New(),
		logger.With("tier"),
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler(logger.With("http")))
	router.Use(gin.Recovery())
	router.Use(middleware.Auth(rdb))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	verificationhttp.NewHandler(engine).RegisterRoutes(v1, cfg.Admin.IDs)
	tierhttp.NewHandler(tierSvc).RegisterRoutes(v1)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "nodeproof-backend",
		})
	})

	sweeper := workers.NewExpirySweeper(engine, cfg.Verification.SweepInterval, logger.With("expiry"))
	sweeper.Start()
	defer sweeper.Stop()

	go workers.NewCrawlerStreamWorker(rdb, engine, logger.With("crawler")).Start(ctx)
	go workers.NewDecisionStreamWorker(rdb, engine, logger.With("decisions")).Start(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("Server exited")
}
