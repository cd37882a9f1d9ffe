package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/genius/server/internal/module/auth"
	"github.com/genius/server/internal/module/billing"
	"github.com/genius/server/internal/module/generation"
	sharedcache "github.com/genius/server/internal/shared/cache"
	"github.com/genius/server/internal/shared/config"
	"github.com/genius/server/internal/shared/database"
	"github.com/genius/server/internal/shared/httpclient"
	"github.com/genius/server/internal/shared/logger"
	"github.com/genius/server/internal/shared/metrics"
	"github.com/genius/server/internal/shared/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the external resources the application is built on.
type Deps struct {
	DB      *gorm.DB
	Redis   redis.UniversalClient
	Logger  *zap.Logger
	Gateway billing.Gateway
	// Providers replaces the configured generation providers when set.
	Providers map[generation.Kind]generation.Provider
}

// App represents the application.
type App struct {
	config  *config.Config
	db      *gorm.DB
	redis   redis.UniversalClient
	router  *gin.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics

	jwtManager        *auth.JWTManager
	billingService    *billing.Service
	billingHandler    *billing.Handler
	webhookHandler    *billing.WebhookHandler
	generationHandler *generation.Handler
}

// New creates a new application instance from configuration.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, billing.Models()...); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	// Redis is optional; without it webhook redeliveries are reprocessed.
	var redisClient redis.UniversalClient
	if cfg.Redis.Address != "" {
		redisClient, err = sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, processed-event log disabled", zap.Error(err))
			redisClient = nil
		}
	}

	gateway := billing.NewStripeGateway(&billing.StripeConfig{
		APIKey:  cfg.Stripe.APIKey,
		PriceID: cfg.Stripe.PriceID,
		Timeout: cfg.Stripe.Timeout,
	}, log)

	return Build(cfg, Deps{
		DB:      db,
		Redis:   redisClient,
		Logger:  log,
		Gateway: gateway,
	}), nil
}

// Build wires the modules and router on top of deps.
func Build(cfg *config.Config, deps Deps) *App {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	a := &App{
		config:  cfg,
		db:      deps.DB,
		redis:   deps.Redis,
		logger:  log,
		metrics: metrics.New("genius"),
	}

	a.initAuthModule()
	a.initBillingModule(deps.Gateway)
	a.initGenerationModule(deps.Providers)
	a.router = a.setupRouter()

	return a
}

func (a *App) initAuthModule() {
	a.jwtManager = auth.NewJWTManager(&auth.JWTConfig{
		Secret: a.config.Auth.JWTSecret,
		Issuer: a.config.Auth.Issuer,
		Leeway: 30 * time.Second,
	})
}

func (a *App) initBillingModule(gateway billing.Gateway) {
	log := a.logger.Named("billing")
	repo := billing.NewRepository(a.db)

	status := billing.NewSubscriptionStatus(repo, a.config.Quota.GracePeriod)
	usage := billing.NewUsageCounter(repo, a.metrics, log)
	gate := billing.NewQuotaGate(repo, status, a.config.Quota.MaxFreeCount)

	a.billingService = billing.NewService(repo, usage, status, gate, gateway,
		billing.ServiceConfig{AppURL: a.config.Stripe.AppURL}, log)
	a.billingHandler = billing.NewHandler(a.billingService, log)

	var events billing.EventLog = billing.NopEventLog{}
	if a.redis != nil {
		events = billing.NewRedisEventLog(a.redis, a.config.Stripe.EventTTL)
	}
	processor := billing.NewProcessor(repo, gateway, log)
	a.webhookHandler = billing.NewWebhookHandler(a.config.Stripe.WebhookSecret, processor, events, a.metrics, log)
}

func (a *App) initGenerationModule(override map[generation.Kind]generation.Provider) {
	log := a.logger.Named("generation")
	gen := a.config.Generation

	providers := override
	if providers == nil {
		client := httpclient.New(httpclient.Config{Timeout: gen.Timeout})
		providers = map[generation.Kind]generation.Provider{
			generation.KindMusic: generation.NewReplicateAdapter(&generation.ReplicateConfig{
				BaseURL:      gen.Replicate.BaseURL,
				APIToken:     gen.Replicate.APIToken,
				Version:      gen.Replicate.Version,
				PollInterval: gen.Replicate.PollInterval,
				HTTPClient:   client,
			}),
			generation.KindVideo: generation.NewEdenAIAdapter(&generation.EdenAIConfig{
				BaseURL:    gen.EdenAI.BaseURL,
				APIKey:     gen.EdenAI.APIKey,
				Provider:   gen.EdenAI.Provider,
				Resolution: gen.EdenAI.Resolution,
				FPS:        gen.EdenAI.FPS,
				Duration:   gen.EdenAI.Duration,
				HTTPClient: client,
			}),
		}
	}

	breakerCfg := generation.BreakerConfig{
		FailureThreshold: gen.Breaker.FailureThreshold,
		OpenTimeout:      gen.Breaker.OpenTimeout,
	}
	guarded := make(map[generation.Kind]generation.Provider, len(providers))
	for kind, p := range providers {
		guarded[kind] = generation.WithBreaker(p, breakerCfg, a.metrics, log)
	}

	service := generation.NewService(a.billingService, guarded, gen.Timeout, a.metrics, log)
	a.generationHandler = generation.NewHandler(service)
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	corsCfg := middleware.DefaultCORSConfig()
	if len(a.config.Server.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = a.config.Server.AllowOrigins
	}

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	api := r.Group("/api")

	// Stripe authenticates webhooks with a signature, not a bearer token.
	a.webhookHandler.RegisterRoutes(api)

	// Handlers answer 401 themselves so the generation checks keep their order.
	protected := api.Group("", middleware.OptionalAuth(a.jwtManager))
	a.generationHandler.RegisterRoutes(protected)
	a.billingHandler.RegisterRoutes(protected)

	return r
}

func (a *App) health(c *gin.Context) {
	if a.db != nil {
		sqlDB, err := a.db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			a.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Stop releases the application's resources.
func (a *App) Stop() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}

	if a.redis != nil {
		_ = sharedcache.Close(a.redis)
	}

	if a.db != nil {
		_ = database.Close(a.db)
	}
}
