package container

import (
	"time"

	"telemetry-be/internal/aggregator"
	"telemetry-be/internal/config"
	"telemetry-be/internal/middleware"
	"telemetry-be/internal/service"
	"telemetry-be/internal/store"
	"telemetry-be/pkg/logger"
	"telemetry-be/pkg/redis"
)

// redisRateWindow is the fixed window for the Redis-backed rate limiter;
// RateLimitPerMin counts against it
const redisRateWindow = time.Minute

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	Store       *store.FileStore
	Aggregator  *aggregator.Aggregator
	Services    *service.Services
	Verifier    middleware.TokenVerifier
	Limiter     middleware.Limiter
}

// New creates a new dependency injection container
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	// Initialize Redis client if a Redis URL is configured; the rate
	// limiter falls back to an in-process one otherwise
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, using in-process rate limiting")
		} else {
			redisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, using in-process rate limiting")
	}

	fileStore, err := store.NewFileStore(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}

	agg := aggregator.New()

	services := &service.Services{
		Telemetry: service.NewTelemetryService(fileStore, agg, log),
		Reports:   service.NewReportService(fileStore, agg, log),
	}

	// Export gate: HS256 JWTs when a secret is configured, else the
	// static shared token
	var verifier middleware.TokenVerifier
	if cfg.ExportJWTSecret != "" {
		verifier = middleware.NewJWTVerifier(cfg.ExportJWTSecret)
		log.Info("Export gate using JWT verification")
	} else {
		verifier = middleware.NewStaticTokenVerifier(cfg.ExportToken)
		log.Info("Export gate using static token verification")
	}

	var limiter middleware.Limiter
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient, cfg.RateLimitPerMin, redisRateWindow, log)
	} else {
		limiter = middleware.NewLocalLimiter(cfg.RateLimitPerMin)
	}

	return &Container{
		Config:      cfg,
		Logger:      log,
		RedisClient: redisClient,
		Store:       fileStore,
		Aggregator:  agg,
		Services:    services,
		Verifier:    verifier,
		Limiter:     limiter,
	}, nil
}

// GetTelemetryService returns the telemetry ingestion service
func (c *Container) GetTelemetryService() service.TelemetryService {
	return c.Services.Telemetry
}

// GetReportService returns the reporting service
func (c *Container) GetReportService() service.ReportService {
	return c.Services.Reports
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HasRedis returns true if a Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
