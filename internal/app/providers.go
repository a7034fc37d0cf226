package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"contract-collab-service/internal/config"
	"contract-collab-service/internal/domain"
	"contract-collab-service/internal/health"
	"contract-collab-service/internal/http/handler"
	"contract-collab-service/internal/http/router"
	"contract-collab-service/internal/identity"
	"contract-collab-service/internal/repository"
	"contract-collab-service/internal/security"
	"contract-collab-service/internal/service"
)

// OpenDatabase connects per the configured DSN and migrates the schema.
// TranslateError is required: duplicate-key detection in the session
// repository relies on gorm.ErrDuplicatedKey across drivers.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	if cfg.DatabaseDSN != "" {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), gormCfg)
	} else {
		// dev fallback; prod profiles refuse an empty DSN at config load
		db, err = gorm.Open(sqlite.Open("file:collab_dev.db?cache=shared"), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.CollabSession{}, &domain.ExternalAccessToken{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

// NewRedisClient returns nil when no address is configured; presence then
// falls back to the in-process store.
func NewRedisClient(cfg *config.Config) redis.UniversalClient {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func ProvideIdentityResolver(cfg *config.Config) service.IdentityResolver {
	if cfg.IdentityServiceURL != "" {
		return identity.NewHTTPResolver(cfg.IdentityServiceURL)
	}
	return identity.NewPassthroughResolver()
}

func ProvideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret)
}

func ProvideTokenIssuer(tokens repository.TokenRepository, sessions repository.SessionRepository, cfg *config.Config) *service.TokenIssuer {
	return service.NewTokenIssuer(tokens, sessions, cfg.TokenPepper, cfg.CollabTokenTTL)
}

func ProvidePresenceStore(client redis.UniversalClient) service.PresenceStore {
	if client == nil {
		return service.NewInMemoryPresenceStore()
	}
	return service.NewRedisPresenceStore(client, "")
}

func ProvideCoordinator(
	sessions repository.SessionRepository,
	issuer *service.TokenIssuer,
	presence *service.PresenceTracker,
	resolver service.IdentityResolver,
	cfg *config.Config,
) *service.SessionCoordinator {
	return service.NewSessionCoordinator(sessions, issuer, presence, resolver, cfg.PortalBaseURL)
}

func ProvideReadiness(db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	probes := []health.Probe{health.DatabaseProbe(db)}
	if client != nil {
		probes = append(probes, health.RedisProbe(client))
	}
	return health.NewProbeRunner(probes...)
}

func ProvideRouter(
	collab *handler.CollabHandler,
	portal *handler.PortalHandler,
	jwtManager *security.JWTManager,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) http.Handler {
	return router.NewRouter(router.Dependencies{
		CollabHandler:      collab,
		PortalHandler:      portal,
		JWTManager:         jwtManager,
		CORSOrigins:        cfg.CORSOrigins,
		APIRateLimitRPM:    cfg.APIRateLimitRPM,
		InviteRateLimitRPM: cfg.InviteRateLimitRPM,
		Readiness:          readiness,
		EnableOTelHTTP:     cfg.OTELTracesEnabled,
	})
}

func ProvideServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
