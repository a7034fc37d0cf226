//go:build wireinject
// +build wireinject

package app

import (
	"log/slog"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"contract-collab-service/internal/config"
	"contract-collab-service/internal/http/handler"
	"contract-collab-service/internal/observability"
	"contract-collab-service/internal/repository"
	"contract-collab-service/internal/service"
)

func InitializeApp(
	cfg *config.Config,
	logger *slog.Logger,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	runtime *observability.Runtime,
	resolver service.IdentityResolver,
) *App {
	wire.Build(
		repository.NewSessionRepository,
		repository.NewTokenRepository,
		ProvideJWTManager,
		ProvideTokenIssuer,
		ProvidePresenceStore,
		service.NewPresenceTracker,
		ProvideCoordinator,
		wire.Bind(new(service.CoordinatorInterface), new(*service.SessionCoordinator)),
		handler.NewCollabHandler,
		handler.NewPortalHandler,
		ProvideReadiness,
		ProvideRouter,
		ProvideServer,
		New,
	)
	return nil
}
