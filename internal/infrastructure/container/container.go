// Package container provides dependency injection using Uber FX
package container

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	appchat "github.com/huynhbao103/dietchat/internal/application/chat"
	"github.com/huynhbao103/dietchat/internal/infrastructure/ai/langgraph"
	"github.com/huynhbao103/dietchat/internal/infrastructure/chatstore"
	"github.com/huynhbao103/dietchat/internal/infrastructure/config"
	"github.com/huynhbao103/dietchat/internal/infrastructure/environment"
	"github.com/huynhbao103/dietchat/internal/infrastructure/http/server"
	"github.com/huynhbao103/dietchat/internal/infrastructure/monitoring"
	"github.com/huynhbao103/dietchat/internal/infrastructure/persistence/memory"
	redisrepo "github.com/huynhbao103/dietchat/internal/infrastructure/persistence/redis"
	"github.com/huynhbao103/dietchat/internal/ports/outbound"
	"github.com/huynhbao103/dietchat/pkg/logger"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	CacheModule,
	ClientModule,
	ApplicationModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// MonitoringModule provides metrics
var MonitoringModule = fx.Provide(
	monitoring.NewMetrics,
)

// CacheModule provides caching, redis when enabled and reachable,
// in-memory otherwise
var CacheModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) outbound.CacheRepository {
		if cfg.Redis.Enable {
			client, err := redisrepo.NewClient(cfg)
			if err != nil {
				log.Warn("Redis unavailable, falling back to in-memory cache",
					zap.String("addr", cfg.RedisAddr()),
					zap.Error(err))
			} else {
				log.Info("Using redis cache", zap.String("addr", cfg.RedisAddr()))
				return redisrepo.NewCacheRepository(client, log)
			}
		}
		log.Info("Using in-memory cache")
		return memory.NewCacheRepository()
	},
)

// ClientModule provides outbound service clients
var ClientModule = fx.Provide(
	// Recommendation backend
	func(cfg *config.Config, log *zap.Logger, metrics *monitoring.Metrics) outbound.RecommendationService {
		return langgraph.NewClient(cfg.Recommend, log, metrics)
	},

	// Chat storage collaborator
	func(cfg *config.Config, log *zap.Logger) outbound.ChatStore {
		return chatstore.NewClient(cfg.ChatStore, log)
	},

	// Environment probe
	func(cfg *config.Config, cache outbound.CacheRepository, log *zap.Logger) outbound.EnvironmentSource {
		weather := environment.NewWeatherClient(cfg.Environment, log)
		return environment.NewProbe(cfg.Environment, weather, cache, log)
	},
)

// ApplicationModule provides the conversation orchestration layer
var ApplicationModule = fx.Provide(
	func(cfg *config.Config, store outbound.ChatStore, log *zap.Logger, metrics *monitoring.Metrics) *appchat.Scheduler {
		return appchat.NewScheduler(
			store,
			cfg.Persist.DebounceInterval,
			cfg.Persist.SaveCooldown,
			log,
			metrics,
		)
	},

	func(
		recommend outbound.RecommendationService,
		env outbound.EnvironmentSource,
		scheduler *appchat.Scheduler,
		log *zap.Logger,
	) *appchat.Orchestrator {
		return appchat.NewOrchestrator(recommend, env, scheduler, log)
	},
)

// HTTPModule provides the HTTP server
var HTTPModule = fx.Provide(
	server.NewServer,
)

// LifecycleModule registers application lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks starts the HTTP server and flushes the transcript
// scheduler on shutdown
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	scheduler *appchat.Scheduler,
	srv *server.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting application",
				zap.String("app", cfg.App.Name),
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			go func() {
				if err := srv.Start(); err != nil {
					log.Fatal("Failed to start HTTP server", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down application")

			if err := srv.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			// Let an in-flight transcript save finish before exiting.
			scheduler.Wait()
			scheduler.Stop()

			_ = log.Sync()
			return nil
		},
	})
}
