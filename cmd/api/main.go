// Command api runs the community HTTP server: session-cookie auth, habit
// streaks, seat booking, and one-vote-per-member polls on MongoDB and Redis.
//
// @title        Community API
// @version      1.0
// @description  Authentication, habit streaks, seat booking, and voting for community apps.
// @BasePath     /
//
// @securityDefinitions.apikey SessionCookie
// @in   cookie
// @name community_session
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicore/community-api/internal/api"
	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/service"
	"github.com/civicore/community-api/internal/infrastructure/config"
	mongorepo "github.com/civicore/community-api/internal/infrastructure/db/mongo"
	redisconn "github.com/civicore/community-api/internal/infrastructure/db/redis"
	"github.com/civicore/community-api/internal/infrastructure/queue"
	"github.com/civicore/community-api/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	client, db, err := mongorepo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mongodb")
	}

	rdb, err := redisconn.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}

	err = mongorepo.EnsureIndexes(ctx,
		mongorepo.NewCredentialRepository(db),
		mongorepo.NewHabitRepository(db),
		mongorepo.NewBusRepository(db),
		mongorepo.NewTicketRepository(db),
		mongorepo.NewPartyRepository(db),
		mongorepo.NewVoteRepository(db),
		mongorepo.NewActivityRepository(db),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	// Bootstrap admin: created once, reserved forever. The name is reserved
	// even when the bootstrap is skipped so registration can not claim it.
	domain.ReserveUsername(cfg.Admin.Username)
	sessions := redisconn.NewSessionStore(rdb, cfg.SessionTTL)
	authService := service.NewAuthService(mongorepo.NewCredentialRepository(db), sessions, cfg.BcryptCost, log)
	if cfg.Admin.Password == "" {
		log.Warn().Msg("ADMIN_PASSWORD not set, skipping admin bootstrap")
	} else if err := authService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	// Audit trail runs on its own context so workers drain during shutdown
	// only when asked to.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, mongorepo.NewActivityRepository(db), logger.Component("audit"))
	dispatcher.Start(auditCtx)

	e := api.NewRouter(db, rdb, cfg, dispatcher, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("community api started")

	waitForShutdown(e, client, rdb, stopAudit)
}

func waitForShutdown(e *echo.Echo, client *mongo.Client, rdb *goredis.Client, stopAudit context.CancelFunc) {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	stopAudit()

	if err := client.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect error")
	}
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close error")
	}

	log.Info().Msg("server exited cleanly")
}
