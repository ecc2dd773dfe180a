package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/civicore/community-api/docs"
	"github.com/civicore/community-api/internal/api/handler"
	"github.com/civicore/community-api/internal/api/middleware"
	"github.com/civicore/community-api/internal/core/domain"
	"github.com/civicore/community-api/internal/core/ports"
	"github.com/civicore/community-api/internal/core/service"
	"github.com/civicore/community-api/internal/infrastructure/config"
	mongorepo "github.com/civicore/community-api/internal/infrastructure/db/mongo"
	redisstore "github.com/civicore/community-api/internal/infrastructure/db/redis"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// recorder is the async audit-trail sink; it is constructed and started by the
// caller so its worker lifecycle is tied to the process, not the router.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, recorder ports.ActivityRecorder, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("community"))

	// --- Dependencies ---
	sessions := redisstore.NewSessionStore(rdb, cfg.SessionTTL)

	authService := service.NewAuthService(mongorepo.NewCredentialRepository(db), sessions, cfg.BcryptCost, log)
	habitService := service.NewHabitService(mongorepo.NewHabitRepository(db), recorder, log)
	bookingService := service.NewBookingService(mongorepo.NewBusRepository(db), mongorepo.NewTicketRepository(db), recorder, log)
	voteService := service.NewVoteService(mongorepo.NewPartyRepository(db), mongorepo.NewVoteRepository(db), recorder, log)

	secureCookies := cfg.Env == "production"
	authHandler := handler.NewAuthHandler(authService, secureCookies)
	habitHandler := handler.NewHabitHandler(habitService)
	busHandler := handler.NewBusHandler(bookingService)
	ticketHandler := handler.NewTicketHandler(bookingService)
	voteHandler := handler.NewVoteHandler(voteService)

	requireSession := middleware.Session(sessions)
	optionalSession := middleware.OptionalSession(sessions)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout, optionalSession)
	e.GET("/auth/me", authHandler.Me, requireSession)
	e.PUT("/auth/password", authHandler.ChangePassword, requireSession)

	// --- Habit routes (owner-scoped, session required) ---
	habits := e.Group("/habits", requireSession)
	habits.GET("", habitHandler.List)
	habits.POST("", habitHandler.Create)
	habits.PUT("/:id", habitHandler.Rename)
	habits.DELETE("/:id", habitHandler.Delete)
	habits.POST("/:id/complete", habitHandler.Complete)

	// --- Bus fleet (public listing, admin mutations) ---
	e.GET("/buses", busHandler.List)
	e.POST("/buses", busHandler.Create, requireSession, adminOnly)
	e.PUT("/buses/:id", busHandler.Update, requireSession, adminOnly)
	e.DELETE("/buses/:id", busHandler.Delete, requireSession, adminOnly)

	// --- Tickets ---
	tickets := e.Group("/tickets", requireSession)
	tickets.GET("", ticketHandler.Mine)
	tickets.POST("", ticketHandler.Book)
	tickets.POST("/:id/cancel", ticketHandler.Cancel)

	// --- Parties (public reads, admin mutations) ---
	e.GET("/parties", voteHandler.ListParties)
	e.GET("/parties/:id", voteHandler.GetParty)
	e.POST("/parties", voteHandler.CreateParty, requireSession, adminOnly)
	e.PUT("/parties/:id", voteHandler.UpdateParty, requireSession, adminOnly)
	e.DELETE("/parties/:id", voteHandler.DeleteParty, requireSession, adminOnly)

	// --- Votes ---
	e.GET("/votes/tally", voteHandler.Tallies)
	e.POST("/votes", voteHandler.Cast, requireSession)
	e.DELETE("/votes", voteHandler.Revoke, requireSession)
	e.GET("/votes/mine", voteHandler.Mine, requireSession)

	// --- Admin reports ---
	admin := e.Group("/admin", requireSession, adminOnly)
	admin.GET("/tickets", ticketHandler.All)
	admin.GET("/votes", voteHandler.All)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // are dependencies up?

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
