package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/safishield/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/safishield/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/safishield/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/safishield/internal/audit"
	"github.com/saturnino-fabrica-de-software/safishield/internal/service"
	"github.com/saturnino-fabrica-de-software/safishield/internal/ws"
)

// Dependencies are the services the routes are served from
type Dependencies struct {
	Biometrics   *service.BiometricService
	Transactions *service.TransactionService
	Events       *audit.Log
	Hub          *ws.Hub
	Sessions     *ws.Sessions
	SeedIccid    string
	// DB is nil when no component uses PostgreSQL
	DB handler.Pinger
}

type Router struct {
	app     *fiber.App
	logger  *slog.Logger
	deps    *Dependencies
	limiter *middleware.RateLimiter
	stopHub context.CancelFunc
}

// NewRouter creates the Fiber app. A nil deps serves only health and docs.
func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "SafiShield API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

// Setup registers middleware and routes
func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var db handler.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// only health and docs are served without dependencies
	if r.deps == nil {
		return
	}

	users := r.app.Group("/v1/users/:user_id")

	biometricHandler := handler.NewBiometricHandler(r.deps.Biometrics, r.logger)
	users.Get("/templates", biometricHandler.ListTemplates)
	users.Post("/templates/:method", biometricHandler.ImportTemplate)
	users.Delete("/templates/:method", biometricHandler.ResetTemplate)
	users.Delete("/templates", biometricHandler.ResetAll)
	users.Get("/settings", biometricHandler.GetSettings)
	users.Put("/settings", biometricHandler.UpdateSettings)

	// challenge answers are brute-forceable, so they are limited per user
	r.limiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	attempts := r.limiter.Handler()

	txHandler := handler.NewTransactionHandler(r.deps.Transactions, r.deps.SeedIccid, r.logger)
	users.Get("/profile", txHandler.Profile)
	users.Post("/risk/assess", txHandler.Assess)
	users.Post("/transactions", txHandler.Submit)
	users.Get("/transactions", txHandler.History)
	users.Get("/transactions/:id", txHandler.GetChallenge)
	users.Post("/transactions/:id/pin", attempts, txHandler.VerifyPIN)
	users.Post("/transactions/:id/otp", attempts, txHandler.VerifyOTP)
	users.Get("/alerts", txHandler.Alerts)
	users.Post("/simulate/sim-swap", txHandler.SimulateSimSwap)
	users.Post("/simulate/rapid-transfers", txHandler.SimulateRapidTransfers)

	eventHandler := handler.NewEventHandler(r.deps.Events)
	users.Get("/security-events", eventHandler.List)
	users.Delete("/security-events", eventHandler.Clear)

	if r.deps.Hub != nil {
		hubCtx, cancel := context.WithCancel(context.Background())
		r.stopHub = cancel
		go r.deps.Hub.Run(hubCtx)
	}

	live := users.Group("/ws", ws.UpgradeMiddleware())
	if r.deps.Hub != nil {
		live.Get("/events", ws.Handler(r.deps.Hub))
	}
	if r.deps.Sessions != nil {
		live.Get("/enroll/:method", r.deps.Sessions.Enroll())
		live.Get("/verify/:method", r.deps.Sessions.Verify())
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown stops the server first so no handler is left waiting on the hub
func (r *Router) Shutdown() error {
	err := r.app.Shutdown()
	if r.stopHub != nil {
		r.stopHub()
	}
	if r.limiter != nil {
		r.limiter.Stop()
	}
	return err
}
