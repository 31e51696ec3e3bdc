package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-ticketing/internal/config"
	"github.com/iliyamo/show-ticketing/internal/database"
	"github.com/iliyamo/show-ticketing/internal/handler"
	"github.com/iliyamo/show-ticketing/internal/middleware"
	"github.com/iliyamo/show-ticketing/internal/payment"
	"github.com/iliyamo/show-ticketing/internal/queue"
	"github.com/iliyamo/show-ticketing/internal/repository"
	"github.com/iliyamo/show-ticketing/internal/router"
	"github.com/iliyamo/show-ticketing/internal/service"
	"github.com/iliyamo/show-ticketing/internal/utils"
)

func main() {
	// Load .env when present; real deployments set the environment
	// directly and the file is absent.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and the public browse cache.  Both
	// degrade to pass-through middleware when it is unreachable.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	shows := repository.NewShowRepo(db)
	rsvps := repository.NewRSVPRepo(db)
	payments := repository.NewPaymentRepo(db)

	gateway := payment.NewClient(cfg.PaystackSecret, cfg.PaystackBaseURL)
	publisher := &queue.Publisher{}

	workflow := service.NewRSVPService(
		shows, rsvps, payments, gateway, publisher,
		utils.NewPaymentReference,
		cfg.BaseURL+"/v1/payments/callback",
	)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	showH := handler.NewShowHandler(shows, rsvps)
	rsvpH := handler.NewRSVPHandler(workflow, rsvps)
	payH := handler.NewPaymentHandler(workflow, gateway)
	hookH := handler.NewWebhookHandler(cfg.PaystackSecret, workflow)

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterShows(e, showH, cfg.JWTSecret,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterReservations(e, rsvpH, payH, hookH, cfg.JWTSecret)

	// Audit consumer drains the domain event queues into logs/audit.log
	// and reconnects on broker failures.
	go queue.StartAuditConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
