package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/quotahub/saas-auth-api/internal/config"
	"github.com/quotahub/saas-auth-api/internal/database"
	"github.com/quotahub/saas-auth-api/internal/handler"
	appmw "github.com/quotahub/saas-auth-api/internal/middleware"
	"github.com/quotahub/saas-auth-api/internal/model"
	"github.com/quotahub/saas-auth-api/internal/queue"
	"github.com/quotahub/saas-auth-api/internal/quota"
	"github.com/quotahub/saas-auth-api/internal/repository"
	"github.com/quotahub/saas-auth-api/internal/router"
	queue_publisher "github.com/quotahub/saas-auth-api/internal/service"
	"github.com/quotahub/saas-auth-api/internal/usage"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Pool{
		MaxOpen:     cfg.DBMaxOpen,
		MaxIdle:     cfg.DBMaxIdle,
		MaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; minute-window rate limiting and response cache disabled")
	}

	users := repository.NewUserRepo(db)
	rateLimits := repository.NewRateLimitRepo(db)
	usageRepo := repository.NewUsageRepo(db)
	subs := repository.NewSubscriptionRepo(db)

	// Seed the default admin account so a fresh deployment is manageable.
	seedCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := users.SeedAdmin(seedCtx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	cancel()

	var counters quota.Store
	if rdb != nil {
		counters = quota.NewRedisStore(rdb)
	}
	limiter := quota.NewLimiter(users, counters, rateLimits)

	recorder := usage.NewRecorder(usageRepo, func(_ context.Context, ev model.UsageLog) {
		event := queue.UsageRecordedEvent{
			UsageID:        ev.ID,
			UserID:         ev.UserID,
			Endpoint:       ev.Endpoint,
			Method:         ev.Method,
			StatusCode:     ev.StatusCode,
			ResponseTimeMS: ev.ResponseTimeMS,
			RecordedAt:     ev.Timestamp.Format(time.RFC3339),
		}
		// Fire and forget; the event stream is best-effort by design.
		go func() { _ = queue_publisher.PublishUsageRecorded(context.Background(), event) }()
	})

	// Background consumer writes the usage event stream to logs/usage.log.
	go func() {
		if err := queue.StartUsageConsumer(); err != nil {
			log.Printf("usage consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(appmw.Gate(cfg.JWTSecret, users, limiter, recorder))

	cacheMW := appmw.NewRedisCache(config.LoadCacheConfig(), rdb)

	authH := handler.NewAuthHandler(cfg, users)
	userH := handler.NewUserHandler(recorder)
	adminH := handler.NewAdminHandler(users, usageRepo, recorder)
	billingH := handler.NewBillingHandler(users, rateLimits, subs)

	router.RegisterPublic(e, billingH, cacheMW)
	router.RegisterAuth(e, authH)
	router.RegisterUsers(e, userH, billingH)
	router.RegisterAdmin(e, adminH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
