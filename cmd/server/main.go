package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/aquapass/pool-reservation/internal/config"
	"github.com/aquapass/pool-reservation/internal/database"
	"github.com/aquapass/pool-reservation/internal/handler"
	"github.com/aquapass/pool-reservation/internal/queue"
	"github.com/aquapass/pool-reservation/internal/repository"
	"github.com/aquapass/pool-reservation/internal/router"
	"github.com/aquapass/pool-reservation/internal/scheduler"
	"github.com/aquapass/pool-reservation/internal/service"
)

func main() {
	// Load .env if present; real deployments set the variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Repositories
	sessionRepo := repository.NewSessionRepo(db)
	packageRepo := repository.NewPackageRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	poolRepo := repository.NewPoolRepo(db)
	memberRepo := repository.NewMemberRepo(db)
	calendarRepo := repository.NewCalendarRepo(db)

	// Services
	entitlements := service.NewEntitlementResolver(packageRepo, memberRepo)
	ledger := service.NewLedger(db, sessionRepo, packageRepo, reservationRepo, memberRepo, entitlements)
	availability := service.NewAvailabilityCalculator(sessionRepo, reservationRepo, poolRepo, calendarRepo, entitlements)
	sweeper := service.NewSweeper(reservationRepo, ledger)
	generator := service.NewGenerator(db, sessionRepo, poolRepo, calendarRepo, cfg.HorizonDays, cfg.MinUpcoming)
	checkin := service.NewCheckinService(cfg.JWTSecret, time.Duration(cfg.CheckinGraceMin)*time.Minute, reservationRepo, sessionRepo, ledger)

	// Handlers
	bookingHandler := handler.NewBookingHandler(ledger, checkin, reservationRepo, sessionRepo)
	availabilityHandler := handler.NewAvailabilityHandler(availability)
	checkinHandler := handler.NewCheckinHandler(checkin)
	adminHandler := handler.NewAdminHandler(sessionRepo, poolRepo, reservationRepo, ledger, sweeper, generator)

	// Redis backs the rate limiter and the availability cache.  A nil
	// client disables both; bookings still work, just without the
	// shared throttle.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterMember(e, bookingHandler, cfg.JWTSecret, rlCfg, rdb)
	router.RegisterAvailability(e, availabilityHandler, cfg.JWTSecret, cacheCfg, rdb)
	router.RegisterAdmin(e, adminHandler, checkinHandler, cfg.JWTSecret)

	// Consume reservation lifecycle events for member notifications.
	// The consumer reconnects on its own; a missing broker only costs
	// notifications.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	// Background jobs: hourly missed-reservation sweep, daily session
	// generation.
	jobs := scheduler.NewRunner(
		sweeper,
		generator,
		time.Duration(cfg.SweepIntervalMin)*time.Minute,
		time.Duration(cfg.GenerateHours)*time.Hour,
	)
	jobs.Start()
	defer jobs.Stop()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
