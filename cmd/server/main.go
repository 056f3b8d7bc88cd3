package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/mugeunji/studio-reservation/internal/clock"
	"github.com/mugeunji/studio-reservation/internal/config"
	"github.com/mugeunji/studio-reservation/internal/database"
	"github.com/mugeunji/studio-reservation/internal/handler"
	"github.com/mugeunji/studio-reservation/internal/hub"
	"github.com/mugeunji/studio-reservation/internal/ledger"
	"github.com/mugeunji/studio-reservation/internal/middleware"
	"github.com/mugeunji/studio-reservation/internal/queue"
	"github.com/mugeunji/studio-reservation/internal/router"
	"github.com/mugeunji/studio-reservation/internal/store"
	"github.com/mugeunji/studio-reservation/internal/store/memstore"
	"github.com/mugeunji/studio-reservation/internal/store/mysqlstore"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	var st store.Store
	switch cfg.StoreEngine {
	case "memory":
		st = memstore.New()
		log.Printf("using in-memory store; state is lost on restart")
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := database.Setup(ctx, db, cfg.AdminPassword, cfg.BcryptCost); err != nil {
			cancel()
			log.Fatalf("setup database: %v", err)
		}
		cancel()
		st = mysqlstore.New(db)
	}
	defer st.Close()

	clk := clock.NewFixed(cfg.TZOffsetHours)
	eng := ledger.New(st, clk, cfg.ClearExempt)

	grid := hub.New()
	eng.SetNotifier(ledger.Notifiers{grid, queue.Publisher{}})

	if cfg.ConsumeEvents {
		go queue.StartReservationConsumer()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, st),
		Reservation: handler.NewReservationHandler(eng),
		Admin:       handler.NewAdminHandler(eng),
		UserImport:  handler.NewUserImportHandler(cfg, st),
		WS:          handler.NewWSHandler(eng, grid),
		Time:        handler.NewTimeHandler(clk),
		RateLimit:   rateLimit,
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s store=%s)", addr, cfg.Env, cfg.StoreEngine)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
