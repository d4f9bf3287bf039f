package main // Entry point package

import (
	"log" // Logging library
	"os"

	"github.com/joho/godotenv"    // Loads .env files for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"seatmap/internal/config"
	"seatmap/internal/database"
	"seatmap/internal/handler"
	"seatmap/internal/hub"
	"seatmap/internal/queue"
	"seatmap/internal/repository"
	"seatmap/internal/router"
)

func main() {
	_ = godotenv.Load() // best effort; real deployments set env directly

	cfg := config.Load() // Load environment config

	// Pick the seat store: MySQL when configured, in-memory otherwise.
	var store repository.SeatStore
	if cfg.DBHost != "" {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		store = repository.NewSeatRepo(db)
	} else {
		log.Println("no DB_HOST configured, using in-memory seat store")
		store = repository.NewMemStore()
	}

	// Redis backs the snapshot cache and the rate limiter; both turn
	// into no-ops when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, caching and rate limiting disabled")
	}

	// One hub for the whole process, torn down with it.
	h := hub.New()

	seatHandler := handler.NewSeatHandler(store, h)
	if os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != "" {
		seatHandler.Audit = true
		go func() {
			if err := queue.StartSeatAuditConsumer(); err != nil {
				log.Printf("seat-audit consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	router.RegisterRoutes(e, seatHandler, rdb, config.LoadCacheConfig(), config.LoadRateLimitConfig())

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
