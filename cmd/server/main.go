package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coldreach/dripengine/internal/api"
	"github.com/coldreach/dripengine/internal/config"
	"github.com/coldreach/dripengine/internal/repository/postgres"
	"github.com/coldreach/dripengine/internal/scoring"
	"github.com/coldreach/dripengine/internal/service/schedule"
	"github.com/coldreach/dripengine/internal/tasks"
	"github.com/coldreach/dripengine/internal/trigger"
	"github.com/coldreach/dripengine/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func scoringConfig(cfg config.ScoringConfig) scoring.Config {
	sc := scoring.DefaultConfig()
	if cfg.DeliveredWeight != 0 {
		sc.DeliveredWeight = cfg.DeliveredWeight
	}
	if cfg.OpenedWeight != 0 {
		sc.OpenedWeight = cfg.OpenedWeight
	}
	if cfg.ClickedWeight != 0 {
		sc.ClickedWeight = cfg.ClickedWeight
	}
	if cfg.HotThreshold != 0 {
		sc.HotThreshold = cfg.HotThreshold
	}
	if cfg.WarmThreshold != 0 {
		sc.WarmThreshold = cfg.WarmThreshold
	}
	if cfg.DailyDecayRate != 0 {
		sc.DailyDecayRate = cfg.DailyDecayRate
	}
	if cfg.MaxDaysWithoutActivity != 0 {
		sc.MaxDaysWithoutActivity = float64(cfg.MaxDaysWithoutActivity)
	}
	return sc
}

func main() {
	log.Println("Starting ColdReach Drip Engine API...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	// The API enqueues rescore tasks when webhook events arrive. With Redis
	// configured they go to the shared queue the worker drains; without it
	// they run inline on the webhook request.
	var queue tasks.Queue
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis unreachable (%v), rescoring runs inline", err)
		} else {
			queue = tasks.NewRedisQueue(rdb)
			log.Printf("Task queue: redis (%s)", cfg.Redis.Addr)
		}
	}

	scoreCfg := scoringConfig(cfg.Scoring)
	logRepo := postgres.NewEmailLogRepo(db)
	scoreRepo := postgres.NewScoreRepo(db)
	recomputer := scoring.NewRecomputer(scoreCfg, logRepo, scoreRepo)

	if queue == nil {
		inproc := tasks.NewInProcQueue()
		scoreWorker := worker.NewScoreBatchWorker(logRepo, recomputer, inproc)
		inproc.Register(tasks.TypeRecomputeScores, scoreWorker.HandleRecomputeScores)
		queue = inproc
		log.Println("Task queue: in-process")
	}

	scheduleSvc := schedule.NewService(postgres.NewScheduleRepo(db), trigger.NewPostgresScheduler(db))
	events := worker.NewEmailEventReceiver(db, queue)

	handlers := api.NewHandlers(db, scheduleSvc, scoreRepo, recomputer, events)
	authn := api.NewAuthenticator(cfg.Auth.Keys)
	router := api.SetupRoutes(handlers, authn)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
