package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/coldreach/dripengine/internal/config"
	"github.com/coldreach/dripengine/internal/mailer"
	"github.com/coldreach/dripengine/internal/pkg/distlock"
	"github.com/coldreach/dripengine/internal/repository/postgres"
	"github.com/coldreach/dripengine/internal/scoring"
	"github.com/coldreach/dripengine/internal/tasks"
	"github.com/coldreach/dripengine/internal/trigger"
	"github.com/coldreach/dripengine/internal/worker"

	_ "github.com/lib/pq"
)

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

// withLock runs fn only on the instance that wins the named lock. Cron jobs
// are scheduled on every worker replica; the lock keeps each run singular.
func withLock(db *sql.DB, rdb *redis.Client, key string, fn func(ctx context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		lock := distlock.NewLock(rdb, db, key, 15*time.Minute)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			log.Printf("[Cron] %s: lock error: %v", key, err)
			return
		}
		if !ok {
			log.Printf("[Cron] %s: another instance holds the lock, skipping", key)
			return
		}
		defer lock.Release(ctx)

		fn(ctx)
	}
}

func main() {
	log.Println("Starting ColdReach Drip Worker...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Outbound sender: SES when enabled, otherwise log-only dry runs.
	var sender mailer.Sender
	if cfg.SES.Enabled {
		sesSender, err := mailer.NewSESSender(context.Background(),
			cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region)
		if err != nil {
			log.Fatalf("Failed to initialize SES sender: %v", err)
		}
		sender = sesSender
		log.Printf("SES sender initialized (region %s)", cfg.SES.Region)
	} else {
		sender = &mailer.DryRunSender{}
		log.Println("SES disabled, sends are dry runs")
	}

	scoreCfg := scoringConfig(cfg.Scoring)
	logRepo := postgres.NewEmailLogRepo(db)
	scoreRepo := postgres.NewScoreRepo(db)
	recomputer := scoring.NewRecomputer(scoreCfg, logRepo, scoreRepo)
	decayWorker := worker.NewDecayWorker(scoreRepo, scoreCfg)

	// Rescore task queue: Redis-backed pool when configured, in-process
	// otherwise. The in-process fallback runs tasks on the enqueuing
	// goroutine, which is fine for a single-instance deployment.
	var (
		rdb         *redis.Client
		pool        *tasks.Pool
		scoreWorker *worker.ScoreBatchWorker
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to ping Redis at %s: %v", cfg.Redis.Addr, err)
		}
		redisQueue := tasks.NewRedisQueue(rdb)
		scoreWorker = worker.NewScoreBatchWorker(logRepo, recomputer, redisQueue)
		scoreWorker.SetBatchSize(cfg.Workers.ScoreBatchSize)

		pool = tasks.NewPool(rdb, cfg.Workers.TaskPoolSize)
		pool.Register(tasks.TypeRecomputeScores, scoreWorker.HandleRecomputeScores)
		pool.Start()
		log.Printf("Task pool started (%d workers, redis %s)", cfg.Workers.TaskPoolSize, cfg.Redis.Addr)
	} else {
		inproc := tasks.NewInProcQueue()
		scoreWorker = worker.NewScoreBatchWorker(logRepo, recomputer, inproc)
		scoreWorker.SetBatchSize(cfg.Workers.ScoreBatchSize)
		inproc.Register(tasks.TypeRecomputeScores, scoreWorker.HandleRecomputeScores)
		log.Println("Task queue: in-process (no Redis configured)")
	}

	// Trigger dispatcher fires due drip sends.
	sendHandler := worker.NewSendHandler(db, mailer.NewRenderer(), sender,
		cfg.Mailer.FromEmail, cfg.Mailer.FromName)
	dispatcher := worker.NewTriggerDispatcher(db)
	dispatcher.SetPollInterval(time.Duration(cfg.Workers.DispatcherPollSeconds) * time.Second)
	dispatcher.SetBatchSize(cfg.Workers.DispatcherBatchSize)
	dispatcher.Register(trigger.HandlerSendEmail, sendHandler.HandleSendEmail)
	if err := dispatcher.Start(); err != nil {
		log.Fatalf("Failed to start trigger dispatcher: %v", err)
	}
	log.Println("Trigger dispatcher started")

	// Scheduled maintenance: nightly batch rescore, hourly decay sweep.
	c := cron.New()
	if _, err := c.AddFunc(cfg.Workers.ScoreCron, withLock(db, rdb, "cron:score_batch", func(ctx context.Context) {
		batches, err := scoreWorker.EnqueueAll(ctx)
		if err != nil {
			log.Printf("[Cron] score batch enqueue failed: %v", err)
			return
		}
		log.Printf("[Cron] enqueued %d rescore batches", batches)
	})); err != nil {
		log.Fatalf("Invalid score cron %q: %v", cfg.Workers.ScoreCron, err)
	}
	if _, err := c.AddFunc(cfg.Workers.DecayCron, withLock(db, rdb, "cron:score_decay", func(ctx context.Context) {
		n, err := decayWorker.RunOnce(ctx)
		if err != nil {
			log.Printf("[Cron] decay sweep failed: %v", err)
			return
		}
		log.Printf("[Cron] decay sweep updated %d scores", n)
	})); err != nil {
		log.Fatalf("Invalid decay cron %q: %v", cfg.Workers.DecayCron, err)
	}
	c.Start()
	log.Printf("Cron started (score %q, decay %q)", cfg.Workers.ScoreCron, cfg.Workers.DecayCron)

	log.Println("Worker running...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cronCtx := c.Stop()
	<-cronCtx.Done()
	dispatcher.Stop()
	if pool != nil {
		pool.Stop()
	}
	log.Println("Worker stopped")
}
