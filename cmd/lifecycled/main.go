package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/analytics"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/api"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/cache"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/circuitbreaker"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/config"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/digest"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/dispatcher"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/leaderelection"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/metrics"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/scheduler"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/store/postgres"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/transport/channel"

	_ "github.com/lib/pq"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`lifecycled - campus event lifecycle scheduler

Usage:
  lifecycled <command>

Commands:
  serve      Start the scheduler, API, and notification dispatcher
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  DATABASE_URL              PostgreSQL connection string (required)
  REDIS_ADDR                Redis address for caching and analytics (optional)
  HTTP_ADDR                 HTTP server address (default: ":8080")
  WAKE_INTERVAL             Scheduler wake cadence (default: "10s")
  MAX_DOWNTIME              Missed-trigger recovery window (default: "24h")

  DB_OP_TIMEOUT             Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS         Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS         Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME      Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME     Max connection idle time (default: "5m")

  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")
  DISPATCHER_DRAIN_TIMEOUT  Notification drain timeout (default: "30s")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")

  NOTIFY_WEBHOOK_URL        Notification webhook endpoint (optional)
  NOTIFY_WEBHOOK_SECRET     HMAC secret for webhook signatures (optional)
  NOTIFY_WEBHOOK_TIMEOUT    Per-request webhook timeout (default: "30s")
  EVENTBUS_BUFFER_SIZE      Status change buffer size (default: "100")
  CIRCUIT_BREAKER_THRESHOLD Consecutive failures before skipping (default: "5", 0 disables)
  CIRCUIT_BREAKER_COOLDOWN  Circuit open duration (default: "2m")

  DIGEST_ENABLED            Enable daily digest webhook (default: "false")
  DIGEST_SCHEDULE           Digest cron expression (default: "0 7 * * *")

  LEADER_ENABLED            Enable advisory-lock leader election (default: "false")
  LEADER_LOCK_KEY           Advisory lock key shared by all instances
  LEADER_RETRY_INTERVAL     Follower acquisition retry interval (default: "5s")
  LEADER_HEARTBEAT_INTERVAL Leader connection ping interval (default: "2s")`)
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	log.Printf("lifecycled: db pool configured (max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s)",
		cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		return exitRuntimeError
	}

	store := postgres.New(db)

	// Initialize metrics sink (optional)
	var metricsSink *metrics.PrometheusSink
	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Printf("lifecycled: metrics enabled (path=%s)", cfg.MetricsPath)
	} else {
		log.Println("lifecycled: METRICS_ENABLED not set; metrics disabled")
	}

	// Status change bus feeding the notification dispatcher
	var busOpts []channel.Option
	if metricsSink != nil {
		busOpts = append(busOpts, channel.WithMetrics(metricsSink))
	}
	bus := channel.NewEventBus(cfg.EventBusBufferSize, busOpts...)

	engine := scheduler.New(
		scheduler.Config{
			WakeInterval: cfg.WakeInterval,
			MaxDowntime:  cfg.MaxDowntime,
		},
		store,
	).WithEmitter(bus)
	if metricsSink != nil {
		engine = engine.WithMetrics(metricsSink)
	}

	// Redis wires two optional concerns: platform cache invalidation and
	// transition analytics.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		engine = engine.WithEmitter(cache.NewInvalidator(redisClient))
		log.Printf("lifecycled: cache invalidation enabled (redis=%s)", cfg.RedisAddr)
	} else {
		log.Println("lifecycled: REDIS_ADDR not set; cache invalidation and analytics disabled")
	}

	disp := dispatcher.New(
		dispatcher.Config{
			WebhookURL:   cfg.NotifyWebhookURL,
			Secret:       cfg.NotifyWebhookSecret,
			Timeout:      cfg.NotifyWebhookTimeout,
			DrainTimeout: cfg.DispatcherDrainTimeout,
		},
		store,
		dispatcher.NewHTTPWebhookSender(),
	)
	if metricsSink != nil {
		disp = disp.WithMetrics(metricsSink)
	}
	if redisClient != nil {
		disp = disp.WithAnalytics(analytics.NewRedisSink(redisClient))
	}
	if cfg.CircuitBreakerThreshold > 0 {
		disp = disp.WithBreaker(circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown))
	}
	if cfg.NotifyWebhookURL == "" {
		log.Println("lifecycled: NOTIFY_WEBHOOK_URL not set; notifications disabled")
	}

	// HTTP server: API plus the metrics endpoint when enabled
	mux := http.NewServeMux()
	if metricsSink != nil {
		mux.Handle(cfg.MetricsPath, promhttp.Handler())
	}
	mux.Handle("/", api.NewHandler(store, engine).WithHealthChecker(db))

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("lifecycled: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("lifecycled: http server error: %v", err)
		}
	}()

	// Dispatcher and digest run on their own contexts so shutdown can be
	// ordered: scheduler first, then drain, then the servers.
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	var dispatcherWg sync.WaitGroup

	dispatcherWg.Add(1)
	go func() {
		defer dispatcherWg.Done()
		disp.Run(dispatcherCtx, bus.Channel())
	}()

	var digestWg sync.WaitGroup
	var cancelDigest context.CancelFunc
	if cfg.DigestEnabled {
		dig, err := digest.New(
			digest.Config{
				WebhookURL: cfg.NotifyWebhookURL,
				Secret:     cfg.NotifyWebhookSecret,
				Timeout:    cfg.NotifyWebhookTimeout,
			},
			store,
			cfg.DigestSchedule,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start digest: %v\n", err)
			return exitRuntimeError
		}
		var digestCtx context.Context
		digestCtx, cancelDigest = context.WithCancel(context.Background())
		defer cancelDigest()
		digestWg.Add(1)
		go func() {
			defer digestWg.Done()
			dig.Run(digestCtx)
		}()
		log.Printf("lifecycled: digest enabled (schedule=%q)", cfg.DigestSchedule)
	}

	// The scheduler either runs unconditionally or only while holding the
	// leader lock.
	electionCtx, cancelElection := context.WithCancel(context.Background())
	defer cancelElection()
	var electionWg sync.WaitGroup

	if cfg.LeaderEnabled {
		elector := leaderelection.New(
			db,
			cfg.LeaderLockKey,
			cfg.LeaderRetryInterval,
			cfg.LeaderHeartbeatInterval,
			func(ctx context.Context) {
				if err := engine.Start(ctx); err != nil {
					log.Printf("lifecycled: scheduler start failed: %v", err)
				}
			},
			engine.Stop,
		)
		electionWg.Add(1)
		go func() {
			defer electionWg.Done()
			elector.Run(electionCtx)
		}()
		log.Printf("lifecycled: leader election enabled (lock_key=%d)", cfg.LeaderLockKey)
	} else {
		if err := engine.Start(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start scheduler: %v\n", err)
			cancelDispatcher()
			cancelElection()
			return exitRuntimeError
		}
	}

	log.Printf("lifecycled: started (wake=%s, http=%s)", cfg.WakeInterval, cfg.HTTPAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("lifecycled: received signal %v, shutting down", received)

	// Phase 1: stop the scheduler so no new status changes are emitted
	log.Println("lifecycled: stopping scheduler...")
	if cfg.LeaderEnabled {
		cancelElection()
		electionWg.Wait()
	} else {
		engine.Stop()
	}
	log.Println("lifecycled: scheduler stopped")

	// Phase 2: stop the digest
	if cancelDigest != nil {
		cancelDigest()
		digestWg.Wait()
		log.Println("lifecycled: digest stopped")
	}

	// Phase 3: stop the dispatcher, draining buffered changes
	log.Println("lifecycled: stopping dispatcher (draining changes)...")
	cancelDispatcher()
	dispatcherWg.Wait()
	log.Println("lifecycled: dispatcher stopped")

	// Phase 4: graceful HTTP shutdown
	log.Println("lifecycled: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("lifecycled: http server shutdown error: %v", err)
	}
	log.Println("lifecycled: http server stopped")

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("lifecycled: redis close error: %v", err)
		}
	}

	log.Println("lifecycled: stopped")
	return exitSuccess
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("lifecycled version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
