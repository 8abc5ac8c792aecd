package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitcoach-backend-go/internal/aiclient"
	"fitcoach-backend-go/internal/billing"
	"fitcoach-backend-go/internal/config"
	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/events"
	"fitcoach-backend-go/internal/foodsearch"
	httpapi "fitcoach-backend-go/internal/http"
	"fitcoach-backend-go/internal/jobs"
	"fitcoach-backend-go/internal/logging"
	"fitcoach-backend-go/internal/migrations"
	"fitcoach-backend-go/internal/models"
	"fitcoach-backend-go/internal/services"
	"fitcoach-backend-go/internal/telemetry/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("load .env: %s", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %s", err)
	}

	logCloser := logging.Setup(logging.SetupParams{
		LogFileName:   cfg.LogFile,
		LogToStdout:   cfg.LogToStdout,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: cfg.LogFormatJSON,
	})
	defer func() {
		_ = logCloser.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %s", err)
	}
	defer database.Close()
	if err := migrations.Apply(ctx, database); err != nil {
		log.Fatalf("migrations: %s", err)
	}
	if err := services.EnsureAchievementCatalog(ctx, database); err != nil {
		log.Fatalf("achievements: %s", err)
	}
	if _, err := services.EnsureStoragePath(cfg.MediaStoragePath, services.BucketFormVideos); err != nil {
		log.Fatalf("media storage: %s", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsManager := metrics.NewManager("fitcoach", "server", promRegistry)

	hub := services.NewLiveHub()
	go hub.Run(ctx)

	bus, closeBus := setupEventBus(cfg)
	defer closeBus()

	deps := httpapi.Deps{
		Bus:          bus,
		Live:         hub,
		Entitlements: services.NewEntitlements(cfg.EntitlementCacheMB, cfg.EntitlementCacheTTLSeconds),
		Metrics:      metricsManager,
		Gatherer:     promRegistry,
		Foods:        foodsearch.New(cfg.FoodSearchURL, &http.Client{Timeout: 10 * time.Second}),
	}

	if cfg.AIServiceURL != "" {
		ai := aiclient.New(cfg.AIServiceURL, time.Duration(cfg.AIServiceTimeoutSeconds)*time.Second)
		ai.OnCall(func(capability string, err error) {
			result := "ok"
			if err != nil {
				result = "error"
			}
			metricsManager.CounterAIRequests.WithLabelValues(capability, result).Inc()
		})
		deps.AI = ai
	} else {
		log.Warnln("AI_SERVICE_URL not set, AI endpoints disabled")
	}

	if cfg.StripeSecretKey != "" {
		deps.Billing = billing.NewGateway(cfg.StripeSecretKey, map[string]string{
			models.RolePremium: cfg.StripePricePremium,
			models.RoleElite:   cfg.StripePriceElite,
		}, nil)
	} else {
		log.Warnln("STRIPE_SECRET_KEY not set, subscription checkout disabled")
	}

	if cfg.RedisURL != "" {
		rdb, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Errorf("redis: %s, AI rate limiting disabled", err)
		} else {
			defer rdb.Close()
			deps.Limiter = redis_rate.NewLimiter(rdb)
		}
	}

	scheduler := jobs.NewScheduler(
		jobs.NewJobs(database, metricsManager, cfg.MetricsDiskPath, cfg.BillingEventsRetentionDays),
		jobs.Schedule{
			Stats:              cfg.StatsJobSchedule,
			BillingEvents:      cfg.BillingEventsJobSchedule,
			HostSampleInterval: cfg.MetricsSampleSeconds,
		},
	)
	scheduler.Start()

	server := httpapi.NewServer(database, cfg, deps)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %s", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	received := <-stop
	log.Infof("received %s, shutting down", received)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Errorf("server shutdown: %s", err)
	}
	select {
	case <-scheduler.Stop().Done():
	case <-ctxShutdown.Done():
		log.Warnln("jobs still running at shutdown")
	}
	cancel()
	log.Infoln("shutdown complete")
}

func setupEventBus(cfg config.Config) (services.EventPublisher, func()) {
	if cfg.AMQPURL == "" {
		log.Debugln("AMQP_URL not set, domain events are only logged")
		return events.LogPublisher{}, func() {}
	}
	publisher, err := events.Dial(cfg.AMQPURL, cfg.EventsExchange)
	if err != nil {
		log.Errorf("amqp: %s, domain events are only logged", err)
		return events.LogPublisher{}, func() {}
	}
	return publisher, publisher.Close
}

func newRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
