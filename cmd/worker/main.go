package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/notify"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	healthAddr := flag.String("health-addr", ":8081", "address for health and metrics")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatal("the worker needs the postgres driver", zap.String("driver", cfg.Database.Driver))
	}
	if !cfg.Redis.Enabled {
		log.Fatal("the worker needs redis to be enabled")
	}
	loc, err := cfg.Clinic.Location()
	if err != nil {
		log.Fatal("invalid clinic timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	workerMetrics := metrics.NewMetrics(registry, "clinic", "worker")

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	repos := postgres.NewRepositories(db, cfg.Database.LockTimeout)

	// go-redis and the breaker log through zerolog
	brokerLogger := logger.NewLogger(&logger.Config{Level: logger.ParseLevel(cfg.Log.Level), Format: "json"})
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, brokerLogger.Zerolog(), workerMetrics)
	if err != nil {
		log.Fatal("failed to create redis broker", zap.Error(err))
	}
	defer broker.Close()

	processor, err := worker.NewOutboxProcessor(repos.Outbox, broker, worker.OutboxProcessorConfig{
		Channel:       cfg.Redis.Channel,
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
	}, log, workerMetrics)
	if err != nil {
		log.Fatal("failed to create outbox processor", zap.Error(err))
	}
	cleanup := worker.NewOutboxCleanupWorker(repos.Outbox, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, log)

	var mailer email.Service
	if cfg.SMTP.Enabled {
		mailer = email.NewSMTPService(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		mailer = email.NewLogService(*brokerLogger.Zerolog())
	}
	subscriber := notify.NewSubscriber(broker, cfg.Redis.Channel, repos.Doctors, repos.Visits, mailer, loc, log, workerMetrics)

	srv := healthServer(*healthAddr, registry, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := broker.PingContext(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", zap.Error(err))
		}
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notification subscriber stopped", zap.Error(err))
		}
	}()

	log.Info("worker started", zap.String("channel", cfg.Redis.Channel), zap.String("health_addr", *healthAddr))
	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	wg.Wait()
}

func healthServer(addr string, gatherer prometheus.Gatherer, ready func(context.Context) error) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
