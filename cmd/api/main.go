package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	holidayHandler "github.com/jwalitptl/clinic-api/internal/handler/holiday"
	promHandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	scheduleHandler "github.com/jwalitptl/clinic-api/internal/handler/schedule"
	"github.com/jwalitptl/clinic-api/internal/handler/visit"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/router"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/internal/service/booking"
	holidayService "github.com/jwalitptl/clinic-api/internal/service/holiday"
	rbacService "github.com/jwalitptl/clinic-api/internal/service/rbac"
	"github.com/jwalitptl/clinic-api/internal/service/schedule"
	jwtauth "github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	appLogger.SetGlobal()

	loc, err := cfg.Clinic.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid clinic timezone")
	}

	if err := validator.RegisterWithGin(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, checks, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open store")
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(registry, "clinic", "api")

	// Services
	holidaySvc := holidayService.NewService(repos.Holidays, loc, cfg.Cache.HolidayTTL, appMetrics, appLogger)
	scheduleSvc := schedule.NewService(repos.Slots, repos.Doctors, holidaySvc, loc, appMetrics, appLogger)
	bookingSvc := booking.NewService(repos.Visits, loc, appMetrics, appLogger)
	rbacSvc := rbacService.NewService(repos.RBAC, cfg.Cache.PermissionTTL, appMetrics)
	jwtSvc := jwtauth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	authSvc := authService.NewService(repos.Users, jwtSvc, security.NewBcryptHasher(0), appLogger)

	if cfg.Database.Driver == "memory" && cfg.Redis.Enabled {
		stopEvents, err := startEvents(ctx, cfg, repos, loc, appMetrics, appLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start event pipeline")
		}
		defer stopEvents()
	}

	authMiddleware := middleware.NewAuthMiddleware(rbacSvc, authSvc)

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		cors.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	if len(cfg.CORS.AllowedMethods) > 0 {
		cors.AllowMethods = cfg.CORS.AllowedMethods
	}
	if len(cfg.CORS.AllowedHeaders) > 0 {
		cors.AllowHeaders = cfg.CORS.AllowedHeaders
	}
	if cfg.CORS.MaxAge > 0 {
		cors.MaxAge = cfg.CORS.MaxAge
	}

	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		Compress:       cfg.Server.Compress,
		CORSConfig:     cors,
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(
		authMiddleware,
		middleware.NewHTTPMetrics(registry, "clinic_http"),
		routerConfig,
		[]router.Handler{auth.NewHandler(authSvc)},
		[]router.Handler{
			scheduleHandler.NewHandler(scheduleSvc, authMiddleware),
			visit.NewHandler(bookingSvc, authMiddleware),
			holidayHandler.NewHandler(holidaySvc, authMiddleware),
		},
		[]router.Handler{
			health.NewHandler(checks),
			promHandler.New(registry),
		},
	)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Str("timezone", loc.String()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func openStore(ctx context.Context, cfg *config.Config) (*repository.Repositories, map[string]health.Pinger, func(), error) {
	if cfg.Database.Driver == "memory" {
		store := memory.NewStore()
		if err := bootstrap(store, cfg.Bootstrap); err != nil {
			return nil, nil, nil, err
		}
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return store.Repositories(), map[string]health.Pinger{}, func() {}, nil
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
	return postgres.NewRepositories(db, cfg.Database.LockTimeout), map[string]health.Pinger{"database": dbPinger{db}}, closeDB, nil
}

type dbPinger struct{ db *sqlx.DB }

func (p dbPinger) PingContext(ctx context.Context) error { return p.db.PingContext(ctx) }

// bootstrap seeds one administrator who can also be scheduled as a doctor.
func bootstrap(store *memory.Store, cfg config.BootstrapConfig) error {
	if cfg.Password == "" {
		return errors.New("bootstrap password is required with the memory driver")
	}
	hash, err := security.NewBcryptHasher(0).Hash(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		Base:         model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Email:        cfg.Email,
		PasswordHash: hash,
		LastName:     cfg.LastName,
		FirstName:    cfg.FirstName,
		Status:       model.UserStatusActive,
	}
	store.AddUser(user, model.AllPermissions...)
	doctor := &model.Doctor{ID: uuid.New(), UserID: user.ID, Color: model.DefaultDoctorColor, CreatedAt: now}
	store.AddDoctor(doctor, nil)

	log.Info().Str("email", user.Email).Str("doctor_id", doctor.ID.String()).Msg("bootstrap user created")
	return nil
}
