package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/config"
	"github.com/iliyamo/vaccination-booking/internal/database"
	"github.com/iliyamo/vaccination-booking/internal/handler"
	"github.com/iliyamo/vaccination-booking/internal/logger"
	"github.com/iliyamo/vaccination-booking/internal/middleware"
	"github.com/iliyamo/vaccination-booking/internal/queue"
	"github.com/iliyamo/vaccination-booking/internal/repository"
	"github.com/iliyamo/vaccination-booking/internal/router"
	"github.com/iliyamo/vaccination-booking/internal/service"
)

//	@title			Vaccination Booking API
//	@version		1.0
//	@description	Vaccination centers and appointment bookings.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer access token. Format: "Bearer {token}"

// bookingLogPath is where the event consumer writes booking activity.
const bookingLogPath = "logs/booking.log"

func main() {
	cfg := config.Load()

	zl, err := logger.New(logger.ConfigForEnv(cfg.Env, logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg, zl)
	defer closeStore()

	bookingCfg := config.LoadBookingConfig()
	if err := bookingCfg.Validate(); err != nil {
		zl.Fatal("invalid booking config", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		zl.Warn("redis unavailable, running without cache and rate limit")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	invalidator := middleware.NewCacheInvalidator(cacheCfg, rdb, zl)

	var events service.Publisher = service.NopPublisher{}
	if cfg.RabbitURL != "" {
		events = queue.NewPublisher(cfg.RabbitURL, zl)
	}

	companies := service.NewCompanyService(store, events, zl)
	bookings := service.NewBookingService(store, bookingCfg, events, zl)
	auth := service.NewAuthService(store, service.AuthConfig{
		JWTSecret:        cfg.JWTSecret,
		AccessTTLMin:     cfg.AccessTTLMin,
		RefreshTTLDays:   cfg.RefreshTTLDays,
		BcryptCost:       cfg.BcryptCost,
		AllowAdminSignup: cfg.AllowAdminSignup,
	}, zl)

	metrics := middleware.NewMetrics("vaccination_booking")

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestLogger(zl))
	e.Use(metrics.Middleware())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl))

	router.RegisterRoutes(e, metrics)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, zl), cfg.JWTSecret)
	router.RegisterCompanies(e, handler.NewCompanyHandler(companies, invalidator, zl), cfg.JWTSecret,
		middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterBookings(e, handler.NewBookingHandler(bookings, invalidator, zl), cfg.JWTSecret)

	if cfg.EventsEnabled {
		journal, err := logger.New(logger.Config{Level: "info", Format: "json", Output: bookingLogPath})
		if err != nil {
			zl.Fatal("booking log", zap.Error(err))
		}
		defer func() { _ = journal.Sync() }()
		consumer := queue.NewConsumer(cfg.RabbitURL, zl, journal)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}

// openStore returns the configured store and a function that releases it.
func openStore(ctx context.Context, cfg config.Config, zl *zap.Logger) (repository.Store, func()) {
	if cfg.StoreDriver == config.DriverMemory {
		zl.Warn("using in-memory store, data is lost on exit")
		return repository.NewMemoryStore(), func() {}
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	if cfg.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			zl.Fatal("migrate", zap.Error(err))
		}
	}
	return repository.NewSQLStore(db), func() { _ = db.Close() }
}
