package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/train-seat-reservation/internal/config"
	"github.com/iliyamo/train-seat-reservation/internal/database"
	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/handler"
	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/payment"
	"github.com/iliyamo/train-seat-reservation/internal/pricing"
	"github.com/iliyamo/train-seat-reservation/internal/queue"
	"github.com/iliyamo/train-seat-reservation/internal/repository"
	"github.com/iliyamo/train-seat-reservation/internal/router"
	"github.com/iliyamo/train-seat-reservation/internal/schedule"
	"github.com/iliyamo/train-seat-reservation/internal/service"
	"github.com/iliyamo/train-seat-reservation/internal/store"
	"github.com/iliyamo/train-seat-reservation/internal/store/memstore"
)

var logger = log.New("server")

func main() {
	cfg := config.Load()
	if cfg.Env == "dev" {
		logger.SetLevel(log.DEBUG)
		service.SetLogLevel(log.DEBUG)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, users, cleanup := openStore(ctx, cfg)
	defer cleanup()

	var publisher service.EventPublisher
	if cfg.RabbitMQURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitMQURL)
		go func() {
			if err := queue.StartBookingConsumer(ctx, cfg.RabbitMQURL); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("action=consumer err=%v", err)
			}
		}()
	} else {
		logger.Warn("RABBITMQ_URL not set; booking events are dropped")
	}

	resolver := pricing.NewResolver(cfg.Engine)
	trips := service.NewTripService(st, schedule.New(cfg.Engine), nil)
	ledger := service.NewSeatHoldLedger(st, cfg.Engine, nil)
	prices := service.NewPricingService(st, resolver)
	bookings := service.NewBookingService(st, resolver, payment.NewSimulated(), publisher, nil)

	if mem, ok := st.(*memstore.Store); ok {
		if err := seedDemo(ctx, mem, trips); err != nil {
			logger.Fatalf("seed demo data: %v", err)
		}
	}

	go service.NewHoldReaper(ledger, cfg.Engine.SweepInterval).Start(ctx)

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logger.Warnf("%v; rate limiting and caching disabled", err)
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg.JWTSecret, cfg.AccessTTLMin, users),
		Trips:    handler.NewTripHandler(trips, ledger, prices),
		Holds:    handler.NewHoldHandler(ledger),
		Bookings: handler.NewBookingHandler(bookings),
		Operator: handler.NewOperatorHandler(trips),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Infof("listening on %s (env=%s store=%s)", addr, cfg.Env, cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("action=shutdown err=%v", err)
	}
}

// openStore returns the configured store and the matching user lookup.
func openStore(ctx context.Context, cfg config.Config) (store.Store, handler.UserLookup, func()) {
	if cfg.StoreDriver == "memory" {
		mem := memstore.New(cfg.Engine.TxTimeout)
		return mem, mem, func() {}
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	if cfg.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			logger.Fatalf("migrate: %v", err)
		}
	}
	users := repository.NewUserRepo(db)
	if cfg.OperatorEmail != "" {
		id, err := users.Create(ctx, cfg.OperatorEmail, cfg.OperatorPassword, model.RoleOperator, bcrypt.DefaultCost)
		switch {
		case err == nil:
			logger.Infof("action=bootstrap_operator user_id=%d", id)
		case domain.IsConflict(err):
			logger.Debugf("action=bootstrap_operator exists=true")
		default:
			logger.Fatalf("bootstrap operator: %v", err)
		}
	}
	return repository.NewSQLStore(db, cfg.Engine.TxTimeout), users, func() { _ = db.Close() }
}
