package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-booking/internal/cache"
	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/ticket"
	"github.com/iliyamo/cinema-booking/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.Init(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema migrated")
	}

	rdb := config.NewRedisClient(cfg.Redis, log)
	if rdb != nil {
		defer rdb.Close()
	}

	events, err := queue.NewPublisher(cfg.Events, logger.WithComponent("queue"))
	if err != nil {
		return fmt.Errorf("event publisher: %w", err)
	}
	defer events.Close()

	// repositories
	showtimes := repository.NewShowtimeRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)

	seatMaps := cache.NewSeatMaps(rdb, cfg.SeatCache, logger.WithComponent("cache"))

	bookingSvc := service.NewBookingService(service.BookingDeps{
		Tx:            database.NewTxRunner(db),
		Showtimes:     showtimes,
		Seats:         seats,
		Bookings:      bookings,
		Tickets:       repository.NewTicketRepo(db),
		Foods:         repository.NewFoodRepo(db),
		Invoices:      repository.NewInvoiceRepo(db),
		Customers:     users,
		Cache:         seatMaps,
		Events:        events,
		Renderer:      ticket.NewRenderer(""),
		Log:           logger.WithComponent("service"),
		PendingExpiry: cfg.Booking.PendingExpiry,
	})
	seatSvc := service.NewSeatService(showtimes, seats, bookings, seatMaps)
	accountSvc := service.NewAccountService(users, repository.NewTokenRepo(db), service.AuthSettings{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	}, logger.WithComponent("service"))

	httpLog := logger.WithComponent("http")
	handlerLog := logger.WithComponent("handler")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(handlerLog)
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(httpLog))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit("1M"))

	router.RegisterRoutes(e, cfg.APIPrefix, cfg.JWTSecret, router.Handlers{
		Auth:      handler.NewAuthHandler(accountSvc, handlerLog),
		Bookings:  handler.NewBookingHandler(bookingSvc, handlerLog),
		Showtimes: handler.NewShowtimeHandler(seatSvc, service.NewShowtimeService(showtimes), handlerLog),
		Health:    handler.Health(db),
	}, middleware.RateLimit(cfg.RateLimit, rdb, httpLog))

	var consumer *queue.Consumer
	if cfg.Events.Broker == "rabbitmq" && cfg.Events.ConsumerEnabled {
		audit, closeAudit, err := logger.NewFile(cfg.Events.LogPath)
		if err != nil {
			return fmt.Errorf("audit log: %w", err)
		}
		defer func() { _ = closeAudit() }()
		consumer = queue.NewConsumer(cfg.Events.AMQPURL, cfg.Events.Queue, logger.WithComponent("queue"), audit)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("api_prefix", cfg.APIPrefix))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(sctx)
	})

	if cfg.Booking.CleanupEnabled {
		cleanup := worker.NewCleanup(bookingSvc, cfg.Booking.CleanupInterval, logger.WithComponent("worker"))
		g.Go(func() error { return cleanup.Run(gctx) })
	}

	if consumer != nil {
		g.Go(func() error { return consumer.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		log.Error("stopped with error", zap.Error(err))
		return err
	}
	log.Info("stopped")
	return nil
}
