package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/taxi-dispatch/internal/config"
	"github.com/example/taxi-dispatch/internal/dispatch"
	"github.com/example/taxi-dispatch/internal/eta"
	httpapi "github.com/example/taxi-dispatch/internal/http"
	"github.com/example/taxi-dispatch/internal/ingest"
	"github.com/example/taxi-dispatch/internal/lifecycle"
	"github.com/example/taxi-dispatch/internal/logging"
	"github.com/example/taxi-dispatch/internal/matcher"
	"github.com/example/taxi-dispatch/internal/notify"
	"github.com/example/taxi-dispatch/internal/payments"
	"github.com/example/taxi-dispatch/internal/proximity"
	"github.com/example/taxi-dispatch/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if cfg.PGDSN != "" && cfg.RunMigrations {
		runMigrations(cfg.PGDSN, logger.Error)
	}

	mem := storage.NewMemory()

	var rides storage.RideStore = mem
	var routes storage.RouteStore = mem
	var drivers storage.DriverStore = mem
	var notifications storage.NotificationStore = mem
	if cfg.PGDSN != "" {
		pg, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		rides, routes, drivers, notifications = pg, pg, pg, pg
	}

	var locations storage.LocationStore = mem
	if cfg.RedisAddr != "" {
		locations = storage.NewRedisLocations(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	}

	wsreg := dispatch.NewWSRegistry(logger)
	var push notify.Pusher = wsreg
	if cfg.FCMEndpoint != "" {
		push = dispatch.NewChain(wsreg, dispatch.NewFCMDispatcher(cfg.FCMEndpoint, cfg.FCMKey))
	}

	debouncer := notify.NewDebouncer(notifications, cfg.DebounceWindow)
	emitter := notify.NewEmitter(notifications, push, debouncer, logger)

	match := &matcher.Service{
		Routes:      routes,
		Drivers:     drivers,
		Locations:   locations,
		Logger:      logger,
		AvgSpeedKmh: cfg.AvgSpeedKmh,
	}

	eval := &proximity.Evaluator{
		Rides:       rides,
		Locations:   locations,
		Emitter:     emitter,
		AvgSpeedKmh: cfg.AvgSpeedKmh,
		Logger:      logger,
	}
	if cfg.OSRMEndpoint != "" {
		eval.ETAClient = eta.NewOSRMClient(cfg.OSRMEndpoint)
		eval.ETACache = eta.NewCache(cfg.SweepInterval)
	}
	sweeper := &proximity.Sweeper{Rides: rides, Eval: eval, Interval: cfg.SweepInterval, Logger: logger}

	rideSvc := &lifecycle.Service{
		Rides:   rides,
		Emitter: emitter,
		Fares:   &payments.DistanceFare{PerKm: cfg.FarePerKm, Minimum: cfg.FareMinimum},
		Logger:  logger,
	}
	if cfg.StripeEnabled {
		rideSvc.Payments = payments.NewStripeClient("zar")
	}

	var producer *ingest.LocationProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = ingest.NewLocationProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
	}

	srv := httpapi.NewServer(cfg, httpapi.Deps{
		Matcher:   match,
		Lifecycle: rideSvc,
		Sweeper:   sweeper,
		Locations: locations,
		Kafka:     producer,
		WSReg:     wsreg,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("taxi-dispatch listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

func runMigrations(dsn string, logErr func(msg string, args ...any)) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logErr("migration db open error", "error", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_dispatch.sql"))
	if err != nil {
		logErr("migration read error", "error", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		logErr("migration exec error", "error", err)
	}
}
