package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reportd/pkg/bus"
	"reportd/pkg/db"
	"reportd/pkg/render"
	gos3 "reportd/pkg/s3"
	"reportd/pkg/telemetry"
	"reportd/services/report"
)

const serviceName = "reportd"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := report.LoadConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	cleanup, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	pool, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open database pool")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	orm, err := openORM(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open orm")
	}
	defer closeORM(orm)

	// A missing S3 configuration is not fatal here: the bucket check happens
	// at publish time and failures surface per job.
	s3Client, err := gos3.NewClientFromEnv()
	if err != nil {
		log.Warn().Err(err).Msg("s3 client not configured; publishing will fail")
	}

	queue, err := bus.New(cfg.NATSURL, cfg.Stream, cfg.Subject, cfg.Durable)
	if err != nil {
		log.Fatal().Err(err).Msg("connect queue")
	}
	defer queue.Close()

	renderer, err := render.New()
	if err != nil {
		log.Fatal().Err(err).Msg("init renderer")
	}

	store := &report.Store{DB: pool, ORM: orm, S3: s3Client, Queue: queue}

	svc, err := report.New(store, renderer, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init report service")
	}

	worker, err := report.NewWorker(queue, svc, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init worker")
	}

	go superviseWorker(ctx, worker)

	routes, err := svc.Routes()
	if err != nil {
		log.Fatal().Err(err).Msg("build routes")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context(), pool); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", routes)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting reportd")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
}

// superviseWorker keeps the polling loop alive for the process lifetime. If
// the worker returns or panics before shutdown it is restarted rather than
// left silently dead.
func superviseWorker(ctx context.Context, worker *report.Worker) {
	for {
		err := runWorker(ctx, worker)
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("report worker exited, restarting")
		time.Sleep(time.Second)
	}
}

func runWorker(ctx context.Context, worker *report.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return worker.Run(ctx)
}

func openORM(dsn string) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database, nil
}

func closeORM(database *gorm.DB) {
	sqlDB, err := database.DB()
	if err != nil {
		log.Error().Err(err).Msg("close orm")
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("close orm")
	}
}
