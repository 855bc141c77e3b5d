// Command server runs the seat-planning HTTP API.
//
//	@title			Seat Planner API
//	@version		1.0
//	@description	Weekly office seat planning with satisfaction feedback.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-seat-planner/internal/config"
	"github.com/tbourn/go-seat-planner/internal/feedback"
	httpapi "github.com/tbourn/go-seat-planner/internal/http"
	"github.com/tbourn/go-seat-planner/internal/observability"
	"github.com/tbourn/go-seat-planner/internal/optimizer"
	"github.com/tbourn/go-seat-planner/internal/planner"
	"github.com/tbourn/go-seat-planner/internal/repo"
	"github.com/tbourn/go-seat-planner/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const idempotencySweep = 15 * time.Minute

func main() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	cfg := config.MustLoad()
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	sysutil.SetupLogging(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, ver)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Warn().Err(err).Msg("gorm tracing disabled")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	var remote planner.RemoteMatcher
	if opt := optimizer.New(cfg.Optimizer); opt != nil {
		hctx, cancel := context.WithTimeout(ctx, max(cfg.Optimizer.Timeout, time.Second))
		if err := opt.Health(hctx); err != nil {
			log.Warn().Err(err).Str("url", cfg.Optimizer.BaseURL).Msg("optimizer unreachable; local matching until it recovers")
		}
		cancel()
		remote = opt
	}
	engine, err := planner.New(cfg.Planner, remote)
	if err != nil {
		log.Fatal().Err(err).Msg("planner options invalid")
	}

	agg := feedback.New(cfg.Feedback)
	svcs := httpapi.NewServices(db, engine, agg)
	n, err := svcs.Feedback.Rebuild(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("feedback replay failed")
	}
	log.Info().Int("entries", n).Msg("satisfaction state rebuilt")

	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		agg.Run(ctx)
	}()
	go purgeIdempotency(ctx, db, idempotencySweep)

	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	httpapi.RegisterRoutes(r, db, svcs, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	<-aggDone
	if err := shutdownOTel(sctx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// purgeIdempotency drops expired replay records until ctx ends.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("expired idempotency keys removed")
			}
		}
	}
}
