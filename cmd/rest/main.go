package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"

	"ambient-stream-be/internal/bootstrap"
	"ambient-stream-be/internal/config"
	"ambient-stream-be/internal/server"
	"ambient-stream-be/internal/tracer"
	"ambient-stream-be/pkg/database"
)

const (
	sentryFlushTimeout = 2 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Error reporting
	if cfg.App.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.App.SentryDSN,
			Environment:      cfg.App.Environment,
			Release:          "ambient-stream@" + releaseVersion,
			TracesSampleRate: 0.2,
			Debug:            cfg.App.Environment != "production",
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("Sentry initialized (environment: %s, release: %s)", cfg.App.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	}

	// 3. Tracing
	shutdownTracer := tracer.InitTracer("ambient-stream", cfg.App.InstanceID)

	// 4. Database (optional, presets fall back to memory)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			sentry.CaptureException(err)
			log.Printf("[WARN] Unable to connect to GORM DB: %v", err)
		} else {
			gormDB = db
		}
	}

	// 5. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Start Background Services
	if err := container.Start(ctx); err != nil {
		log.Panicf("Failed to start background services: %v", err)
	}

	// 7. Run Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// sessions first so every listener gets its all-notes-off
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] Container shutdown: %v", err)
	}
	if err := srv.Shutdown(); err != nil {
		log.Printf("[WARN] Server shutdown: %v", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("[WARN] Tracer shutdown: %v", err)
	}
}
