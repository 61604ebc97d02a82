package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/loan-service/internal/audit"
	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/handler"
	"github.com/Dan9191/loan-service/internal/integrations/cbc"
	"github.com/Dan9191/loan-service/internal/integrations/hubspot"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/Dan9191/loan-service/internal/service"
	"github.com/Dan9191/loan-service/internal/storage"
	"github.com/Dan9191/loan-service/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	repo := repository.NewRepository(db, []byte(cfg.EncryptionKey))
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Sync audit log; the service runs without it when mongo is down
	var recorder audit.Recorder = audit.Discard{}
	if mg, err := audit.Connect(ctx, cfg.MongoURI, cfg.MongoDB, logger); err != nil {
		logger.WithError(err).Warn("Sync audit log disabled")
	} else {
		recorder = mg
		defer mg.Close(context.Background())
	}

	// Credit report archive
	var archive service.ReportArchive
	if reports, err := storage.NewReportArchive(cfg, logger); err != nil {
		logger.WithError(err).Warn("Credit report archive disabled")
	} else if err := reports.EnsureBucket(ctx); err != nil {
		logger.WithError(err).Warn("Credit report archive disabled")
	} else {
		archive = reports
	}

	// Initialize integrations
	crm := hubspot.NewClient(cfg, logger)
	bureau := cbc.NewClient(cfg, logger)
	if creds, err := repo.LoadCBCCredentials(ctx); err == nil {
		bureau.SetCredentials(creds)
		logger.Info("Using rotated credit bureau credentials")
	} else if !errors.Is(err, models.ErrNotFound) {
		logger.WithError(err).Warn("Failed to load rotated credit bureau credentials")
	}

	// Initialize layers
	orchestrator := service.NewOrchestrator(crm, recorder, email.NewSender(cfg, logger), cfg, logger)
	svc := service.NewService(repo, orchestrator, bureau, archive, logger, cfg)
	h := handler.NewHandler(svc, logger)

	// Credential rotation
	c := cron.New()
	_, err = c.AddFunc(cfg.RotationSchedule, func() {
		rctx, cancel := context.WithTimeout(context.Background(), cfg.CBCTimeout)
		defer cancel()
		if err := bureau.RotatePassword(rctx, repo); err != nil {
			logger.WithError(err).Error("Credit bureau password rotation failed")
		}
	})
	if err != nil {
		logger.Fatalf("Failed to schedule credential rotation: %v", err)
	}
	c.Start()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.CBCTimeout + 10*time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	<-c.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
