package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"route_planner/internal/config"
	"route_planner/internal/controllers"
	"route_planner/internal/draft"
	"route_planner/internal/geocode"
	"route_planner/internal/logger"
	"route_planner/internal/middleware"
	"route_planner/internal/repository"
	"route_planner/internal/routes"
	"route_planner/internal/stopflow"
	"route_planner/internal/storage"
)

func main() {
	cfg := config.Load()

	// Initialize structured logging to file
	logger.Setup(cfg.LogFile, cfg.LogLevel)
	middleware.SetSecret(cfg.JWTSecret)
	gin.SetMode(gin.ReleaseMode)

	if err := run(cfg); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

// run owns every resource it opens, so its deferred closes finish before
// main decides the exit code.
func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	drafts, err := draft.Open(cfg.DraftDir, cfg.DraftTTL)
	if err != nil {
		return fmt.Errorf("draft store open: %w", err)
	}
	gcCtx, stopGC := context.WithCancel(ctx)
	gcDone := make(chan struct{})
	go func() {
		defer close(gcDone)
		drafts.RunGC(gcCtx, 10*time.Minute)
	}()
	defer func() {
		stopGC()
		<-gcDone
		if err := drafts.Close(); err != nil {
			logrus.WithError(err).Error("draft store close failed")
		}
	}()

	// Connect to the database
	if err := config.InitDB(cfg); err != nil {
		return fmt.Errorf("database init: %w", err)
	}

	uploads, err := storage.NewDiskUploader(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("upload dir init: %w", err)
	}

	var addresses stopflow.AddressResolver = geocode.Disabled{}
	if cfg.GeocodeAPIKey != "" {
		addresses = geocode.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeAPIKey, cfg.GeocodeHost, cfg.GeocodeTimeout)
	} else {
		logrus.Warn("GEOCODE_API_KEY not set, address lookup disabled")
	}

	repo := repository.New(config.GetDB())
	flow := stopflow.New(stopflow.Deps{
		Drafts:       drafts,
		Routes:       repo,
		Parties:      repo,
		Addresses:    addresses,
		Blobs:        uploads,
		Stops:        repo,
		Requirements: repo,
		Payments:     repo,
		Photos:       repo,
	})

	r := routes.SetupRouter(routes.Options{
		Stops:     controllers.NewStopController(flow, repo),
		UploadDir: cfg.UploadDir,
	})

	// Wrap with CORS
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           middleware.EnableCORS(cfg.CORSOrigins, r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("server shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "cors_origins": cfg.CORSOrigins}).Info("Server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	// In-flight requests still use the draft store.
	<-drained
	return nil
}
