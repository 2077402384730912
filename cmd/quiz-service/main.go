package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cert-quiz/internal/bootstrap"
	"cert-quiz/internal/config"
	"cert-quiz/internal/event"
	"cert-quiz/internal/httpapi"
	"cert-quiz/internal/logger"
	"cert-quiz/internal/metrics"
	"cert-quiz/internal/quiz"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	if err := run(*configDir, *addr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configDir, addrOverride string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if addrOverride != "" {
		cfg.Server.Address = addrOverride
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resources, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := resources.Close(closeCtx); err != nil {
			log.Warn("closing backends", zap.Error(err))
		}
	}()

	publisher, err := event.NewPublisher(cfg.AMQP.URI, cfg.AMQP.Exchange, log)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	service := quiz.NewService(resources.Questions, resources.Sessions, resources.Results, cfg.Settings(), quiz.ServiceOptions{
		Logger:    log,
		Observer:  m,
		Publisher: publisher,
	})

	gin.SetMode(cfg.Server.Mode)
	router := httpapi.NewRouter(service, httpapi.RouterOptions{
		Logger:         log,
		Metrics:        m,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimit:      cfg.RateLimit.MaxRequests,
		RateWindow:     cfg.RateWindow(),
		Done:           ctx.Done(),
		Ready:          resources.Ready,
	})

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("quiz-service listening",
			zap.String("addr", cfg.Server.Address),
			zap.Bool("events", publisher.Enabled()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
