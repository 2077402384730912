package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"cert-quiz/internal/bootstrap"
	"cert-quiz/internal/cli"
	"cert-quiz/internal/config"
	"cert-quiz/internal/logger"
	"cert-quiz/internal/quiz"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	questions := flag.String("questions", "", "question file (overrides config)")
	flag.Parse()

	if err := run(*configDir, *questions); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configDir, questionFile string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if questionFile != "" {
		cfg.Store.Backend = "memory"
		cfg.Store.File = questionFile
	}
	// one local player, nothing to share
	cfg.Session.Backend = "memory"

	// stderr shares the terminal with the questions
	log := logger.New(logger.Config{Level: "warn", File: cfg.Log.File})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resources, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := resources.Close(context.Background()); err != nil {
			log.Warn("closing backends", zap.Error(err))
		}
	}()

	service := quiz.NewService(resources.Questions, resources.Sessions, resources.Results, cfg.Settings(), quiz.ServiceOptions{
		Logger: log,
	})
	return cli.Run(ctx, service, os.Stdin, os.Stdout)
}
