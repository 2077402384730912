package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"cert-quiz/internal/config"
	"cert-quiz/internal/logger"
	"cert-quiz/internal/quiz"
	"cert-quiz/internal/quiz/mongo"
	"cert-quiz/internal/quiz/sqlite"
)

type seeder interface {
	SeedQuestions(ctx context.Context, records []quiz.Record) (int, error)
}

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	file := flag.String("file", "", "question file to import (defaults to store.file)")
	target := flag.String("target", "sqlite", "where to write questions: sqlite or mongo")
	timeout := flag.Duration("timeout", time.Minute, "overall import timeout")
	flag.Parse()

	if err := run(*configDir, *file, *target, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configDir, file, target string, timeout time.Duration) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.Store.File
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	records, err := quiz.LoadQuestionFile(file, cfg.Fields)
	if err != nil {
		return err
	}
	if _, rejected := quiz.PreparePool(records, cfg.Quiz.Separator); len(rejected) > 0 {
		log.Warn("question file has unusable records", zap.Int("rejected", len(rejected)))
	}

	var store seeder
	switch target {
	case "sqlite":
		sqliteStore, err := sqlite.NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		store = sqliteStore
	case "mongo":
		mongoStore, err := mongo.Connect(ctx, mongo.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			PoolSize:   cfg.Mongo.PoolSize,
			Fields:     cfg.Fields,
		})
		if err != nil {
			return err
		}
		defer func() { _ = mongoStore.Close(context.Background()) }()
		store = mongoStore
	default:
		return fmt.Errorf("unknown target %q", target)
	}

	written, err := store.SeedQuestions(ctx, records)
	if err != nil {
		return err
	}
	log.Info("seeded questions",
		zap.String("file", file),
		zap.String("target", target),
		zap.Int("records", len(records)),
		zap.Int("written", written),
	)
	return nil
}
