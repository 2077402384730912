package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cert-quiz/internal/config"
	"cert-quiz/internal/firestore"
	"cert-quiz/internal/quiz"
	"cert-quiz/internal/quiz/mongo"
	"cert-quiz/internal/quiz/sqlite"
	"cert-quiz/internal/session"
)

const firestoreTimeout = 10 * time.Second

// Resources holds the backends picked by configuration. Close releases them
// in reverse order of opening.
type Resources struct {
	Questions quiz.QuestionStore
	Sessions  quiz.SessionStore
	Results   quiz.ResultRepository

	closers []func(context.Context) error
	checks  []func(context.Context) error
}

func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Resources, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	res := &Resources{}

	var results *sqlite.SQLiteStore
	if cfg.SQLite.Path != "" {
		store, err := sqlite.NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		results = store
		res.Results = store
		res.addCloser(func(context.Context) error { return store.Close() })
		res.checks = append(res.checks, store.Ping)
	}

	questions, err := res.openQuestions(ctx, cfg, results, logger)
	if err != nil {
		_ = res.Close(context.Background())
		return nil, err
	}
	res.Questions = questions

	switch cfg.Session.Backend {
	case "redis":
		client := session.NewRedisClient(session.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := session.NewRedisStore(client, session.RedisConfig{
			Prefix: cfg.Redis.Prefix,
			TTL:    cfg.SessionIdle(),
		})
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			_ = res.Close(context.Background())
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		res.Sessions = store
		res.addCloser(func(context.Context) error { return store.Close() })
		res.checks = append(res.checks, store.Ping)
	default:
		res.Sessions = session.NewMemoryStore(cfg.SessionIdle())
	}

	logger.Info("backends ready",
		zap.String("store", cfg.Store.Backend),
		zap.String("session", cfg.Session.Backend),
		zap.Bool("results", res.Results != nil),
	)
	return res, nil
}

func (r *Resources) openQuestions(ctx context.Context, cfg *config.Config, results *sqlite.SQLiteStore, logger *zap.Logger) (quiz.QuestionStore, error) {
	switch cfg.Store.Backend {
	case "mongo":
		store, err := mongo.Connect(ctx, mongo.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			PoolSize:   cfg.Mongo.PoolSize,
			Fields:     cfg.Fields,
		})
		if err != nil {
			return nil, err
		}
		r.addCloser(store.Close)
		return store, nil
	case "sqlite":
		if results == nil {
			return nil, errors.New("sqlite store backend needs sqlite.path")
		}
		return results, nil
	case "firestore":
		return firestore.NewClient(&http.Client{Timeout: firestoreTimeout}, firestore.Config{
			BaseURL:    cfg.Firestore.BaseURL,
			ProjectID:  cfg.Firestore.ProjectID,
			Collection: cfg.Firestore.Collection,
			APIKey:     cfg.Firestore.APIKey,
			Fields:     cfg.Fields,
		}), nil
	default:
		records, err := quiz.LoadQuestionFile(cfg.Store.File, cfg.Fields)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded question file", zap.String("path", cfg.Store.File), zap.Int("records", len(records)))
		return quiz.NewMemoryStore(records), nil
	}
}

// Ready pings every backend that supports it.
func (r *Resources) Ready(ctx context.Context) error {
	for _, check := range r.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resources) Close(ctx context.Context) error {
	var errs []error
	for idx := len(r.closers) - 1; idx >= 0; idx-- {
		if err := r.closers[idx](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Resources) addCloser(fn func(context.Context) error) {
	r.closers = append(r.closers, fn)
}
