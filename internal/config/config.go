package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"cert-quiz/internal/quiz"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Fields    quiz.FieldNames `mapstructure:"fields"`
	Store     StoreConfig     `mapstructure:"store"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	AMQP      AMQPConfig      `mapstructure:"amqp"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

type QuizConfig struct {
	Quotas          []quiz.CategoryQuota `mapstructure:"quotas"`
	DurationSeconds int                  `mapstructure:"duration_seconds"`
	PassThreshold   float64              `mapstructure:"pass_threshold"`
	Shuffle         bool                 `mapstructure:"shuffle"`
	Strict          bool                 `mapstructure:"strict"`
	Separator       string               `mapstructure:"separator"`
}

type StoreConfig struct {
	// Backend is one of memory, mongo, sqlite or firestore.
	Backend string `mapstructure:"backend"`
	File    string `mapstructure:"file"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	PoolSize   uint64 `mapstructure:"pool_size"`
}

type FirestoreConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ProjectID  string `mapstructure:"project_id"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	// Backend is memory or redis.
	Backend     string `mapstructure:"backend"`
	IdleMinutes int    `mapstructure:"idle_minutes"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type AMQPConfig struct {
	URI      string `mapstructure:"uri"`
	Exchange string `mapstructure:"exchange"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

var envBindings = map[string]string{
	"server.address": "QUIZ_ADDR",
	"server.mode":    "QUIZ_MODE",

	"quiz.duration_seconds": "QUIZ_DURATION_SECONDS",
	"quiz.pass_threshold":   "QUIZ_PASS_THRESHOLD",
	"quiz.shuffle":          "QUIZ_SHUFFLE",
	"quiz.strict":           "QUIZ_STRICT",
	"quiz.separator":        "QUIZ_SEPARATOR",

	"fields.question_text": "QUIZ_FIELD_QUESTION_TEXT",
	"fields.category":      "QUIZ_FIELD_CATEGORY",
	"fields.choices":       "QUIZ_FIELD_CHOICES",
	"fields.answers":       "QUIZ_FIELD_ANSWERS",
	"fields.images":        "QUIZ_FIELD_IMAGES",

	"store.backend": "QUIZ_STORE",
	"store.file":    "QUIZ_QUESTION_FILE",

	"mongo.uri":        "QUIZ_MONGO_URI",
	"mongo.database":   "QUIZ_MONGO_DATABASE",
	"mongo.collection": "QUIZ_MONGO_COLLECTION",
	"mongo.pool_size":  "QUIZ_MONGO_POOL_SIZE",

	"firestore.base_url":   "QUIZ_FIRESTORE_BASE_URL",
	"firestore.project_id": "QUIZ_FIRESTORE_PROJECT",
	"firestore.collection": "QUIZ_FIRESTORE_COLLECTION",
	"firestore.api_key":    "QUIZ_FIRESTORE_API_KEY",

	"sqlite.path": "QUIZ_DB_PATH",

	"session.backend":      "QUIZ_SESSION_STORE",
	"session.idle_minutes": "QUIZ_SESSION_IDLE_MINUTES",

	"redis.address":  "QUIZ_REDIS_ADDR",
	"redis.password": "QUIZ_REDIS_PASSWORD",
	"redis.db":       "QUIZ_REDIS_DB",
	"redis.prefix":   "QUIZ_REDIS_PREFIX",

	"amqp.uri":      "QUIZ_AMQP_URI",
	"amqp.exchange": "QUIZ_AMQP_EXCHANGE",

	"rate_limit.max_requests":   "QUIZ_RATE_LIMIT_MAX",
	"rate_limit.window_seconds": "QUIZ_RATE_LIMIT_WINDOW_SECONDS",

	"log.level": "QUIZ_LOG_LEVEL",
	"log.file":  "QUIZ_LOG_FILE",
}

func setDefaults(v *viper.Viper) {
	fields := quiz.DefaultFieldNames()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("quiz.quotas", quotaMaps(quiz.DefaultQuotas()))
	v.SetDefault("quiz.duration_seconds", int(quiz.DefaultDuration/time.Second))
	v.SetDefault("quiz.pass_threshold", quiz.DefaultPassThreshold)
	v.SetDefault("quiz.shuffle", false)
	v.SetDefault("quiz.strict", false)
	v.SetDefault("quiz.separator", quiz.DefaultSeparator)
	v.SetDefault("fields.question_text", fields.QuestionText)
	v.SetDefault("fields.category", fields.Category)
	v.SetDefault("fields.choices", fields.Choices)
	v.SetDefault("fields.answers", fields.Answers)
	v.SetDefault("fields.images", fields.Images)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.file", "questions.json")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "pl300")
	v.SetDefault("mongo.collection", "questions")
	v.SetDefault("mongo.pool_size", 10)
	v.SetDefault("firestore.base_url", "")
	v.SetDefault("firestore.project_id", "")
	v.SetDefault("firestore.collection", "questions")
	v.SetDefault("firestore.api_key", "")
	v.SetDefault("sqlite.path", "cert-quiz.db")
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.idle_minutes", 180)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "cert-quiz:session")
	v.SetDefault("amqp.uri", "")
	v.SetDefault("amqp.exchange", "quiz.events")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit.max_requests", 120)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads config.yaml from dir when present, then .env, then QUIZ_*
// environment overrides. A missing file is not an error.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if raw, ok := os.LookupEnv("QUIZ_QUOTAS"); ok {
		quotas, err := ParseQuotas(raw)
		if err != nil {
			return nil, err
		}
		cfg.Quiz.Quotas = quotas
	}
	if raw, ok := os.LookupEnv("QUIZ_CORS_ORIGINS"); ok {
		cfg.CORS.AllowedOrigins = splitList(raw)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Quiz.Quotas) == 0 {
		return errors.New("at least one category quota is required")
	}
	names := make(map[string]struct{}, len(c.Quiz.Quotas))
	for _, quota := range c.Quiz.Quotas {
		if strings.TrimSpace(quota.Name) == "" || quota.Quota < 0 {
			return fmt.Errorf("invalid quota %q=%d", quota.Name, quota.Quota)
		}
		if _, dup := names[quota.Name]; dup {
			return fmt.Errorf("category %q has more than one quota", quota.Name)
		}
		names[quota.Name] = struct{}{}
	}
	if c.Quiz.DurationSeconds <= 0 {
		return errors.New("quiz duration must be positive")
	}
	if c.Quiz.PassThreshold < 0 || c.Quiz.PassThreshold > 100 {
		return fmt.Errorf("pass threshold %.2f is outside 0-100", c.Quiz.PassThreshold)
	}
	switch c.Store.Backend {
	case "memory", "mongo", "sqlite", "firestore":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	return nil
}

func (c *Config) Settings() quiz.Settings {
	return quiz.Settings{
		Quotas:        append([]quiz.CategoryQuota(nil), c.Quiz.Quotas...),
		Duration:      time.Duration(c.Quiz.DurationSeconds) * time.Second,
		PassThreshold: c.Quiz.PassThreshold,
		Shuffle:       c.Quiz.Shuffle,
		Strict:        c.Quiz.Strict,
		Separator:     c.Quiz.Separator,
	}
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.Session.IdleMinutes) * time.Minute
}

func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// ParseQuotas reads "Name=12,Other Name=10". Order is kept because it is the
// order categories are drawn and reported in.
func ParseQuotas(raw string) ([]quiz.CategoryQuota, error) {
	var quotas []quiz.CategoryQuota
	for _, part := range splitList(raw) {
		name, count, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("quota %q: expected name=count", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil {
			return nil, fmt.Errorf("quota %q: %w", part, err)
		}
		quotas = append(quotas, quiz.CategoryQuota{Name: strings.TrimSpace(name), Quota: n})
	}
	if len(quotas) == 0 {
		return nil, errors.New("no quotas given")
	}
	return quotas, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func quotaMaps(quotas []quiz.CategoryQuota) []map[string]any {
	out := make([]map[string]any, 0, len(quotas))
	for _, quota := range quotas {
		out = append(out, map[string]any{"name": quota.Name, "quota": quota.Quota})
	}
	return out
}
