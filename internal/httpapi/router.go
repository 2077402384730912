package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cert-quiz/internal/metrics"
	"cert-quiz/internal/quiz"
)

type RouterOptions struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
	// Done stops background middleware work such as rate limiter sweeping.
	Done <-chan struct{}
	// Ready reports backing store health for /healthz.
	Ready func(ctx context.Context) error
}

func NewRouter(service *quiz.Service, opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	api := NewAPI(service, opts.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(opts.Logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}
	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", SessionHeader},
			ExposeHeaders:    []string{SessionHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		if opts.Ready != nil {
			if err := opts.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	quizRoutes := router.Group("/")
	quizRoutes.Use(RateLimiter(opts.RateLimit, opts.RateWindow, opts.Done))
	quizRoutes.Use(Session())

	quizRoutes.GET("/attempt", api.HandleAttempt)
	quizRoutes.POST("/attempt/select", api.HandleSelect)
	quizRoutes.POST("/attempt/toggle", api.HandleToggle)
	quizRoutes.POST("/attempt/username", api.HandleUsername)
	quizRoutes.POST("/attempt/submit", api.HandleSubmit)
	quizRoutes.POST("/attempt/restart", api.HandleRestart)
	quizRoutes.GET("/attempt/result", api.HandleResult)
	quizRoutes.GET("/leaderboard", api.HandleLeaderboard)
	quizRoutes.GET("/history", api.HandleHistory)

	return router
}
