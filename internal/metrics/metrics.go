package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	TriggerSubmit = "submit"
	TriggerExpiry = "expiry"
)

// Metrics holds the quiz collectors. It satisfies quiz.Observer.
type Metrics struct {
	AttemptsStarted prometheus.Counter
	AttemptsGraded  *prometheus.CounterVec
	Scores          prometheus.Histogram
	StoreFailures   prometheus.Counter
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		AttemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Attempts created with a fresh sample",
		}),
		AttemptsGraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_graded_total",
				Help: "Attempts graded, by what closed them",
			},
			[]string{"trigger"},
		),
		Scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_score_percentage",
			Help:    "Percentage of correct answers per graded attempt",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		StoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_question_store_failures_total",
			Help: "Question store fetches that failed or returned no usable questions",
		}),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.AttemptsStarted,
		m.AttemptsGraded,
		m.Scores,
		m.StoreFailures,
		m.RequestCounter,
		m.RequestDuration,
	)
	return m
}

func (m *Metrics) AttemptStarted() {
	m.AttemptsStarted.Inc()
}

func (m *Metrics) AttemptGraded(forced bool, percentage float64) {
	trigger := TriggerSubmit
	if forced {
		trigger = TriggerExpiry
	}
	m.AttemptsGraded.WithLabelValues(trigger).Inc()
	m.Scores.Observe(percentage)
}

func (m *Metrics) StoreFailed() {
	m.StoreFailures.Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
