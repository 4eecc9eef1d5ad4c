package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/victornm/quizluv/internal/domain"
	"github.com/victornm/quizluv/internal/event"
)

const namespace = "quizluv"

// Metrics owns its registry so several instances can coexist in one process.
type Metrics struct {
	reg *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	submissions prometheus.Counter
	percentage  prometheus.Histogram
	anomalies   *prometheus.CounterVec
	records     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_submissions_total",
			Help:      "Total number of graded quiz attempts.",
		}),

		percentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quiz_percentage",
			Help:      "Distribution of attempt percentages.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),

		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_data_anomalies_total",
			Help:      "Questions graded from data that breaks the four options, one correct rule.",
		}, []string{"anomaly"}),

		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_records_total",
			Help:      "Total number of leaderboard entries recorded.",
		}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.submissions,
		m.percentage,
		m.anomalies,
		m.records,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records request counts and latencies labelled by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Subscribe feeds the domain counters from bus events.
func (m *Metrics) Subscribe(eb *event.Bus) {
	eb.Subscribe(domain.EventNameQuizSubmitted, func(_ context.Context, e event.Event) error {
		m.observeSubmission(e.(domain.EventQuizSubmitted).Result)
		return nil
	})

	eb.Subscribe(domain.EventNameLeaderboardRecorded, func(context.Context, event.Event) error {
		m.records.Inc()
		return nil
	})
}

func (m *Metrics) observeSubmission(r domain.SubmitResult) {
	m.submissions.Inc()
	m.percentage.Observe(float64(r.Percentage))

	for _, q := range r.Results {
		if q.Degraded() {
			m.anomalies.WithLabelValues(string(q.Anomaly)).Inc()
		}
	}
}
