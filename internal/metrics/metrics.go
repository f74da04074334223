package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceseminars_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ceseminars_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	publishedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceseminars_events_published_total",
		Help: "Domain events handed to the broker by subject and outcome.",
	}, []string{"subject", "outcome"})

	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceseminars_job_runs_total",
		Help: "Scheduled job runs by job and outcome.",
	}, []string{"job", "outcome"})

	jobItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceseminars_job_items_total",
		Help: "Items processed by scheduled jobs.",
	}, []string{"job"})

	consumedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ceseminars_messages_consumed_total",
		Help: "Broker messages handled by subject and outcome.",
	}, []string{"subject", "outcome"})
)

// Middleware records request count and latency per matched route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveJob counts one run of a scheduled job and the items it handled
func ObserveJob(job string, items int, err error) {
	jobRuns.WithLabelValues(job, outcome(err)).Inc()
	if items > 0 {
		jobItems.WithLabelValues(job).Add(float64(items))
	}
}

// ObserveConsumed counts one handled broker message
func ObserveConsumed(subject string, err error) {
	consumedMessages.WithLabelValues(subject, outcome(err)).Inc()
}

// Publisher is the broker contract wrapped by CountingPublisher
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// CountingPublisher counts every publish attempt before delegating
type CountingPublisher struct {
	Next Publisher
}

func (p CountingPublisher) Publish(subject string, data interface{}) error {
	err := p.Next.Publish(subject, data)
	publishedEvents.WithLabelValues(subject, outcome(err)).Inc()
	return err
}
