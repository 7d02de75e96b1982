// Package metrics provides the prometheus registry, request middleware, and
// the handler that serves the metrics endpoint.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/logging"
)

var requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "http",
	Name:      "request_duration_seconds",
	Help:      "A histogram of duration, in seconds, handling HTTP requests.",
	Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
}, []string{"host", "method", "path", "status"})

// Middleware registers metrics with promRegistry and returns a middleware
// that emits a request_duration_seconds metric on every request.
//
// The metrics registered with the registry include:
//   - the standard process metrics
//   - the standard go metrics
//   - the request_duration_seconds metric emitted by the middleware
func Middleware(promRegistry prometheus.Registerer) gin.HandlerFunc {
	promRegistry.MustRegister(requestDuration)
	promRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promRegistry.MustRegister(collectors.NewGoCollector())

	return func(c *gin.Context) {
		t := time.Now()

		c.Next()

		requestDuration.With(prometheus.Labels{
			"host":   c.Request.Host,
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": strconv.Itoa(c.Writer.Status()),
		}).Observe(time.Since(t).Seconds())
	}
}

// NewHandler creates a new gin.Engine, and adds a 'GET /metrics' handler to
// it. The handler serves prometheus metrics from the promRegistry.
func NewHandler(promRegistry *prometheus.Registry) *gin.Engine {
	engine := gin.New()
	engine.GET("/metrics", func(c *gin.Context) {
		handler := promhttp.InstrumentMetricHandler(
			promRegistry,
			promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
		handler.ServeHTTP(c.Writer, c.Request)
	})
	return engine
}

// NewRegistry builds a registry with build info, database pool stats, and
// gauges for the number of keysets and keys.
func NewRegistry(db *gorm.DB) *prometheus.Registry {
	registry := prometheus.NewRegistry()

	if rawDB, err := db.DB(); err == nil {
		registry.MustRegister(collectors.NewDBStatsCollector(rawDB, db.Dialector.Name()))
	}

	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "A metric with a constant '1' value labeled by branch, version, commit, and date from which keysmith was built",
		ConstLabels: prometheus.Labels{
			"branch":  internal.Branch,
			"version": internal.FullVersion(),
			"commit":  internal.Commit,
			"date":    internal.Date,
		},
	}, func() float64 { return 1 }))

	registry.MustRegister(NewGaugeCollector(prometheus.Opts{
		Namespace: "keysmith",
		Name:      "keysets",
		Help:      "The total number of keysets",
	}, []string{}, func() []Value {
		var count int64
		if err := db.Raw("SELECT COUNT(*) FROM keysets WHERE deleted_at IS NULL").Scan(&count).Error; err != nil {
			logging.L.Warn().Err(err).Msg("keysets")
			return []Value{}
		}
		return []Value{{Value: float64(count)}}
	}))

	registry.MustRegister(NewGaugeCollector(prometheus.Opts{
		Namespace: "keysmith",
		Name:      "keys",
		Help:      "The total number of keys, by status",
	}, []string{"status"}, func() []Value {
		var results []struct {
			Status string
			Count  int64
		}
		err := db.Raw("SELECT status, COUNT(*) AS count FROM keys WHERE deleted_at IS NULL GROUP BY status").Scan(&results).Error
		if err != nil {
			logging.L.Warn().Err(err).Msg("keys")
			return []Value{}
		}

		values := make([]Value, 0, len(results))
		for _, result := range results {
			values = append(values, Value{
				Value:       float64(result.Count),
				LabelValues: []string{result.Status},
			})
		}
		return values
	}))

	return registry
}
