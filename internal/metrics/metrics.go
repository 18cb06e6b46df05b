package metrics

import (
	"strconv"
	"time"

	"edgerouter/internal/logging"
	"edgerouter/internal/upstream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "edgerouter"

// Collector owns a private registry. A nil *Collector is valid and records
// nothing, which is how METRICS_ENABLED=false is honoured.
type Collector struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	upstreamDuration *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec
	probeUp          *prometheus.GaugeVec
	startTime        prometheus.Gauge
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests answered by the edge listener.",
		}, []string{"zone", "rule", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent answering a request, upstream calls included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"zone"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "duration_seconds",
			Help:      "Duration of outbound calls to the origins.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"origin", "code"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Outbound calls that failed before a response was read.",
		}, []string{"origin"}),
		probeUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "up",
			Help:      "1 when the last network probe got its expected status.",
		}, []string{"name"}),
		startTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Unix time the process started.",
		}),
	}

	c.registry.MustRegister(c.requests, c.requestDuration, c.upstreamDuration, c.upstreamErrors, c.probeUp, c.startTime)
	c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.registry.MustRegister(collectors.NewGoCollector())
	c.startTime.Set(float64(time.Now().Unix()))
	return c
}

// Middleware records every edge request. It must run outside the access log
// middleware so it sees the final status code.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if c == nil {
			return ctx.Next()
		}
		start := time.Now()

		err := ctx.Next()

		zone := logging.LocalString(ctx, logging.LocalZone)
		if zone == "" {
			zone = "none"
		}
		code := strconv.Itoa(ctx.Response().StatusCode())
		c.requests.WithLabelValues(zone, logging.LocalString(ctx, logging.LocalRule), code).Inc()
		c.requestDuration.WithLabelValues(zone).Observe(time.Since(start).Seconds())
		return err
	}
}

// ObserveUpstream matches upstream.Observer.
func (c *Collector) ObserveUpstream(req *upstream.Request, status int, d time.Duration, err error) {
	if c == nil {
		return
	}
	origin := upstream.Origin(req.URL)
	if err != nil {
		c.upstreamErrors.WithLabelValues(origin).Inc()
		return
	}
	c.upstreamDuration.WithLabelValues(origin, strconv.Itoa(status)).Observe(d.Seconds())
}

func (c *Collector) SetProbe(name string, up bool) {
	if c == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	c.probeUp.WithLabelValues(name).Set(v)
}

func (c *Collector) Handler() fiber.Handler {
	if c == nil {
		return func(ctx *fiber.Ctx) error {
			return ctx.SendStatus(fiber.StatusNotFound)
		}
	}
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}
