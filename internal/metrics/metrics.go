package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nftmarket",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nftmarket",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	nftsMinted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "catalog",
			Name:      "nfts_minted_total",
			Help:      "Total number of NFTs created.",
		},
	)

	purchases = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "marketplace",
			Name:      "purchases_total",
			Help:      "Total number of completed purchases.",
		},
	)

	purchaseVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "marketplace",
			Name:      "purchase_volume_total",
			Help:      "Sum of the prices of all completed purchases.",
		},
	)

	purchaseConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "marketplace",
			Name:      "purchase_conflicts_total",
			Help:      "Purchases rejected because the listing changed while they ran.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		nftsMinted,
		purchases,
		purchaseVolume,
		purchaseConflicts,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registered collectors on a Fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latencies per route template.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		httpInFlight.Inc()
		start := time.Now()
		err := c.Next()
		httpInFlight.Dec()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// NFTMinted counts a newly created NFT.
func NFTMinted() {
	nftsMinted.Inc()
}

// Purchase records a completed sale at price.
func Purchase(price float64) {
	purchases.Inc()
	purchaseVolume.Add(price)
}

// PurchaseConflict records a sale that lost a race for the listing.
func PurchaseConflict() {
	purchaseConflicts.Inc()
}
