package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/hotelledger/internal/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	hotelRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	hotelRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hotel_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	hotelBookingsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_bookings_submitted_total",
		Help: "Total booking submissions by outcome.",
	}, []string{"result"})

	hotelBlocksMinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotel_blocks_mined_total",
		Help: "Total blocks appended to the booking chain.",
	})

	hotelBookingsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotel_bookings_confirmed_total",
		Help: "Total bookings sealed into blocks.",
	})

	hotelChainBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotel_chain_blocks",
		Help: "Current number of blocks, genesis included.",
	})

	hotelPendingTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotel_pending_transactions",
		Help: "Bookings waiting for the next block.",
	})

	hotelChainValid = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotel_chain_valid",
		Help: "1 if the last integrity check passed, 0 otherwise.",
	})

	hotelIntegrityAuditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_integrity_audits_total",
		Help: "Total background integrity audits by outcome.",
	}, []string{"result"})

	hotelWebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_webhook_deliveries_total",
		Help: "Total webhook delivery attempts by outcome.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		hotelRequestsTotal.WithLabelValues(method, path, status).Inc()
		hotelRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordSubmission records an accepted or rejected booking.
func RecordSubmission(accepted bool) {
	if accepted {
		hotelBookingsSubmittedTotal.WithLabelValues("accepted").Inc()
	} else {
		hotelBookingsSubmittedTotal.WithLabelValues("rejected").Inc()
	}
}

// RecordBlockMined records a newly appended block.
func RecordBlockMined(b *ledger.Block) {
	hotelBlocksMinedTotal.Inc()
	hotelBookingsConfirmedTotal.Add(float64(b.Data.Len()))
}

// ObserveSnapshot refreshes the chain gauges from a ledger snapshot.
func ObserveSnapshot(s ledger.Snapshot) {
	hotelChainBlocks.Set(float64(len(s.Chain)))
	hotelPendingTransactions.Set(float64(len(s.Pending)))
	if s.Valid {
		hotelChainValid.Set(1)
	} else {
		hotelChainValid.Set(0)
	}
}

// RecordAudit records a background integrity audit.
func RecordAudit(valid bool) {
	hotelIntegrityAuditsTotal.WithLabelValues(resultLabel(valid, "valid", "compromised")).Inc()
	if valid {
		hotelChainValid.Set(1)
	} else {
		hotelChainValid.Set(0)
	}
}

// RecordWebhookDelivery records one webhook delivery attempt.
func RecordWebhookDelivery(success bool) {
	hotelWebhookDeliveriesTotal.WithLabelValues(resultLabel(success, "success", "failure")).Inc()
}

func resultLabel(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
