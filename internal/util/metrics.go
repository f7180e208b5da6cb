package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_completed_total",
		Help: "Total number of committed sales",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of checkout commit operations",
		Buckets: prometheus.DefBuckets,
	})

	CartLinesClampedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_lines_clamped_total",
		Help: "Total number of cart lines clamped or dropped because stock shrank",
	})

	StockDecrementsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_decrements_failed_total",
		Help: "Total number of decrements rejected for insufficient stock",
	})

	StockLowEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_low_events_total",
		Help: "Total number of low-stock events published",
	})

	InvoicesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoices_written_total",
		Help: "Total number of receipt documents written",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
