package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SharesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_shares_created_total",
			Help: "Share links minted for a (listing, member) pair",
		},
	)

	ProspectsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_prospects_total",
			Help: "Prospect submissions by action and whether a referrer was resolved",
		},
		[]string{"action", "attributed"},
	)

	SalesConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_sales_confirmed_total",
			Help: "Confirmed sales by whether a Love Gift was credited",
		},
		[]string{"credited"},
	)

	LoveGiftCredited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_love_gift_credited_total",
			Help: "Sum of Love Gift amounts credited to referrers",
		},
	)

	BackgroundEffectsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_effects_failed_total",
			Help: "Fire-and-forget effects that failed or panicked",
		},
		[]string{"kind"},
	)
)
