package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OffersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_submitted_total",
		Help: "Total number of offers submitted",
	})

	OffersAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_accepted_total",
		Help: "Total number of offers accepted by sellers",
	})

	OffersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offers_rejected_total",
		Help: "Total number of offers rejected",
	}, []string{"source"}) // seller, cascade

	OffersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offers_failed_total",
		Help: "Total number of offer submissions that failed validation",
	}, []string{"reason"})

	OfferResolutionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "offer_resolution_latency_seconds",
		Help:    "Latency of the accept/reject transaction",
		Buckets: prometheus.DefBuckets,
	})

	SalesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Total number of sales appended from accepted offers",
	})

	UsersRegisteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "users_registered_total",
		Help: "Total number of registered users",
	}, []string{"role"})

	PasswordResetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "password_resets_total",
		Help: "Password reset requests and confirmations",
	}, []string{"phase"})

	ImageUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_uploads_total",
		Help: "Image uploads delegated to the media service",
	}, []string{"result"})

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
