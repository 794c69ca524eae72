package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DepositsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockerhub_deposits_total",
		Help: "Total number of items successfully deposited.",
	})

	OtpIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockerhub_otp_issued_total",
		Help: "Total number of one-time codes issued to receivers.",
	})

	CollectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockerhub_collections_total",
		Help: "Total number of items successfully collected.",
	})

	ForceClearsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockerhub_force_clears_total",
		Help: "Total number of lockers cleared by an administrator.",
	})

	OtpFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockerhub_otp_failures_total",
		Help: "Rejected collection attempts by reason.",
	},
		[]string{"reason"},
	)

	BilledCentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockerhub_billed_cents_total",
		Help: "Sum of closed transaction amounts in cents.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockerhub_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation", "code"},
	)

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockerhub_notifications_total",
		Help: "Notification deliveries by kind and outcome.",
	},
		[]string{"kind", "outcome"},
	)

	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lockerhub_notification_queue_depth",
		Help: "Current number of notifications waiting for delivery.",
	})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lockerhub_operation_duration_seconds",
		Help:    "Latency of lifecycle operations.",
		Buckets: prometheus.DefBuckets,
	},
		[]string{"operation"},
	)
)
