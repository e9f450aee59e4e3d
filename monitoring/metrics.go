package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsInitiated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_initiated_total",
		Help: "Checkout sessions opened",
	})

	PaymentsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_completed_total",
		Help: "Transactions that reached completed",
	})

	PaymentsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Transactions that reached failed, by failure code",
	}, []string{"code"})

	RefundsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_processed_total",
		Help: "Refund records appended",
	})

	RetriesAttempted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_retries_total",
		Help: "Retry attempts started by the scheduler or callers",
	})

	TicketsMinted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_minted_total",
		Help: "Tickets created at completion",
	})

	GateScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_scans_total",
		Help: "Gate scan attempts by outcome",
	}, []string{"outcome"})

	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_received_total",
		Help: "Webhook deliveries by event and disposition",
	}, []string{"event", "disposition"})
)
