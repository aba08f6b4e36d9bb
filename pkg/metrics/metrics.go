// Package metrics holds the Prometheus collectors of the ledger service.
package metrics

import (
	"errors"

	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeRecorded          = "recorded"
	OutcomeReplayed          = "replayed"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeContention        = "contention"
	OutcomeRejected          = "rejected"
	OutcomeError             = "error"
)

var (
	LedgerSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "submissions_total",
			Help:      "Balance mutations submitted to the ledger by reason and outcome",
		},
		[]string{"reason", "outcome"},
	)

	LedgerSubmitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "submit_duration_seconds",
			Help:      "Duration of ledger submissions including lock waits and retries",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"outcome"},
	)

	GRPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)

	GRPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method"},
	)
)

// SubmitOutcome classifies the result of a ledger submission.
func SubmitOutcome(replayed bool, err error) string {
	switch {
	case err == nil && replayed:
		return OutcomeReplayed
	case err == nil:
		return OutcomeRecorded
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return OutcomeInsufficientFunds
	case errors.Is(err, ledger.ErrContention):
		return OutcomeContention
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidReason),
		errors.Is(err, ledger.ErrIdempotencyKeyRequired),
		errors.Is(err, ledger.ErrIdempotencyKeyTooLong):
		return OutcomeRejected
	}
	return OutcomeError
}

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
