package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersTotal counts transfer attempts by outcome.
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finguard",
		Name:      "transfers_total",
		Help:      "Number of transfer requests by result.",
	}, []string{"result"})

	// DispatchFailures counts feature-vector dispatches that forced a rollback.
	DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "finguard",
		Name:      "dispatch_failures_total",
		Help:      "Number of queue dispatch failures that rolled back a transfer.",
	})

	// ScoringPredictions counts classifier verdicts.
	ScoringPredictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finguard",
		Name:      "scoring_predictions_total",
		Help:      "Number of fraud classifier predictions by verdict.",
	}, []string{"verdict"})
)
