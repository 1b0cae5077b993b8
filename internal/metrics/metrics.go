package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the long-running pieces of the bot. Exposed on the /metrics
// endpoint next to the websocket hub.

// WorkerIterations counts completed work cycles per worker.
var WorkerIterations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "worker",
		Name:      "iterations_total",
		Help:      "Total number of work iterations per worker",
	},
	[]string{"worker"},
)

// WorkerFailures counts failed work cycles per worker.
var WorkerFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "worker",
		Name:      "failures_total",
		Help:      "Total number of failed work iterations per worker",
	},
	[]string{"worker"},
)

// ExchangeRequests counts HTTP requests issued to the exchange.
var ExchangeRequests = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "tradebot",
		Subsystem: "exchange",
		Name:      "requests_total",
		Help:      "Total number of requests issued to the exchange API",
	},
)
