package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gaugeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_clients",
		Help: "Connected websocket clients",
	})

	metricSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_send_failures_total",
		Help: "Messages that could not be queued for a client",
	})

	metricRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_rejected_total",
		Help: "Refused websocket connections, by reason",
	}, []string{"reason"})
)
