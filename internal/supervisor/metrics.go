package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supervisor_switches_total",
		Help: "Instrument switch requests, by result",
	}, []string{"result"})

	metricSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supervisor_signals_total",
		Help: "Signals sent to worker process groups, by result",
	}, []string{"result"})

	metricForceKills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supervisor_force_kills_total",
		Help: "Workers that ignored the graceful signal and were killed",
	})

	metricSweepKills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supervisor_sweep_kills_total",
		Help: "Stray worker processes killed by the orphan sweep",
	})

	gaugeRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "supervisor_running",
		Help: "1 while an instrument worker is running",
	})
)
