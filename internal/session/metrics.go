package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_frames_total",
		Help: "Video frames received",
	})

	metricFramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_frames_dropped_total",
		Help: "Frames dropped before classification, by reason (decode, detect)",
	}, []string{"reason"})

	metricReported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_gestures_reported_total",
		Help: "Primary gestures reported to clients",
	}, []string{"gesture"})

	metricTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_gestures_triggered_total",
		Help: "Gestures that passed the trigger policy",
	}, []string{"gesture"})

	gaugeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_active",
		Help: "Connected streaming sessions",
	})
)
