package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "api",
	Subsystem: "websockets",
	Name:      "conns_total",
})

var WhisperQueryTime = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "transcriber",
	Subsystem: "whisper",
	Name:      "request_seconds",
})
var WhisperErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "transcriber",
	Subsystem: "whisper",
	Name:      "errors_total",
}, []string{"err_code"})
var WhisperRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "transcriber",
	Subsystem: "whisper",
	Name:      "retries_total",
})

var TranscribedSeconds = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "transcriber",
	Subsystem: "audio",
	Name:      "transcribed_seconds_total",
})
var TranscriptionCost = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "transcriber",
	Subsystem: "audio",
	Name:      "cost_usd_total",
})

var TranscriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "transcriber",
	Subsystem: "audio",
	Name:      "request_total",
}, []string{"outcome"})
