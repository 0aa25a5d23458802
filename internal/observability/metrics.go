package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServiceName labels logs and health responses
const ServiceName = "alfred"

// Pipeline stages observed by TurnMetrics
const (
	StageTranscribe = "transcribe"
	StageGenerate   = "generate"
	StageSynthesize = "synthesize"
	StagePlayback   = "playback"
)

var (
	// Turn metrics
	turnsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alfred_turns_in_flight",
		Help: "Number of turns currently running (0 or 1)",
	})

	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alfred_turns_total",
		Help: "Total number of turns by outcome",
	}, []string{"outcome"})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alfred_turn_duration_seconds",
		Help:    "Duration of a turn from trigger to finalize",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	})

	rejectedGestures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alfred_rejected_gestures_total",
		Help: "Gestures rejected because a turn was already in flight",
	})

	// Stage metrics
	stageRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alfred_stage_requests_total",
		Help: "Total number of pipeline stage executions",
	}, []string{"stage", "status"})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alfred_stage_latency_seconds",
		Help:    "Pipeline stage latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	replays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alfred_replays_total",
		Help: "Replay requests by status",
	}, []string{"status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alfred_errors_total",
		Help: "Total number of errors",
	}, []string{"kind", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alfred_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alfred_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alfred_audio_bytes_total",
		Help: "Total audio bytes captured or synthesized",
	}, []string{"direction"}) // direction: "in" or "out"
)

// TurnMetrics tracks metrics for a single turn
type TurnMetrics struct {
	turnID    string
	startTime time.Time
	stages    map[string]time.Time
	mu        sync.Mutex
}

// NewTurnMetrics creates a metrics tracker and marks the turn in flight
func NewTurnMetrics(turnID string) *TurnMetrics {
	turnsInFlight.Inc()
	return &TurnMetrics{
		turnID:    turnID,
		startTime: time.Now(),
		stages:    make(map[string]time.Time),
	}
}

// StageStart records the start of a pipeline stage
func (m *TurnMetrics) StageStart(stage string) {
	m.mu.Lock()
	m.stages[stage] = time.Now()
	m.mu.Unlock()
}

// StageEnd records the end of a pipeline stage
func (m *TurnMetrics) StageEnd(stage string, success bool) {
	m.mu.Lock()
	start, ok := m.stages[stage]
	delete(m.stages, stage)
	m.mu.Unlock()

	if ok {
		stageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	stageRequests.WithLabelValues(stage, status).Inc()
}

// Finish records the outcome and clears the in-flight gauge
func (m *TurnMetrics) Finish(outcome string) {
	turnsInFlight.Dec()
	turnsTotal.WithLabelValues(outcome).Inc()
	turnDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordStage records a stage that ran outside a turn's tracker
func RecordStage(stage string, d time.Duration, success bool) {
	stageLatency.WithLabelValues(stage).Observe(d.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	stageRequests.WithLabelValues(stage, status).Inc()
}

// RecordError records an error
func RecordError(kind, component string) {
	errorsTotal.WithLabelValues(kind, component).Inc()
}

// RecordRejectedGesture counts a gesture refused while a turn was running
func RecordRejectedGesture() {
	rejectedGestures.Inc()
}

// RecordReplay counts a replay request
func RecordReplay(status string) {
	replays.WithLabelValues(status).Inc()
}

// RecordAudioBytes records audio bytes processed
func RecordAudioBytes(direction string, bytes int64) {
	audioBytes.WithLabelValues(direction).Add(float64(bytes))
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
