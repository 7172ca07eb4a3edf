package monitoring

import (
	"sync/atomic"
	"time"
)

// GatewayMetrics tracks gateway activity counters. All methods are safe for
// concurrent use.
type GatewayMetrics struct {
	startTime time.Time

	messagesReceived atomic.Int64
	turnsCompleted   atomic.Int64
	turnsFailed      atomic.Int64
	insightsEmitted  atomic.Int64
	connections      atomic.Int64
}

// MetricsSnapshot is a point-in-time view for the health endpoint and
// heartbeat log.
type MetricsSnapshot struct {
	UptimeSeconds    int64 `json:"uptime_seconds"`
	MessagesReceived int64 `json:"messages_received"`
	TurnsCompleted   int64 `json:"turns_completed"`
	TurnsFailed      int64 `json:"turns_failed"`
	InsightsEmitted  int64 `json:"insights_emitted"`
	Connections      int64 `json:"connections"`
}

// NewGatewayMetrics creates a metrics tracker anchored at now
func NewGatewayMetrics() *GatewayMetrics {
	return &GatewayMetrics{startTime: time.Now()}
}

// Uptime returns the time since the gateway started
func (m *GatewayMetrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// MarkMessage records one received inbound envelope
func (m *GatewayMetrics) MarkMessage() {
	m.messagesReceived.Add(1)
}

// MarkTurnCompleted records one successfully completed turn
func (m *GatewayMetrics) MarkTurnCompleted() {
	m.turnsCompleted.Add(1)
}

// MarkTurnFailed records one failed turn
func (m *GatewayMetrics) MarkTurnFailed() {
	m.turnsFailed.Add(1)
}

// MarkInsight records one emitted insight envelope
func (m *GatewayMetrics) MarkInsight() {
	m.insightsEmitted.Add(1)
}

// SetConnections updates the live connection gauge
func (m *GatewayMetrics) SetConnections(n int) {
	m.connections.Store(int64(n))
}

// Snapshot returns a consistent-enough view of all counters
func (m *GatewayMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds:    int64(m.Uptime().Seconds()),
		MessagesReceived: m.messagesReceived.Load(),
		TurnsCompleted:   m.turnsCompleted.Load(),
		TurnsFailed:      m.turnsFailed.Load(),
		InsightsEmitted:  m.insightsEmitted.Load(),
		Connections:      m.connections.Load(),
	}
}
