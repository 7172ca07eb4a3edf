package gateway

import (
	"context"
	"log"
	"time"
)

// defaultHeartbeatSchedule logs activity stats once a minute
const defaultHeartbeatSchedule = "@every 1m"

// startHeartbeat schedules the periodic stats log when enabled
func (g *Gateway) startHeartbeat() {
	if g.cron == nil {
		return
	}

	schedule := g.config.Heartbeat.Schedule
	if schedule == "" {
		schedule = defaultHeartbeatSchedule
	}

	_, err := g.cron.AddFunc(schedule, func() {
		snap := g.metrics.Snapshot()
		log.Printf("[Heartbeat] uptime=%ds connections=%d conversations=%d messages=%d turns_ok=%d turns_failed=%d insights=%d",
			snap.UptimeSeconds, snap.Connections, g.store.Count(),
			snap.MessagesReceived, snap.TurnsCompleted, snap.TurnsFailed, snap.InsightsEmitted)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.pinger.Ping(ctx); err != nil {
			log.Printf("[Heartbeat] Catalog probe failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("[Heartbeat] Invalid schedule %q: %v", schedule, err)
		return
	}

	g.cron.Start()
	log.Printf("[Heartbeat] Scheduled stats log (%s)", schedule)
}
