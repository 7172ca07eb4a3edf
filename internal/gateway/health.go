package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"tunetalk/internal/monitoring"
	"tunetalk/internal/version"
	"tunetalk/pkg/protocol"
)

// HealthResponse is the /health payload
type HealthResponse struct {
	Status        string                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version,omitempty"`
	Uptime        string                     `json:"uptime"`
	Knowledge     string                     `json:"knowledge"`
	Conversations int                        `json:"conversations"`
	Metrics       monitoring.MetricsSnapshot `json:"metrics"`
}

// handleHealth reports gateway health. The catalog source being unreachable
// degrades the status but the gateway keeps serving.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	knowledgeStatus := "ok"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := g.pinger.Ping(ctx); err != nil {
		status = "degraded"
		knowledgeStatus = err.Error()
	}

	response := HealthResponse{
		Status:        status,
		Timestamp:     time.Now(),
		Version:       version.Info(),
		Uptime:        g.metrics.Uptime().String(),
		Knowledge:     knowledgeStatus,
		Conversations: g.store.Count(),
		Metrics:       g.metrics.Snapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("[Gateway] Failed to encode health response: %v", err)
	}
}

// handleListConversations returns summaries of live conversations
func (g *Gateway) handleListConversations(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"count": g.store.Count(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("[Gateway] Failed to encode conversations response: %v", err)
	}
}

// handleCreateConversation creates a conversation out of band. Useful for
// pre-seeding a conversation id before the client connects.
func (g *Gateway) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      string                 `json:"id,omitempty"`
		Subject protocol.SubjectEntity `json:"subjectEntity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	conv := g.store.GetOrCreate(req.ID, "", req.Subject)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(conv); err != nil {
		log.Printf("[Gateway] Failed to encode create response: %v", err)
	}
}

// handleGetConversation returns one conversation snapshot with its history
func (g *Gateway) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	conv, ok := g.store.Get(id)
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"conversation": conv,
		"messages":     g.store.History(id),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("[Gateway] Failed to encode conversation response: %v", err)
	}
}
