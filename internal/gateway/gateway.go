package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"

	"tunetalk/internal/config"
	"tunetalk/internal/conversations"
	"tunetalk/internal/monitoring"
	"tunetalk/pkg/protocol"
)

// shutdownTimeout bounds how long Shutdown waits for the HTTP server and
// in-flight turns.
const shutdownTimeout = 10 * time.Second

// pinger probes the knowledge source for health reporting
type pinger interface {
	Ping(ctx context.Context) error
	Close()
}

// Collaborators are the injected domain services. Tests substitute stubs;
// main wires the real catalog client and generator.
type Collaborators struct {
	Retriever interface {
		contextRetriever
		pinger
	}
	Generator responseGenerator
}

// Gateway is the conversational session gateway. It owns the WebSocket
// endpoint, the HTTP side channel, and the lifecycle of every collaborator.
type Gateway struct {
	config   *config.Config
	registry *Registry
	store    *conversations.Store
	router   *Router
	metrics  *monitoring.GatewayMetrics
	pinger   pinger

	upgrader websocket.Upgrader
	server   *http.Server
	cron     *cron.Cron

	shutdownOnce sync.Once
	ctx          context.Context
	cancel       context.CancelFunc
}

// New creates a gateway over the given configuration and collaborators
func New(cfg *config.Config, collab Collaborators) *Gateway {
	registry := NewRegistry()
	store := conversations.NewStore()
	metrics := monitoring.NewGatewayMetrics()

	g := &Gateway{
		config:   cfg,
		registry: registry,
		store:    store,
		router:   NewRouter(registry, store, collab.Retriever, collab.Generator, metrics),
		metrics:  metrics,
		pinger:   collab.Retriever,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	if cfg.Heartbeat.Enabled {
		g.cron = cron.New()
	}
	return g
}

// Start binds the listen port and serves until ctx is cancelled. A bind
// failure is returned immediately; once serving, the gateway runs until
// shutdown and connection-level errors never propagate here.
func (g *Gateway) Start(ctx context.Context) error {
	g.ctx, g.cancel = context.WithCancel(ctx)

	router := mux.NewRouter()
	router.HandleFunc("/ws", g.handleWebSocket)
	router.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/conversations", g.handleListConversations).Methods(http.MethodGet)
	router.HandleFunc("/api/conversations", g.handleCreateConversation).Methods(http.MethodPost)
	router.HandleFunc("/api/conversations/{id}", g.handleGetConversation).Methods(http.MethodGet)

	addr := fmt.Sprintf(":%d", g.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	g.server = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	g.startHeartbeat()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Gateway] Listening on %s", addr)
		if err := g.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-g.ctx.Done():
		g.Shutdown()
		return nil
	case err := <-errCh:
		g.Shutdown()
		return fmt.Errorf("server error: %w", err)
	}
}

// Shutdown stops accepting connections, drains in-flight turns, and releases
// collaborators. Safe to call more than once.
func (g *Gateway) Shutdown() {
	g.shutdownOnce.Do(func() {
		log.Printf("[Gateway] Shutting down")
		if g.cancel != nil {
			g.cancel()
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if g.server != nil {
			if err := g.server.Shutdown(ctx); err != nil {
				log.Printf("[Gateway] HTTP shutdown: %v", err)
			}
		}

		if g.cron != nil {
			g.cron.Stop()
		}

		// Queued turns share the grace period; once it expires the deadline
		// propagates to in-flight collaborator calls.
		g.router.Shutdown(ctx)

		g.registry.CloseAll()

		if g.pinger != nil {
			g.pinger.Close()
		}
		log.Printf("[Gateway] Shutdown complete")
	})
}

// handleWebSocket upgrades the connection and runs its read loop
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade failed: %v", err)
		return
	}

	client := g.registry.Register(conn)
	g.metrics.SetConnections(g.registry.Count())

	g.registry.Send(client.ID, protocol.NewConnectionWelcome(client.ID, g.config.Agent.Name))

	go g.readLoop(client)
}

// readLoop pulls frames off the connection and hands them to the router.
// Exits on any read error, which covers both client disconnect and shutdown.
func (g *Gateway) readLoop(client *Client) {
	defer func() {
		g.registry.Deregister(client.ID)
		client.Conn.Close()
		g.metrics.SetConnections(g.registry.Count())
	}()

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Gateway] Read error for client %s: %v", client.ID, err)
			}
			return
		}
		g.router.Dispatch(client.ID, data)
	}
}
