package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tunetalk/internal/ai"
	"tunetalk/internal/conversations"
	"tunetalk/internal/intent"
	"tunetalk/internal/knowledge"
	"tunetalk/internal/monitoring"
	"tunetalk/pkg/protocol"
)

// Error codes carried on outbound error envelopes
const (
	codeBadEnvelope        = "bad_envelope"
	codeUnknownType        = "unknown_type"
	codeMissingContent     = "missing_content"
	codeMissingInsightType = "missing_insight_type"
	codeGenerationFailed   = "generation_failed"
	codeConversationBusy   = "conversation_busy"
)

// turnQueueSize bounds how many turns may wait per conversation before new
// ones are rejected with a busy error.
const turnQueueSize = 64

// workerIdleTimeout retires a conversation's worker goroutine after this much
// quiet time. The conversation itself stays in the store; a later turn starts
// a fresh worker.
const workerIdleTimeout = 2 * time.Minute

// contextRetriever fetches catalog context for a turn. Implementations never
// return an error; they degrade to a default bundle instead.
type contextRetriever interface {
	Fetch(ctx context.Context, subject protocol.SubjectEntity) *knowledge.ContextBundle
}

// responseGenerator produces assistant text. One provider call per method,
// no retries.
type responseGenerator interface {
	Opening(ctx context.Context, bundle *knowledge.ContextBundle) (string, error)
	Reply(ctx context.Context, bundle *knowledge.ContextBundle, history []ai.Message, userMessage string) (string, error)
	Insight(ctx context.Context, bundle *knowledge.ContextBundle, category string) (string, error)
}

type turn struct {
	clientID string
	envelope interface{}
}

// Router dispatches inbound envelopes to their handlers. Turns for the same
// conversation run in receipt order on a dedicated worker; turns for
// different conversations run concurrently.
type Router struct {
	registry  *Registry
	store     *conversations.Store
	retriever contextRetriever
	generator responseGenerator
	metrics   *monitoring.GatewayMetrics

	mu      sync.Mutex
	queues  map[string]chan turn
	closed  bool
	workers sync.WaitGroup

	idleTimeout time.Duration

	// turnCtx is the parent of every handler call; cancelTurns propagates the
	// shutdown deadline to in-flight collaborator calls.
	turnCtx     context.Context
	cancelTurns context.CancelFunc
}

// NewRouter creates a message router over the given collaborators
func NewRouter(registry *Registry, store *conversations.Store, retriever contextRetriever, generator responseGenerator, metrics *monitoring.GatewayMetrics) *Router {
	turnCtx, cancelTurns := context.WithCancel(context.Background())
	return &Router{
		registry:    registry,
		store:       store,
		retriever:   retriever,
		generator:   generator,
		metrics:     metrics,
		queues:      make(map[string]chan turn),
		idleTimeout: workerIdleTimeout,
		turnCtx:     turnCtx,
		cancelTurns: cancelTurns,
	}
}

// Dispatch routes one raw inbound frame from a client. Malformed frames and
// unknown types are answered with an error envelope on the same connection;
// the connection itself stays up.
func (r *Router) Dispatch(clientID string, data []byte) {
	r.metrics.MarkMessage()

	envelope, err := protocol.ParseEnvelope(data)
	if err != nil {
		log.Printf("[Router] Bad envelope from client %s: %v", clientID, err)
		r.registry.Send(clientID, protocol.NewErrorEnvelope("", codeBadEnvelope, "message could not be parsed"))
		return
	}

	switch env := envelope.(type) {
	case *protocol.StartConversation:
		if env.ConversationID == "" {
			env.ConversationID = uuid.New().String()
		}
		r.enqueue(env.ConversationID, clientID, env)

	case *protocol.UserMessage:
		if env.ConversationID == "" {
			env.ConversationID = uuid.New().String()
		}
		r.enqueue(env.ConversationID, clientID, env)

	case *protocol.GetInsights:
		if env.ConversationID == "" {
			env.ConversationID = uuid.New().String()
		}
		r.enqueue(env.ConversationID, clientID, env)

	case *protocol.UnknownEnvelope:
		log.Printf("[Router] Unknown envelope type %q from client %s", env.Type, clientID)
		r.registry.Send(clientID, protocol.NewErrorEnvelope("", codeUnknownType, "unsupported message type: "+env.Type))

	default:
		r.registry.Send(clientID, protocol.NewErrorEnvelope("", codeUnknownType, "unsupported message"))
	}
}

// enqueue places a turn on the conversation's queue, starting its worker on
// first use. A full queue rejects the turn with a busy error instead of
// blocking the reader.
func (r *Router) enqueue(conversationID, clientID string, envelope interface{}) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	queue, ok := r.queues[conversationID]
	if !ok {
		queue = make(chan turn, turnQueueSize)
		r.queues[conversationID] = queue
		r.workers.Add(1)
		go r.worker(conversationID, queue)
	}

	// The send stays under the lock so Drain cannot close the queue between
	// the lookup and the send. It never blocks: the channel is buffered and
	// the full case falls through.
	accepted := false
	select {
	case queue <- turn{clientID: clientID, envelope: envelope}:
		accepted = true
	default:
	}
	r.mu.Unlock()

	if !accepted {
		log.Printf("[Router] Turn queue full for conversation %s", conversationID)
		r.registry.Send(clientID, protocol.NewErrorEnvelope(conversationID, codeConversationBusy, "conversation is processing too many messages"))
	}
}

func (r *Router) worker(conversationID string, queue chan turn) {
	defer r.workers.Done()

	idle := time.NewTimer(r.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case t, ok := <-queue:
			if !ok {
				return
			}
			r.handle(t)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.idleTimeout)

		case <-idle.C:
			// Retire after quiet time. Removal happens under the lock, so a
			// concurrent enqueue either reaches this queue before removal or
			// creates a fresh one after.
			r.mu.Lock()
			if !r.closed && len(queue) == 0 {
				delete(r.queues, conversationID)
				r.mu.Unlock()
				return
			}
			r.mu.Unlock()
			idle.Reset(r.idleTimeout)
		}
	}
}

func (r *Router) handle(t turn) {
	ctx := r.turnCtx

	switch env := t.envelope.(type) {
	case *protocol.StartConversation:
		r.handleStart(ctx, t.clientID, env)
	case *protocol.UserMessage:
		r.handleUserMessage(ctx, t.clientID, env)
	case *protocol.GetInsights:
		r.handleGetInsights(ctx, t.clientID, env)
	}
}

// Drain stops accepting turns and waits for queued ones to finish
func (r *Router) Drain() {
	r.Shutdown(context.Background())
}

// Shutdown stops accepting turns and waits for in-flight ones to finish.
// When ctx expires first, the deadline propagates to in-flight collaborator
// calls and the wait resumes until they return. Idempotent.
func (r *Router) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		for _, queue := range r.queues {
			close(queue)
		}
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.cancelTurns()
		<-done
	}
}

func (r *Router) handleStart(ctx context.Context, clientID string, env *protocol.StartConversation) {
	subject := env.Context.SubjectEntity
	conv := r.store.GetOrCreate(env.ConversationID, clientID, subject)
	r.store.SetOwner(env.ConversationID, clientID)
	if !conv.Subject.IsZero() {
		subject = conv.Subject
	}

	bundle := r.retriever.Fetch(ctx, subject)
	opening, err := r.generator.Opening(ctx, bundle)
	if err != nil {
		log.Printf("[Router] Opening generation failed for conversation %s: %v", env.ConversationID, err)
		r.metrics.MarkTurnFailed()
		r.registry.Send(clientID, protocol.NewErrorEnvelope(env.ConversationID, codeGenerationFailed, "could not start the conversation, please try again"))
		return
	}

	if appendErr := r.store.Append(env.ConversationID, conversations.Message{
		Role:    conversations.RoleAssistant,
		Content: opening,
	}); appendErr != nil {
		log.Printf("[Router] Append failed for conversation %s: %v", env.ConversationID, appendErr)
	}

	r.metrics.MarkTurnCompleted()
	r.registry.Send(clientID, protocol.NewAIResponse(env.ConversationID, opening))
}

func (r *Router) handleUserMessage(ctx context.Context, clientID string, env *protocol.UserMessage) {
	if env.Content == "" {
		r.registry.Send(clientID, protocol.NewErrorEnvelope(env.ConversationID, codeMissingContent, "message content is required"))
		return
	}

	subject := env.Context.SubjectEntity
	conv := r.store.GetOrCreate(env.ConversationID, clientID, subject)
	r.store.SetOwner(env.ConversationID, clientID)
	if !conv.Subject.IsZero() {
		subject = conv.Subject
	}

	// History excludes the new message; the user turn is recorded before
	// generation so a failed turn still keeps it.
	history := toAIMessages(r.store.History(env.ConversationID))
	if err := r.store.Append(env.ConversationID, conversations.Message{
		Role:    conversations.RoleUser,
		Content: env.Content,
	}); err != nil {
		log.Printf("[Router] Append failed for conversation %s: %v", env.ConversationID, err)
	}

	bundle := r.retriever.Fetch(ctx, subject)
	reply, err := r.generator.Reply(ctx, bundle, history, env.Content)
	if err != nil {
		log.Printf("[Router] Reply generation failed for conversation %s: %v", env.ConversationID, err)
		r.metrics.MarkTurnFailed()
		r.registry.Send(clientID, protocol.NewErrorEnvelope(env.ConversationID, codeGenerationFailed, "could not generate a response, please try again"))
		return
	}

	if appendErr := r.store.Append(env.ConversationID, conversations.Message{
		Role:    conversations.RoleAssistant,
		Content: reply,
	}); appendErr != nil {
		log.Printf("[Router] Append failed for conversation %s: %v", env.ConversationID, appendErr)
	}

	r.metrics.MarkTurnCompleted()
	r.registry.Send(clientID, protocol.NewAIResponse(env.ConversationID, reply))

	// Side insight is best effort: a failure here never fails the turn
	tag := intent.Classify(env.Content)
	category, ok := intent.InsightCategory(tag)
	if !ok {
		return
	}
	insight, err := r.generator.Insight(ctx, bundle, category)
	if err != nil {
		log.Printf("[Router] Side insight failed for conversation %s: %v", env.ConversationID, err)
		return
	}
	r.metrics.MarkInsight()
	r.registry.Send(clientID, protocol.NewArtistInsight(env.ConversationID, category, insight))
}

func (r *Router) handleGetInsights(ctx context.Context, clientID string, env *protocol.GetInsights) {
	category := env.Context.InsightType
	if category == "" {
		r.registry.Send(clientID, protocol.NewErrorEnvelope(env.ConversationID, codeMissingInsightType, "insightType is required"))
		return
	}

	subject := env.Context.SubjectEntity
	conv := r.store.GetOrCreate(env.ConversationID, clientID, subject)
	r.store.SetOwner(env.ConversationID, clientID)
	if !conv.Subject.IsZero() {
		subject = conv.Subject
	}

	bundle := r.retriever.Fetch(ctx, subject)
	insight, err := r.generator.Insight(ctx, bundle, category)
	if err != nil {
		log.Printf("[Router] Insight generation failed for conversation %s: %v", env.ConversationID, err)
		r.metrics.MarkTurnFailed()
		r.registry.Send(clientID, protocol.NewErrorEnvelope(env.ConversationID, codeGenerationFailed, "could not generate insights, please try again"))
		return
	}

	r.metrics.MarkTurnCompleted()
	r.metrics.MarkInsight()
	r.registry.Send(clientID, protocol.NewArtistInsight(env.ConversationID, category, insight))

	card, err := insightCard(bundle.Artist.Name, category, insight)
	if err != nil {
		log.Printf("[Router] Insight card encoding failed for conversation %s: %v", env.ConversationID, err)
		return
	}
	r.registry.Send(clientID, protocol.NewGeneratedComponent(env.ConversationID, card))
}

// insightCard renders the renderable UI block for an insight
func insightCard(artist, category, content string) (string, error) {
	card := map[string]string{
		"component":   "insight_card",
		"artist":      artist,
		"insightType": category,
		"content":     content,
	}
	data, err := json.Marshal(card)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func toAIMessages(history []conversations.Message) []ai.Message {
	out := make([]ai.Message, 0, len(history))
	for _, msg := range history {
		out = append(out, ai.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}
