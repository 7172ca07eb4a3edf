package conversations

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"tunetalk/pkg/protocol"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrConversationNotFound is returned when appending to an unknown
// conversation id. Callers must GetOrCreate first.
var ErrConversationNotFound = errors.New("conversation not found")

// Message is a single turn in a conversation. Immutable once appended.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a read-only snapshot of a stored conversation. Message
// history is exposed separately via History so snapshots never share the
// underlying slice.
type Conversation struct {
	ID                string                 `json:"id"`
	OwnerConnectionID string                 `json:"owner_connection_id,omitempty"`
	Subject           protocol.SubjectEntity `json:"subject"`
	CreatedAt         time.Time              `json:"created_at"`
	MessageCount      int                    `json:"message_count"`
}

type record struct {
	id        string
	owner     string
	subject   protocol.SubjectEntity
	createdAt time.Time
	messages  []Message
}

func (r *record) snapshot() Conversation {
	return Conversation{
		ID:                r.id,
		OwnerConnectionID: r.owner,
		Subject:           r.subject,
		CreatedAt:         r.createdAt,
		MessageCount:      len(r.messages),
	}
}

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	records map[string]*record
}

// Store holds all conversations for the process lifetime. It is sharded so
// that appends to unrelated conversations never contend on the same lock.
type Store struct {
	shards [shardCount]shard
}

// NewStore creates an empty conversation store
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].records = make(map[string]*record)
	}
	return s
}

func (s *Store) shard(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.shards[h.Sum32()%shardCount]
}

// GetOrCreate returns the conversation for id, creating it if unknown. For an
// existing conversation the owner and subject arguments are ignored: the
// first writer binds the subject.
func (s *Store) GetOrCreate(id, ownerConnectionID string, subject protocol.SubjectEntity) Conversation {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if rec, ok := sh.records[id]; ok {
		return rec.snapshot()
	}

	rec := &record{
		id:        id,
		owner:     ownerConnectionID,
		subject:   subject,
		createdAt: time.Now().UTC(),
	}
	sh.records[id] = rec
	return rec.snapshot()
}

// Get returns a snapshot of the conversation, if it exists
func (s *Store) Get(id string) (Conversation, bool) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.records[id]
	if !ok {
		return Conversation{}, false
	}
	return rec.snapshot(), true
}

// Append adds a message to the conversation history in call order
func (s *Store) Append(id string, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[id]
	if !ok {
		return ErrConversationNotFound
	}
	rec.messages = append(rec.messages, msg)
	return nil
}

// History returns a copy of the conversation's message history in append
// order. Unknown ids yield an empty history.
func (s *Store) History(id string) []Message {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.records[id]
	if !ok {
		return nil
	}
	out := make([]Message, len(rec.messages))
	copy(out, rec.messages)
	return out
}

// SetOwner reassigns the connection that receives the conversation's
// outbound messages. Used when a client reconnects and resumes by id.
func (s *Store) SetOwner(id, connectionID string) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if rec, ok := sh.records[id]; ok {
		rec.owner = connectionID
	}
}

// Count returns the number of stored conversations
func (s *Store) Count() int {
	total := 0
	for i := range s.shards {
		s.shards[i].mu.RLock()
		total += len(s.shards[i].records)
		s.shards[i].mu.RUnlock()
	}
	return total
}
