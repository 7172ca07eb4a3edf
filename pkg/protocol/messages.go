package protocol

import (
	"encoding/json"
	"time"
)

// EnvelopeType defines the type tag of a wire envelope
type EnvelopeType string

const (
	// Inbound envelope types (client -> gateway)
	TypeStartConversation EnvelopeType = "start_conversation"
	TypeUserMessage       EnvelopeType = "user_message"
	TypeGetInsights       EnvelopeType = "get_insights"

	// Outbound envelope types (gateway -> client)
	TypeConnection         EnvelopeType = "connection"          // connect acknowledgement with assigned id
	TypeAIResponse         EnvelopeType = "ai_response"         // assistant chat reply
	TypeArtistInsight      EnvelopeType = "artist_insight"      // supplementary insight for a chat turn
	TypeGeneratedComponent EnvelopeType = "generated_component" // renderable UI block
	TypeError              EnvelopeType = "error"               // per-turn error notification
)

// SubjectEntity is the opaque reference to the entity a conversation is
// about. The gateway only reads id/name to key knowledge lookups; everything
// else about the entity lives in the catalog service.
type SubjectEntity struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Ref returns the lookup key for the knowledge source, preferring the id.
func (s SubjectEntity) Ref() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Name
}

// IsZero reports whether no entity reference was supplied.
func (s SubjectEntity) IsZero() bool {
	return s.ID == "" && s.Name == ""
}

// ConversationContext carries per-envelope context from the client
type ConversationContext struct {
	SubjectEntity SubjectEntity `json:"subjectEntity"`
	InsightType   string        `json:"insightType,omitempty"`
}

// baseEnvelope is used to sniff the type tag before full decoding
type baseEnvelope struct {
	Type EnvelopeType `json:"type"`
}

// StartConversation opens (or resumes) a conversation about a subject entity
type StartConversation struct {
	Type           EnvelopeType        `json:"type"`
	ConversationID string              `json:"conversationId,omitempty"`
	Context        ConversationContext `json:"context"`
}

// UserMessage is one chat turn from the user
type UserMessage struct {
	Type           EnvelopeType        `json:"type"`
	ConversationID string              `json:"conversationId,omitempty"`
	Content        string              `json:"content"`
	Context        ConversationContext `json:"context"`
}

// GetInsights requests insight generation for an explicit category without a
// preceding chat turn
type GetInsights struct {
	Type           EnvelopeType        `json:"type"`
	ConversationID string              `json:"conversationId,omitempty"`
	Context        ConversationContext `json:"context"`
}

// UnknownEnvelope is returned for type tags the gateway does not handle. The
// router answers these with an error envelope instead of dropping the
// connection.
type UnknownEnvelope struct {
	Type string
}

// ParseEnvelope decodes an inbound wire message into its typed variant
func ParseEnvelope(data []byte) (interface{}, error) {
	var base baseEnvelope
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, err
	}

	switch base.Type {
	case TypeStartConversation:
		var env StartConversation
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		return &env, nil

	case TypeUserMessage:
		var env UserMessage
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		return &env, nil

	case TypeGetInsights:
		var env GetInsights
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		return &env, nil

	default:
		return &UnknownEnvelope{Type: string(base.Type)}, nil
	}
}

// Outbound is the envelope the gateway writes back to clients. Timestamp
// marshals as RFC 3339.
type Outbound struct {
	Type           EnvelopeType `json:"type"`
	ConversationID string       `json:"conversationId,omitempty"`
	Content        string       `json:"content,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
	ConnectionID   string       `json:"connectionId,omitempty"`
	InsightType    string       `json:"insightType,omitempty"`
	Code           string       `json:"code,omitempty"`
}

// NewConnectionWelcome acknowledges a new connection with its assigned id
func NewConnectionWelcome(connectionID, agentName string) *Outbound {
	return &Outbound{
		Type:         TypeConnection,
		ConnectionID: connectionID,
		Content:      agentName,
		Timestamp:    time.Now().UTC(),
	}
}

// NewAIResponse wraps an assistant chat reply
func NewAIResponse(conversationID, content string) *Outbound {
	return &Outbound{
		Type:           TypeAIResponse,
		ConversationID: conversationID,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}
}

// NewArtistInsight wraps a supplementary insight emitted alongside a chat turn
func NewArtistInsight(conversationID, insightType, content string) *Outbound {
	return &Outbound{
		Type:           TypeArtistInsight,
		ConversationID: conversationID,
		InsightType:    insightType,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}
}

// NewGeneratedComponent wraps a renderable UI block (JSON content)
func NewGeneratedComponent(conversationID, content string) *Outbound {
	return &Outbound{
		Type:           TypeGeneratedComponent,
		ConversationID: conversationID,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}
}

// NewErrorEnvelope reports a per-turn failure without dropping the connection
func NewErrorEnvelope(conversationID, code, message string) *Outbound {
	return &Outbound{
		Type:           TypeError,
		ConversationID: conversationID,
		Code:           code,
		Content:        message,
		Timestamp:      time.Now().UTC(),
	}
}
