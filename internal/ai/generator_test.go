package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunetalk/internal/knowledge"
	"tunetalk/pkg/protocol"
)

func testBundle() *knowledge.ContextBundle {
	return &knowledge.ContextBundle{
		Artist: knowledge.Artist{ID: "artist-1", Name: "Artist X", Genres: []string{"ambient"}},
		Albums: []knowledge.Album{{Title: "First Light", Year: 2001}},
	}
}

func TestReplyBuildsSingleRequest(t *testing.T) {
	mock := NewMockProvider("mock")
	mock.AddResponse("Sure, here's more about them.")
	gen := NewGenerator(mock, GeneratorConfig{Persona: "You are a test persona."})

	history := []Message{
		{Role: "user", Content: "who are they?"},
		{Role: "assistant", Content: "a duo from Berlin"},
	}

	reply, err := gen.Reply(context.Background(), testBundle(), history, "tell me more")
	require.NoError(t, err)
	assert.Equal(t, "Sure, here's more about them.", reply)

	// Exactly one provider call per Generate, no retry loop
	require.Equal(t, 1, mock.CallCount())

	req := mock.LastCall()
	assert.True(t, strings.Contains(req.System, "You are a test persona."), "system prompt missing persona")
	assert.True(t, strings.Contains(req.System, "Artist X"), "system prompt missing context summary")
	assert.True(t, strings.Contains(req.System, "First Light"), "system prompt missing album context")

	require.Len(t, req.Messages, 3)
	assert.Equal(t, "tell me more", req.Messages[2].Content)
	assert.Equal(t, "user", req.Messages[2].Role)
}

func TestReplyPropagatesProviderError(t *testing.T) {
	mock := NewMockProvider("mock")
	mock.AddErrorResponse(errors.New("provider down"))
	gen := NewGenerator(mock, GeneratorConfig{})

	_, err := gen.Reply(context.Background(), testBundle(), nil, "hello")
	require.Error(t, err)

	// Still exactly one call: failures are not retried
	assert.Equal(t, 1, mock.CallCount())
}

func TestReplyWithDegradedBundle(t *testing.T) {
	mock := NewMockProvider("mock")
	mock.AddResponse("Happy to chat from what I know.")
	gen := NewGenerator(mock, GeneratorConfig{})

	bundle := knowledge.DefaultBundle(protocol.SubjectEntity{Name: "Artist X"})
	reply, err := gen.Reply(context.Background(), bundle, nil, "hi")

	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	assert.True(t, strings.Contains(mock.LastCall().System, "Artist X"))
}

func TestOpening(t *testing.T) {
	mock := NewMockProvider("mock")
	mock.AddResponse("Welcome! Let's talk about Artist X.")
	gen := NewGenerator(mock, GeneratorConfig{})

	opening, err := gen.Opening(context.Background(), testBundle())
	require.NoError(t, err)
	assert.Equal(t, "Welcome! Let's talk about Artist X.", opening)

	req := mock.LastCall()
	require.Len(t, req.Messages, 1)
	assert.True(t, strings.Contains(req.Messages[0].Content, "Artist X"))
}

func TestInsightKnownCategory(t *testing.T) {
	mock := NewMockProvider("mock")
	gen := NewGenerator(mock, GeneratorConfig{})

	_, err := gen.Insight(context.Background(), testBundle(), "style")
	require.NoError(t, err)

	prompt := mock.LastCall().Messages[0].Content
	assert.True(t, strings.Contains(prompt, "style"))
	assert.True(t, strings.Contains(prompt, "Artist X"))
}

func TestInsightUnknownCategoryUsesGenericPrompt(t *testing.T) {
	mock := NewMockProvider("mock")
	gen := NewGenerator(mock, GeneratorConfig{})

	_, err := gen.Insight(context.Background(), testBundle(), "deep-cuts")
	require.NoError(t, err)

	prompt := mock.LastCall().Messages[0].Content
	assert.True(t, strings.Contains(prompt, "deep-cuts"))
}

func TestEchoProvider(t *testing.T) {
	echo := NewEchoProvider()
	resp, err := echo.Complete(context.Background(), &CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "(echo) hello", resp.Content)
}
