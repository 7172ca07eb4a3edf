package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tunetalk/internal/knowledge"
)

// DefaultPersona is the style preamble used when no persona is configured
const DefaultPersona = "You are Aria, a warm and knowledgeable music guide. " +
	"You talk about artists, albums, and scenes with genuine enthusiasm, " +
	"keep answers conversational, and never invent facts the context contradicts."

// insightPrompts maps insight categories to their generation templates. The
// %s placeholder is the artist name.
var insightPrompts = map[string]string{
	"style":          "In a short paragraph, describe the defining musical style and sound of %s.",
	"influences":     "In a short paragraph, describe the key influences that shaped %s and who they influenced in turn.",
	"evolution":      "In a short paragraph, describe how the sound of %s evolved across their career.",
	"collaborations": "In a short paragraph, describe the most notable collaborations of %s.",
	"legacy":         "In a short paragraph, describe the legacy and lasting impact of %s.",
}

// genericInsightPrompt covers categories not in the table
const genericInsightPrompt = "In a short paragraph, share an interesting %s insight about %s."

// GeneratorConfig holds generation settings
type GeneratorConfig struct {
	Persona   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// DefaultGenerateTimeout bounds each provider call
const DefaultGenerateTimeout = 30 * time.Second

// Generator builds generation requests from persona, context bundle, and
// history, and invokes the provider exactly once per call. It performs no
// retries; a provider failure is the caller's to surface.
type Generator struct {
	provider  Provider
	persona   string
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewGenerator creates a response generator over the given provider
func NewGenerator(provider Provider, cfg GeneratorConfig) *Generator {
	persona := cfg.Persona
	if persona == "" {
		persona = DefaultPersona
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	return &Generator{
		provider:  provider,
		persona:   persona,
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// ProviderName reports the underlying provider, for health output
func (g *Generator) ProviderName() string {
	return g.provider.Name()
}

func (g *Generator) system(bundle *knowledge.ContextBundle) string {
	var sb strings.Builder
	sb.WriteString(g.persona)
	sb.WriteString("\n\n# Subject context\n")
	sb.WriteString(bundle.Summary())
	return sb.String()
}

func (g *Generator) complete(ctx context.Context, system string, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Complete(ctx, &CompletionRequest{
		System:      system,
		Messages:    messages,
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Opening generates the assistant message that opens a conversation
func (g *Generator) Opening(ctx context.Context, bundle *knowledge.ContextBundle) (string, error) {
	prompt := fmt.Sprintf("Greet the listener and briefly introduce %s, then invite questions.", bundle.Artist.Name)
	return g.complete(ctx, g.system(bundle), []Message{{Role: "user", Content: prompt}})
}

// Reply generates the assistant response to a new user message. History is
// the prior conversation, excluding the new message.
func (g *Generator) Reply(ctx context.Context, bundle *knowledge.ContextBundle, history []Message, userMessage string) (string, error) {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userMessage})
	return g.complete(ctx, g.system(bundle), messages)
}

// Insight generates a standalone insight for a category
func (g *Generator) Insight(ctx context.Context, bundle *knowledge.ContextBundle, category string) (string, error) {
	template, ok := insightPrompts[category]
	var prompt string
	if ok {
		prompt = fmt.Sprintf(template, bundle.Artist.Name)
	} else {
		prompt = fmt.Sprintf(genericInsightPrompt, category, bundle.Artist.Name)
	}
	return g.complete(ctx, g.system(bundle), []Message{{Role: "user", Content: prompt}})
}
