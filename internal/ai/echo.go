package ai

import (
	"context"
	"fmt"
)

// EchoProvider is a development fallback used when no API key is configured.
// It lets the gateway run end to end without an external provider.
type EchoProvider struct{}

// NewEchoProvider creates the echo provider
func NewEchoProvider() *EchoProvider {
	return &EchoProvider{}
}

func (e *EchoProvider) Name() string {
	return "echo"
}

func (e *EchoProvider) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	last := ""
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Content
	}
	return &Completion{
		Content: fmt.Sprintf("(echo) %s", last),
	}, nil
}
