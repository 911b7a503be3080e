package model

import (
	"context"
	"strings"

	sabakiErrors "github.com/harunnryd/sabaki/internal/errors"
	"github.com/harunnryd/sabaki/internal/model/contract"
)

// ChatClient binds a router to one model name.
type ChatClient struct {
	router     ModelRouter
	model      string
	jsonOutput bool
}

func NewChatClient(router ModelRouter, model string) *ChatClient {
	return &ChatClient{router: router, model: model}
}

// JSON returns a copy of c that asks for JSON object replies.
func (c *ChatClient) JSON() *ChatClient {
	clone := *c
	clone.jsonOutput = true
	return &clone
}

func (c *ChatClient) Model() string {
	return c.model
}

func (c *ChatClient) Complete(ctx context.Context, messages []contract.Message) (string, error) {
	resp, err := c.router.Route(ctx, c.model, contract.CompletionRequest{
		Model:      c.model,
		Messages:   messages,
		JSONOutput: c.jsonOutput,
	})
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", sabakiErrors.InvalidModelOutput("model returned an empty response")
	}
	return resp.Content, nil
}
