package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient adapts the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	opts   Options
}

// NewAnthropicClient builds a client. An empty baseURL targets api.anthropic.com.
func NewAnthropicClient(apiKey, baseURL string, opts Options) *AnthropicClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{
		client: anthropic.NewClient(reqOpts...),
		opts:   opts.withDefaults("claude-sonnet-4-5"),
	}
}

func (c *AnthropicClient) Invoke(ctx context.Context, conversation []Message) (string, error) {
	system, rest := splitSystem(conversation)
	rest = mergeConsecutive(rest)
	if len(rest) == 0 || rest[0].Role != RoleUser {
		return "", &Error{Provider: "anthropic", Type: ErrorTypeBadPrompt, Message: "conversation must start with a user message"}
	}

	messages := make([]anthropic.MessageParam, 0, len(rest))
	for _, m := range rest {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.opts.Model),
		Messages:    messages,
		MaxTokens:   int64(c.opts.MaxTokens),
		Temperature: anthropic.Float(c.opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", classifyStatus("anthropic", apiErr.StatusCode, err)
		}
		return "", classify("anthropic", err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return "", emptyResponse("anthropic")
	}

	var text string
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	if text == "" {
		return "", &Error{Provider: "anthropic", Type: ErrorTypeEmptyResponse, Message: fmt.Sprintf("no text blocks (stop reason %s)", resp.StopReason)}
	}
	return text, nil
}
