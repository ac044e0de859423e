package llm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const DefaultOllamaURL = "http://localhost:11434"

// OllamaClient adapts a local Ollama server.
type OllamaClient struct {
	client *api.Client
	opts   Options
}

func NewOllamaClient(hostURL string, opts Options) *OllamaClient {
	parsed, err := url.Parse(hostURL)
	if err != nil || hostURL == "" {
		parsed, _ = url.Parse(DefaultOllamaURL)
	}
	return &OllamaClient{
		client: api.NewClient(parsed, http.DefaultClient),
		opts:   opts.withDefaults("llama3.1"),
	}
}

func (c *OllamaClient) Invoke(ctx context.Context, conversation []Message) (string, error) {
	messages := make([]api.Message, 0, len(conversation))
	for _, m := range conversation {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.opts.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": c.opts.Temperature,
			"num_predict": c.opts.MaxTokens,
		},
	}

	var reply strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", classifyOllama(err)
	}
	if reply.Len() == 0 {
		return "", emptyResponse("ollama")
	}
	return reply.String(), nil
}

func classifyOllama(err error) *Error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus("ollama", statusErr.StatusCode, err)
	}
	var authErr api.AuthorizationError
	if errors.As(err, &authErr) {
		return classifyStatus("ollama", authErr.StatusCode, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return &Error{Provider: "ollama", Type: ErrorTypeTransient, Err: err, Message: "server not reachable"}
	case strings.Contains(msg, "not found"):
		return &Error{Provider: "ollama", Type: ErrorTypeBadPrompt, Err: err, Message: "model not found"}
	}
	return classify("ollama", err)
}
