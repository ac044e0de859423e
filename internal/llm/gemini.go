package llm

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/genai"
)

// GeminiClient adapts the Gemini API. The SDK client needs a context to be
// created, so it is built on first use.
type GeminiClient struct {
	apiKey  string
	baseURL string
	opts    Options

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient builds a client. An empty baseURL targets the public
// Gemini API endpoint.
func NewGeminiClient(apiKey, baseURL string, opts Options) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		opts:    opts.withDefaults("gemini-2.0-flash"),
	}
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return nil, &Error{Provider: "gemini", Type: ErrorTypeAuth, Err: err, Message: "create client"}
	}
	c.client = client
	return client, nil
}

func (c *GeminiClient) Invoke(ctx context.Context, conversation []Message) (string, error) {
	client, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}

	system, rest := splitSystem(conversation)
	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	temperature := float32(c.opts.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(c.opts.MaxTokens),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	result, err := client.Models.GenerateContent(ctx, c.opts.Model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", classifyStatus("gemini", apiErr.Code, err)
		}
		return "", classify("gemini", err)
	}
	if result == nil || result.Text() == "" {
		return "", emptyResponse("gemini")
	}
	return result.Text(), nil
}
