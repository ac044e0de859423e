package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	XAIBaseURL         = "https://api.x.ai/v1"
	HuggingFaceBaseURL = "https://router.huggingface.co/v1"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint:
// OpenAI itself, xAI and the Hugging Face inference router.
type OpenAIClient struct {
	client   openai.Client
	provider string
	opts     Options
}

// NewOpenAIClient builds a client. An empty baseURL targets api.openai.com.
func NewOpenAIClient(provider, apiKey, baseURL string, opts Options) *OpenAIClient {
	// retries belong to the workflow retry policy
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client:   openai.NewClient(reqOpts...),
		provider: provider,
		opts:     opts.withDefaults("gpt-4o"),
	}
}

func (c *OpenAIClient) Invoke(ctx context.Context, conversation []Message) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(conversation))
	for _, m := range conversation {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.opts.Model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(c.opts.MaxTokens)),
		Temperature: openai.Float(c.opts.Temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", classifyStatus(c.provider, apiErr.StatusCode, err)
		}
		return "", classify(c.provider, err)
	}

	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", emptyResponse(c.provider)
	}
	return resp.Choices[0].Message.Content, nil
}
