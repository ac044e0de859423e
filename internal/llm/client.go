// Package llm provides the model client abstraction used by the workflow steps
// together with provider adapters selected from configuration.
package llm

import "context"

// Role is the speaker of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation sent to a model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client is the single capability every provider exposes: send a conversation,
// get the reply text back.
type Client interface {
	Invoke(ctx context.Context, conversation []Message) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, conversation []Message) (string, error)

func (f ClientFunc) Invoke(ctx context.Context, conversation []Message) (string, error) {
	return f(ctx, conversation)
}

// Options holds the generation settings shared by all adapters.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

func (o Options) withDefaults(model string) Options {
	if o.Model == "" {
		o.Model = model
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	return o
}

// splitSystem pulls system messages out of a conversation, joining them into one
// instruction, for providers that take the system prompt as a separate field.
func splitSystem(conversation []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(conversation))
	for _, m := range conversation {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// mergeConsecutive joins adjacent messages from the same speaker so providers
// that require strict user/assistant alternation accept the conversation.
func mergeConsecutive(conversation []Message) []Message {
	out := make([]Message, 0, len(conversation))
	for _, m := range conversation {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}
