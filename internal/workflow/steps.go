package workflow

import "github.com/GoSim-25-26J-441/codegen-backend/internal/llm"

// Steps runs the Interview, Analyze and Generate exchanges.
type Steps struct {
	prompts         *Prompts
	tokens          *tokenCounter
	maxPromptTokens int
}

type Option func(*Steps)

// WithPrompts replaces the embedded prompt catalog.
func WithPrompts(p *Prompts) Option {
	return func(s *Steps) { s.prompts = p }
}

// WithMaxPromptTokens bounds the rendered interview prompt.
func WithMaxPromptTokens(n int) Option {
	return func(s *Steps) { s.maxPromptTokens = n }
}

func New(opts ...Option) *Steps {
	s := &Steps{tokens: newTokenCounter()}
	for _, o := range opts {
		o(s)
	}
	if s.prompts == nil {
		s.prompts = DefaultPrompts()
	}
	return s
}

func conversation(system, user string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}
