package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

// InterviewReply is the parsed interview decision.
type InterviewReply struct {
	NeedsMoreInfo      bool     `json:"needsMoreInfo"`
	RefinedDescription string   `json:"refinedDescription"`
	Questions          []string `json:"questions"`
}

var errNoQuestions = errors.New("needsMoreInfo without questions")

// Interview asks the model whether the description is specific enough.
func (s *Steps) Interview(ctx context.Context, client llm.Client, description string, history []domain.ConversationEntry) Result[InterviewReply] {
	render := func(h []domain.ConversationEntry) string {
		return interviewPrompt(description, h)
	}
	history = fit(s.tokens, s.maxPromptTokens, history, render)

	raw, err := client.Invoke(ctx, conversation(s.prompts.Interviewer.System, render(history)))
	if err != nil {
		return failed[InterviewReply](err)
	}

	var reply InterviewReply
	if err := decodeObject(raw, &reply); err != nil {
		return malformed[InterviewReply](raw, err)
	}

	questions := reply.Questions[:0:0]
	for _, q := range reply.Questions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	reply.Questions = questions
	reply.RefinedDescription = strings.TrimSpace(reply.RefinedDescription)

	if reply.NeedsMoreInfo && len(reply.Questions) == 0 {
		return malformed[InterviewReply](raw, errNoQuestions)
	}
	return parsed(reply, raw)
}

func interviewPrompt(description string, history []domain.ConversationEntry) string {
	var b strings.Builder
	b.WriteString("Project description: ")
	b.WriteString(description)
	if len(history) > 0 {
		b.WriteString("\n\nConversation history:\n")
		for i, h := range history {
			if i > 0 {
				b.WriteByte('\n')
			}
			if h.Role == domain.SpeakerAgent {
				b.WriteString("Interviewer: ")
			} else {
				b.WriteString("User: ")
			}
			b.WriteString(h.Message)
		}
	}
	b.WriteString("\n\nReturn JSON only.")
	return b.String()
}
