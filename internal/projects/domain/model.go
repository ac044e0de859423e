package domain

import "time"

// Speaker of a conversation history entry.
type Speaker string

const (
	SpeakerAgent Speaker = "agent"
	SpeakerUser  Speaker = "user"
)

// ConversationEntry is one turn of the requirements interview.
type ConversationEntry struct {
	Role    Speaker `json:"role"`
	Message string  `json:"message"`
}

// CodeFile is a generated source file.
type CodeFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Project is the single persisted entity of the pipeline. It is storage-agnostic
// and shared by the repository, service and HTTP layers.
type Project struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	Status              Status              `json:"status"`
	ConversationHistory []ConversationEntry `json:"conversation_history"`
	InterviewComplete   bool                `json:"interview_complete"`
	PendingRequirements []string            `json:"pending_requirements"`
	Requirements        []string            `json:"requirements"`
	PendingCode         []CodeFile          `json:"pending_code"`
	GeneratedCode       []CodeFile          `json:"generated_code"`
	FailureReason       string              `json:"failure_reason,omitempty"`
	Provider            string              `json:"provider,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.ConversationHistory = cloneSlice(p.ConversationHistory)
	c.PendingRequirements = cloneSlice(p.PendingRequirements)
	c.Requirements = cloneSlice(p.Requirements)
	c.PendingCode = cloneSlice(p.PendingCode)
	c.GeneratedCode = cloneSlice(p.GeneratedCode)
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

