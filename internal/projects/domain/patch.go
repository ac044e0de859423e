package domain

import "time"

// Patch is a partial update of a project. Nil fields are left untouched; a
// pointer to a nil slice clears the field. AppendHistory is appended, never
// replacing existing entries.
type Patch struct {
	Status              *Status
	Description         *string
	AppendHistory       []ConversationEntry
	InterviewComplete   *bool
	PendingRequirements *[]string
	Requirements        *[]string
	PendingCode         *[]CodeFile
	GeneratedCode       *[]CodeFile
	FailureReason       *string
}

// Apply writes the patch onto p and stamps UpdatedAt.
func (pt Patch) Apply(p *Project, now time.Time) {
	if pt.Status != nil {
		p.Status = *pt.Status
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if len(pt.AppendHistory) > 0 {
		p.ConversationHistory = append(cloneSlice(p.ConversationHistory), pt.AppendHistory...)
	}
	// interview_complete only ever moves false -> true
	if pt.InterviewComplete != nil && *pt.InterviewComplete {
		p.InterviewComplete = true
	}
	if pt.PendingRequirements != nil {
		p.PendingRequirements = cloneSlice(*pt.PendingRequirements)
	}
	if pt.Requirements != nil {
		p.Requirements = cloneSlice(*pt.Requirements)
	}
	if pt.PendingCode != nil {
		p.PendingCode = cloneSlice(*pt.PendingCode)
	}
	if pt.GeneratedCode != nil {
		p.GeneratedCode = cloneSlice(*pt.GeneratedCode)
	}
	if pt.FailureReason != nil {
		p.FailureReason = *pt.FailureReason
	}
	p.UpdatedAt = now
}

func ptr[T any](v T) *T { return &v }
