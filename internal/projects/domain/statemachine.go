package domain

import (
	"fmt"
	"strings"
)

// Event is anything that may move a project between statuses: a user action
// or the completion of a workflow step.
type Event string

const (
	EventInterviewNeedsInfo   Event = "interview_needs_info"
	EventInterviewReady       Event = "interview_ready"
	EventInterviewFailed      Event = "interview_failed"
	EventAnswerSubmitted      Event = "answer_submitted"
	EventSkipRequested        Event = "skip_requested"
	EventAnalyzeSucceeded     Event = "analyze_succeeded"
	EventAnalyzeFailed        Event = "analyze_failed"
	EventRequirementsApproved Event = "requirements_approved"
	EventRequirementsRejected Event = "requirements_rejected"
	EventGenerateSucceeded    Event = "generate_succeeded"
	EventGenerateFailed       Event = "generate_failed"
	EventCodeApproved         Event = "code_approved"
	EventCodeRejected         Event = "code_rejected"
)

// Step names a workflow step the orchestrator runs in the background.
type Step string

const (
	StepNone      Step = ""
	StepInterview Step = "interview"
	StepAnalyze   Step = "analyze"
	StepGenerate  Step = "generate"
)

// StepFor returns the step that is expected to be running while a project is in s.
func StepFor(s Status) Step {
	switch s {
	case StatusInterviewing:
		return StepInterview
	case StatusAnalyzing:
		return StepAnalyze
	case StatusGeneratingCode:
		return StepGenerate
	}
	return StepNone
}

// EventInput carries the payload an event's side effect needs.
type EventInput struct {
	Questions          []string
	RefinedDescription string
	Answer             string
	Requirements       []string
	Code               []CodeFile
	Reason             string
}

type transition struct {
	from   []Status
	to     Status
	launch Step
	effect func(p *Project, in EventInput, patch *Patch)
}

var transitions = map[Event]transition{
	EventInterviewNeedsInfo: {
		from: []Status{StatusInterviewing},
		to:   StatusAwaitingAnswer,
		effect: func(_ *Project, in EventInput, patch *Patch) {
			patch.AppendHistory = []ConversationEntry{{Role: SpeakerAgent, Message: strings.Join(in.Questions, "\n\n")}}
		},
	},
	EventInterviewReady: {
		from:   []Status{StatusInterviewing},
		to:     StatusAnalyzing,
		launch: StepAnalyze,
		effect: func(p *Project, in EventInput, patch *Patch) {
			if d := strings.TrimSpace(in.RefinedDescription); d != "" && d != p.Description {
				patch.Description = ptr(d)
			}
			patch.InterviewComplete = ptr(true)
		},
	},
	EventInterviewFailed: {
		from:   []Status{StatusInterviewing},
		to:     StatusAnalyzing,
		launch: StepAnalyze,
		effect: func(_ *Project, in EventInput, patch *Patch) {
			patch.InterviewComplete = ptr(true)
			if in.Reason != "" {
				patch.FailureReason = ptr(in.Reason)
			}
		},
	},
	EventAnswerSubmitted: {
		from:   []Status{StatusAwaitingAnswer},
		to:     StatusInterviewing,
		launch: StepInterview,
		effect: func(_ *Project, in EventInput, patch *Patch) {
			patch.AppendHistory = []ConversationEntry{{Role: SpeakerUser, Message: in.Answer}}
		},
	},
	EventSkipRequested: {
		from:   []Status{StatusInterviewing, StatusAwaitingAnswer},
		to:     StatusAnalyzing,
		launch: StepAnalyze,
		effect: func(_ *Project, _ EventInput, patch *Patch) {
			patch.InterviewComplete = ptr(true)
		},
	},
	EventAnalyzeSucceeded: {
		from: []Status{StatusAnalyzing},
		to:   StatusAwaitingRequirementsApproval,
		effect: func(_ *Project, in EventInput, patch *Patch) {
			patch.PendingRequirements = ptr(cloneSlice(in.Requirements))
		},
	},
	EventAnalyzeFailed: {
		from:   []Status{StatusAnalyzing},
		to:     StatusFailed,
		effect: failWith,
	},
	EventRequirementsApproved: {
		from:   []Status{StatusAwaitingRequirementsApproval},
		to:     StatusGeneratingCode,
		launch: StepGenerate,
		effect: func(p *Project, _ EventInput, patch *Patch) {
			patch.Requirements = ptr(cloneSlice(p.PendingRequirements))
			patch.PendingRequirements = ptr[[]string](nil)
		},
	},
	EventRequirementsRejected: {
		from: []Status{StatusAwaitingRequirementsApproval},
		to:   StatusRejected,
		effect: func(_ *Project, _ EventInput, patch *Patch) {
			patch.PendingRequirements = ptr[[]string](nil)
		},
	},
	EventGenerateSucceeded: {
		from: []Status{StatusGeneratingCode},
		to:   StatusAwaitingCodeApproval,
		effect: func(_ *Project, in EventInput, patch *Patch) {
			patch.PendingCode = ptr(cloneSlice(in.Code))
		},
	},
	EventGenerateFailed: {
		from:   []Status{StatusGeneratingCode},
		to:     StatusFailed,
		effect: failWith,
	},
	EventCodeApproved: {
		from: []Status{StatusAwaitingCodeApproval},
		to:   StatusCompleted,
		effect: func(p *Project, _ EventInput, patch *Patch) {
			patch.GeneratedCode = ptr(cloneSlice(p.PendingCode))
			patch.PendingCode = ptr[[]CodeFile](nil)
		},
	},
	EventCodeRejected: {
		from: []Status{StatusAwaitingCodeApproval},
		to:   StatusRejected,
		effect: func(_ *Project, _ EventInput, patch *Patch) {
			patch.PendingCode = ptr[[]CodeFile](nil)
		},
	},
}

func failWith(_ *Project, in EventInput, patch *Patch) {
	reason := in.Reason
	if reason == "" {
		reason = "workflow step failed"
	}
	patch.FailureReason = ptr(reason)
}

// Decision is the outcome of evaluating an event against a project: the
// patch to write and the step to launch once it is persisted.
type Decision struct {
	From   Status
	To     Status
	Patch  Patch
	Launch Step
}

// Accepts reports whether ev's guard holds for status s.
func Accepts(s Status, ev Event) bool {
	t, ok := transitions[ev]
	if !ok {
		return false
	}
	for _, from := range t.from {
		if from == s {
			return true
		}
	}
	return false
}

// Decide evaluates ev against the current project. It never mutates p; an
// unmet guard returns ErrInvalidTransition.
func Decide(p *Project, ev Event, in EventInput) (Decision, error) {
	t, ok := transitions[ev]
	if !ok || !Accepts(p.Status, ev) {
		return Decision{}, fmt.Errorf("%w: %s does not accept %s", ErrInvalidTransition, p.Status, ev)
	}

	patch := Patch{Status: ptr(t.to)}
	if t.effect != nil {
		t.effect(p, in, &patch)
	}
	return Decision{From: p.Status, To: t.to, Patch: patch, Launch: t.launch}, nil
}
