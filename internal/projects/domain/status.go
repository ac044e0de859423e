package domain

// Status is the pipeline state of a project.
type Status string

const (
	StatusInterviewing                 Status = "INTERVIEWING"
	StatusAwaitingAnswer               Status = "AWAITING_ANSWER"
	StatusAnalyzing                    Status = "ANALYZING"
	StatusAwaitingRequirementsApproval Status = "AWAITING_REQUIREMENTS_APPROVAL"
	StatusGeneratingCode               Status = "GENERATING_CODE"
	StatusAwaitingCodeApproval         Status = "AWAITING_CODE_APPROVAL"
	StatusCompleted                    Status = "COMPLETED"
	StatusRejected                     Status = "REJECTED"
	StatusFailed                       Status = "FAILED"
)

// AllStatuses lists every status in pipeline order.
var AllStatuses = []Status{
	StatusInterviewing,
	StatusAwaitingAnswer,
	StatusAnalyzing,
	StatusAwaitingRequirementsApproval,
	StatusGeneratingCode,
	StatusAwaitingCodeApproval,
	StatusCompleted,
	StatusRejected,
	StatusFailed,
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusFailed
}

// InFlight reports whether a workflow step is expected to be running in s.
func (s Status) InFlight() bool {
	return s == StatusInterviewing || s == StatusAnalyzing || s == StatusGeneratingCode
}

func (s Status) String() string { return string(s) }
