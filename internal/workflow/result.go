// Package workflow implements the three model-backed pipeline steps. Each step
// is one exchange with a model client and never touches persisted state.
package workflow

import "fmt"

// Outcome tags how a step ended.
type Outcome int

const (
	Parsed Outcome = iota
	Malformed
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Malformed:
		return "malformed"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// Result is the tagged output of a step. Value is only meaningful when
// Outcome is Parsed; Raw holds the reply text for Parsed and Malformed; Err
// explains a Malformed or Failed outcome.
type Result[T any] struct {
	Outcome Outcome
	Value   T
	Raw     string
	Err     error
}

func parsed[T any](v T, raw string) Result[T] {
	return Result[T]{Outcome: Parsed, Value: v, Raw: raw}
}

func malformed[T any](raw string, err error) Result[T] {
	return Result[T]{Outcome: Malformed, Raw: raw, Err: err}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Outcome: Failed, Err: err}
}

func (r Result[T]) OK() bool { return r.Outcome == Parsed }

// Reason is a short human-readable description of a non-parsed outcome.
func (r Result[T]) Reason() string {
	switch r.Outcome {
	case Parsed:
		return ""
	case Malformed:
		return fmt.Sprintf("malformed model reply: %v", r.Err)
	default:
		return fmt.Sprintf("model invocation failed: %v", r.Err)
	}
}
