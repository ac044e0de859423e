// Package llmtest provides a controllable model client for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm"
)

// Reply is one scripted answer. When Gate is set the call blocks until the
// gate is closed or the context ends.
type Reply struct {
	Text string
	Err  error
	Gate <-chan struct{}
}

func Text(s string) Reply { return Reply{Text: s} }

func Fail(err error) Reply { return Reply{Err: err} }

// Gated returns a reply that is released when release is called.
func Gated(s string) (Reply, func()) {
	gate := make(chan struct{})
	var once sync.Once
	return Reply{Text: s, Gate: gate}, func() { once.Do(func() { close(gate) }) }
}

// Scripted hands out queued replies in order and records every conversation
// it receives. It also satisfies the orchestrator's model source, returning
// itself for any provider.
type Scripted struct {
	mu      sync.Mutex
	replies []Reply
	calls   [][]llm.Message
}

func New(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

func (s *Scripted) Push(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

func (s *Scripted) Invoke(ctx context.Context, conversation []llm.Message) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]llm.Message(nil), conversation...))
	if len(s.replies) == 0 {
		n := len(s.calls)
		s.mu.Unlock()
		return "", fmt.Errorf("llmtest: no scripted reply for call %d", n)
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()

	if r.Gate != nil {
		select {
		case <-r.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

func (s *Scripted) Client(string) (llm.Client, error) {
	return s, nil
}

// Calls returns a copy of the conversations received so far.
func (s *Scripted) Calls() [][]llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]llm.Message, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
