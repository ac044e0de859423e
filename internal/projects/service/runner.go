package service

import (
	"context"
	"errors"
	"sync"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

var errRunnerClosed = errors.New("task runner is shut down")

// task is the handle of one background workflow step.
type task struct {
	token uint64
	step  domain.Step
	done  chan struct{}
}

// runner owns the background tasks, at most one current handle per project.
// Launching for a project that already has a handle supersedes it: the older
// task keeps running but its token is no longer current.
type runner struct {
	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tasks  map[string]*task
	next   uint64
	closed bool
	wg     sync.WaitGroup
}

func newRunner() *runner {
	base, cancel := context.WithCancel(context.Background())
	return &runner{base: base, cancel: cancel, tasks: make(map[string]*task)}
}

// launch starts fn in the background as the current task of id.
func (r *runner) launch(id string, step domain.Step, fn func(ctx context.Context, token uint64)) (uint64, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, errRunnerClosed
	}
	r.next++
	t := &task{token: r.next, step: step, done: make(chan struct{})}
	r.tasks[id] = t
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer close(t.done)
		defer r.finish(id, t.token)
		fn(r.base, t.token)
	}()
	return t.token, nil
}

// current reports whether token is still the live handle for id.
func (r *runner) current(id string, token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	return ok && t.token == token
}

func (r *runner) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[id]
	return ok
}

func (r *runner) finish(id string, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok && t.token == token {
		delete(r.tasks, id)
	}
}

func (r *runner) inFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// wait blocks until id has no current task, following chained launches.
func (r *runner) wait(ctx context.Context, id string) error {
	for {
		r.mu.Lock()
		t, ok := r.tasks[id]
		r.mu.Unlock()
		if !ok {
			return nil
		}
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// shutdown stops new launches and waits for running tasks. When ctx ends
// first, running tasks are cancelled and their outcome is left for recovery.
func (r *runner) shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
