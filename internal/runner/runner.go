// Package runner is the message boundary around the simulation engine: each
// request runs as its own task, and submitting a new one abandons the last.
package runner

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"liquidity-mcs/internal/simulation"
)

// ErrSuperseded is returned by a task discarded in favour of a newer request.
var ErrSuperseded = errors.New("simulation request superseded by a newer one")

// Simulator runs one request to completion.
type Simulator interface {
	Run(ctx context.Context, req simulation.Request) (simulation.Response, error)
}

// Task is the handle of one submitted request.
type Task struct {
	ID   string
	done chan struct{}
	resp simulation.Response
	err  error
}

// Done is closed once the task has a result.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx ends. Abandoning the wait does not
// cancel the task.
func (t *Task) Wait(ctx context.Context) (simulation.Response, error) {
	select {
	case <-t.done:
		return t.resp, t.err
	case <-ctx.Done():
		return simulation.Response{}, ctx.Err()
	}
}

// Runner executes at most one live task: last request wins.
type Runner struct {
	sim Simulator

	mu      sync.Mutex
	cancel  context.CancelCauseFunc
	current *Task
}

// New returns a Runner that executes requests on sim.
func New(sim Simulator) *Runner {
	return &Runner{sim: sim}
}

// Submit starts req in the background, superseding any in-flight task.
// The task is detached from ctx's cancellation but keeps its values.
func (r *Runner) Submit(ctx context.Context, req simulation.Request) *Task {
	runCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	task := &Task{ID: uuid.NewString(), done: make(chan struct{})}

	r.mu.Lock()
	if r.cancel != nil {
		log.Debug().Str("run_id", r.current.ID).Str("by", task.ID).Msg("superseding in-flight simulation")
		r.cancel(ErrSuperseded)
	}
	r.cancel = cancel
	r.current = task
	r.mu.Unlock()

	go func() {
		defer close(task.done)
		defer r.finish(task, cancel)

		resp, err := r.sim.Run(runCtx, req)
		if cause := context.Cause(runCtx); errors.Is(cause, ErrSuperseded) {
			task.err = ErrSuperseded
			return
		}
		if err != nil {
			task.err = err
			return
		}
		resp.RunID = task.ID
		task.resp = resp
	}()
	return task
}

// Run submits req and waits for its result. If ctx ends first the task is
// cancelled as well.
func (r *Runner) Run(ctx context.Context, req simulation.Request) (simulation.Response, error) {
	task := r.Submit(ctx, req)
	resp, err := task.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		r.cancelTask(task, context.Cause(ctx))
	}
	return resp, err
}

// Cancel abandons the in-flight task, if any.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel(context.Canceled)
	}
}

func (r *Runner) cancelTask(task *Task, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == task && r.cancel != nil {
		r.cancel(cause)
	}
}

func (r *Runner) finish(task *Task, cancel context.CancelCauseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == task {
		r.current = nil
		r.cancel = nil
	}
	cancel(nil)
}
