// File: internal/stack/engine.go
// Brief: Create-or-update submission and the convergence poll loop.

package stack

import (
	"context"
	"errors"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/go-logr/logr"
)

// DefaultInterval is the delay between status observations.
const DefaultInterval = 2 * time.Second

// Action is the stack operation that was submitted.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Observer receives progress callbacks. Implementations must not block.
type Observer interface {
	Submitted(action Action, stackID string)
	Status(status Status, terminal bool)
}

// Result is the outcome of a converge run. Status is reported as-is; callers
// decide whether it means success.
type Result struct {
	Action  Action
	StackID string
	Status  string
	Reason  string
	// Polls counts delayed re-polls, not the first observation.
	Polls int
	// Missing is set when the backend returned no stack record and polling
	// stopped on UnknownStatus.
	Missing bool
}

// Engine drives one stack to a terminal status.
type Engine struct {
	Orchestrator Orchestrator
	Clock        clock.Clock
	Interval     time.Duration
	// MaxPolls bounds delayed re-polls; 0 means no limit.
	MaxPolls int
	// Timeout bounds time spent polling; 0 means no limit.
	Timeout  time.Duration
	Observer Observer
	Log      logr.Logger
}

// Converge submits req and waits until the stack is terminal. At most one
// action is outstanding: polling starts only after create or update succeeded.
func (e *Engine) Converge(ctx context.Context, req Request) (Result, error) {
	action, stackID, err := e.Submit(ctx, req)
	if err != nil {
		return Result{}, err
	}
	res, err := e.Wait(ctx, stackID)
	res.Action = action
	return res, err
}

// Submit tries a create first and falls back to exactly one update when the
// stack already exists. Create is never retried.
func (e *Engine) Submit(ctx context.Context, req Request) (Action, string, error) {
	log := e.Log.WithValues("stack", req.StackName)
	stackID, err := e.Orchestrator.CreateStack(ctx, req)
	if err == nil {
		log.Info("deploying stack", "stackID", stackID)
		e.notifySubmitted(ActionCreate, stackID)
		return ActionCreate, stackID, nil
	}
	if !errors.Is(err, ErrAlreadyExists) {
		return "", "", deployerr.New(deployerr.RemoteState, "create stack", err)
	}
	log.Info("stack with name already exists, updating previous stack")
	stackID, err = e.Orchestrator.UpdateStack(ctx, req)
	if err != nil {
		return "", "", deployerr.New(deployerr.RemoteState, "update stack", err)
	}
	log.Info("updating stack", "stackID", stackID)
	e.notifySubmitted(ActionUpdate, stackID)
	return ActionUpdate, stackID, nil
}

// Wait polls stackID until its status is terminal. Describe failures are
// fatal and are not retried.
func (e *Engine) Wait(ctx context.Context, stackID string) (Result, error) {
	clk := e.Clock
	if clk == nil {
		clk = clock.NewClock()
	}
	interval := e.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := e.Log.WithValues("stackID", stackID)
	res := Result{StackID: stackID}
	start := clk.Now()
	for {
		status, found, err := e.Orchestrator.DescribeStack(ctx, stackID)
		if err != nil {
			return res, deployerr.New(deployerr.RemoteState, "describe stack", err)
		}
		if !found {
			status = Status{Value: UnknownStatus}
			res.Missing = true
			log.Info("describe returned no stack record; stopping on unknown status")
		}
		res.Status, res.Reason = status.Value, status.Reason
		terminal := IsTerminal(status.Value)
		if e.Observer != nil {
			e.Observer.Status(status, terminal)
		}
		if terminal {
			log.V(1).Info("stack reached terminal status", "status", status.Value, "polls", res.Polls)
			return res, nil
		}
		log.V(1).Info("stack in progress", "status", status.Value, "polls", res.Polls)
		if e.MaxPolls > 0 && res.Polls >= e.MaxPolls {
			return res, deployerr.Errorf(deployerr.ConvergenceTimeout, "stack %s still %s after %d polls", stackID, status.Value, res.Polls)
		}
		if e.Timeout > 0 && clk.Since(start) >= e.Timeout {
			return res, deployerr.Errorf(deployerr.ConvergenceTimeout, "stack %s still %s after %s", stackID, status.Value, e.Timeout)
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-clk.After(interval):
		}
		res.Polls++
	}
}

func (e *Engine) notifySubmitted(action Action, stackID string) {
	if e.Observer != nil {
		e.Observer.Submitted(action, stackID)
	}
}
