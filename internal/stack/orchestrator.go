// File: internal/stack/orchestrator.go
// Brief: The stack backend surface the engine drives.

package stack

import (
	"context"
	"errors"

	"github.com/example/cfdeploy/internal/params"
)

// ErrAlreadyExists is returned by Orchestrator.CreateStack when a stack with
// the requested name exists.
var ErrAlreadyExists = errors.New("stack already exists")

// Request is the shape shared by create and update.
type Request struct {
	StackName  string
	Parameters params.Set
	// TemplateURL wins over TemplateBody when both are set.
	TemplateURL  string
	TemplateBody string
	Capabilities []string
}

// Status is one observation of a stack.
type Status struct {
	Value  string
	Reason string
}

// Orchestrator creates, updates, and describes stacks.
type Orchestrator interface {
	CreateStack(ctx context.Context, req Request) (string, error)
	UpdateStack(ctx context.Context, req Request) (string, error)
	// DescribeStack reports found=false when the backend returned no record.
	DescribeStack(ctx context.Context, stackID string) (status Status, found bool, err error)
}
